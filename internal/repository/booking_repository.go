package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/dalsjofors/hyrservice/internal/model"
)

// BookingRepo is the authoritative ledger of reservations.  All timestamp
// columns are stored in UTC; callers supply and receive time.Time values in
// UTC.  Mutations that participate in a lifecycle transition are single
// status-guarded statements so that concurrent transitions and the expiry
// sweep cannot race into an inconsistent state.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, booking_reference, trailer_type, rental_type, start_dt, end_dt,
        price, status, created_at, expires_at,
        swish_token, swish_request_id, swish_status,
        customer_phone_temp, customer_email_temp, receipt_requested,
        sms_admin_sent_at, sms_customer_sent_at,
        receipt_webhook_sent_at, receipt_webhook_lock_at`

type rowScanner interface {
    Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
    var b model.Booking
    var ref, swishToken, swishRequestID, swishStatus, phone, email sql.NullString
    var expiresAt, smsAdminAt, smsCustomerAt, webhookSentAt, webhookLockAt sql.NullTime
    err := row.Scan(
        &b.ID, &ref, &b.TrailerType, &b.RentalType, &b.StartAt, &b.EndAt,
        &b.Price, &b.Status, &b.CreatedAt, &expiresAt,
        &swishToken, &swishRequestID, &swishStatus,
        &phone, &email, &b.ReceiptRequested,
        &smsAdminAt, &smsCustomerAt,
        &webhookSentAt, &webhookLockAt,
    )
    if err != nil {
        return nil, err
    }
    if ref.Valid {
        b.Reference = ref.String
    }
    assignString := func(dst **string, v sql.NullString) {
        if v.Valid {
            s := v.String
            *dst = &s
        }
    }
    assignTime := func(dst **time.Time, v sql.NullTime) {
        if v.Valid {
            t := v.Time.UTC()
            *dst = &t
        }
    }
    assignString(&b.SwishToken, swishToken)
    assignString(&b.SwishRequestID, swishRequestID)
    assignString(&b.SwishStatus, swishStatus)
    assignString(&b.CustomerPhone, phone)
    assignString(&b.CustomerEmail, email)
    assignTime(&b.ExpiresAt, expiresAt)
    assignTime(&b.SMSAdminSentAt, smsAdminAt)
    assignTime(&b.SMSCustomerSentAt, smsCustomerAt)
    assignTime(&b.ReceiptWebhookSentAt, webhookSentAt)
    assignTime(&b.ReceiptWebhookLockAt, webhookLockAt)
    b.StartAt = b.StartAt.UTC()
    b.EndAt = b.EndAt.UTC()
    b.CreatedAt = b.CreatedAt.UTC()
    return &b, nil
}

// activeBookingCond is the single source of truth for what consumes
// capacity: CONFIRMED rows always, PENDING_PAYMENT rows until their expiry
// deadline passes.  Every capacity check, including the one inside the
// reserve transaction, must use this condition.
const activeBookingCond = `(status = 'CONFIRMED'
        OR (status = 'PENDING_PAYMENT' AND (expires_at IS NULL OR expires_at >= ?)))`

// CountActiveOverlappingTx counts bookings of the given trailer type that
// are active at now and whose window overlaps [start, end).  It runs inside
// the supplied transaction so the reserve path observes committed writes of
// any serialized predecessor.
func (r *BookingRepo) CountActiveOverlappingTx(ctx context.Context, tx *sql.Tx, t model.TrailerType, start, end, now time.Time) (int, error) {
    const q = `SELECT COUNT(*) FROM bookings
               WHERE trailer_type = ?
                 AND ` + activeBookingCond + `
                 AND (start_dt < ? AND ? < end_dt)`
    var n int
    err := tx.QueryRowContext(ctx, q, t, now, end, start).Scan(&n)
    return n, err
}

// CountActiveOverlapping is the non-transactional variant used by the
// availability endpoint.
func (r *BookingRepo) CountActiveOverlapping(ctx context.Context, t model.TrailerType, start, end, now time.Time) (int, error) {
    const q = `SELECT COUNT(*) FROM bookings
               WHERE trailer_type = ?
                 AND ` + activeBookingCond + `
                 AND (start_dt < ? AND ? < end_dt)`
    var n int
    err := r.db.QueryRowContext(ctx, q, t, now, end, start).Scan(&n)
    return n, err
}

// InsertTx creates a booking row within the supplied transaction and
// populates the generated ID.  The reference string is assigned separately
// (same transaction) because it is derived from the generated ID.
func (r *BookingRepo) InsertTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `INSERT INTO bookings
               (booking_reference, trailer_type, rental_type, start_dt, end_dt, price, status,
                created_at, expires_at, customer_phone_temp, customer_email_temp, receipt_requested)
               VALUES (NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q,
        b.TrailerType, b.RentalType, b.StartAt, b.EndAt, b.Price, b.Status,
        b.CreatedAt, b.ExpiresAt, b.CustomerPhone, b.CustomerEmail, b.ReceiptRequested,
    )
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = id
    return nil
}

// SetReferenceTx persists the booking reference.  The reference is written
// exactly once, in the same transaction as the insert.
func (r *BookingRepo) SetReferenceTx(ctx context.Context, tx *sql.Tx, id int64, ref string) error {
    _, err := tx.ExecContext(ctx, `UPDATE bookings SET booking_reference = ? WHERE id = ?`, ref, id)
    return err
}

// GetByID returns a booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    return b, err
}

// List returns bookings ordered by window start, optionally filtered by
// status.  When nothing matches an empty slice is returned.
func (r *BookingRepo) List(ctx context.Context, status *model.Status) ([]*model.Booking, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings`
    args := []any{}
    if status != nil {
        q += ` WHERE status = ?`
        args = append(args, *status)
    }
    q += ` ORDER BY start_dt, id`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]*model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}

// Confirm moves a booking from PENDING_PAYMENT to CONFIRMED.  The status
// guard makes repeated calls no-ops and excludes the expiry sweep from
// cancelling a row that has just been paid.  It reports whether a row
// transitioned.
func (r *BookingRepo) Confirm(ctx context.Context, id int64) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE bookings SET status = 'CONFIRMED' WHERE id = ? AND status = 'PENDING_PAYMENT'`, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// Cancel moves a booking to CANCELLED unless it already is, clearing the
// ephemeral contact fields and the receipt request in the same statement.
// Idempotent.
func (r *BookingRepo) Cancel(ctx context.Context, id int64) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE bookings
         SET status = 'CANCELLED',
             customer_phone_temp = NULL,
             customer_email_temp = NULL,
             receipt_requested = 0
         WHERE id = ? AND status != 'CANCELLED'`, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// ExpireDue cancels every PENDING_PAYMENT booking whose expiry deadline
// passed strictly before now, clearing contact fields like Cancel does.
// The status guard keeps the sweep mutually exclusive with Confirm on the
// same row.  Safe to call on every inbound request.
func (r *BookingRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE bookings
         SET status = 'CANCELLED',
             customer_phone_temp = NULL,
             customer_email_temp = NULL,
             receipt_requested = 0
         WHERE status = 'PENDING_PAYMENT'
           AND expires_at IS NOT NULL
           AND expires_at < ?`, now)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// SetSwishRequest stores the payment correlation fields returned by the
// payment provider.
func (r *BookingRepo) SetSwishRequest(ctx context.Context, id int64, token, requestID string) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE bookings SET swish_token = ?, swish_request_id = ? WHERE id = ?`, token, requestID, id)
    return err
}

// SetSwishStatus records the provider-reported payment status.
func (r *BookingRepo) SetSwishStatus(ctx context.Context, id int64, status string) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE bookings SET swish_status = ? WHERE id = ?`, status, id)
    return err
}

// ClaimReceiptSend acquires the single-writer webhook claim: the lock
// timestamp is set only when no lock is held and no success timestamp
// exists.  Returns whether this caller won the claim.
func (r *BookingRepo) ClaimReceiptSend(ctx context.Context, id int64, at time.Time) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE bookings SET receipt_webhook_lock_at = ?
         WHERE id = ? AND receipt_webhook_lock_at IS NULL AND receipt_webhook_sent_at IS NULL`, at, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// ReleaseReceiptSend drops the webhook claim so a later trigger can retry.
// The lock is only cleared while no success timestamp exists.
func (r *BookingRepo) ReleaseReceiptSend(ctx context.Context, id int64) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE bookings SET receipt_webhook_lock_at = NULL
         WHERE id = ? AND receipt_webhook_sent_at IS NULL`, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// MarkReceiptSent records a successful webhook delivery.  The success
// timestamp is the permanent guard against re-sending; the claim and the
// ephemeral receipt fields are cleared in the same statement.
func (r *BookingRepo) MarkReceiptSent(ctx context.Context, id int64, at time.Time) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE bookings
         SET receipt_webhook_sent_at = ?,
             receipt_webhook_lock_at = NULL,
             customer_email_temp = NULL,
             receipt_requested = 0
         WHERE id = ?`, at, id)
    return err
}

// MarkAdminSMSSent records that the admin notification SMS went out.
func (r *BookingRepo) MarkAdminSMSSent(ctx context.Context, id int64, at time.Time) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE bookings SET sms_admin_sent_at = ? WHERE id = ?`, at, id)
    return err
}

// MarkCustomerSMSSent records the customer confirmation SMS and clears the
// ephemeral phone number in the same statement.
func (r *BookingRepo) MarkCustomerSMSSent(ctx context.Context, id int64, at time.Time) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE bookings SET sms_customer_sent_at = ?, customer_phone_temp = NULL WHERE id = ?`, at, id)
    return err
}
