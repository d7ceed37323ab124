// Package service holds the reservation engine and booking lifecycle rules.
// Storage is reached through small interfaces so the decision algorithm is
// identical whether it runs against MySQL or an in-memory double.
package service

import (
    "context"
    "time"

    "github.com/dalsjofors/hyrservice/internal/model"
    "github.com/dalsjofors/hyrservice/internal/pricing"
)

// Tx is one serialized reserve transaction.  Implementations must guarantee
// that between Begin and Commit no other reserve transaction for the same
// trailer type can interleave, and that reads observe every previously
// committed reserve.
type Tx interface {
    FindBlockOverlap(ctx context.Context, t model.TrailerType, start, end time.Time) (*model.Block, error)
    CountActiveOverlapping(ctx context.Context, t model.TrailerType, start, end, now time.Time) (int, error)
    InsertBooking(ctx context.Context, b *model.Booking) error
    SetBookingReference(ctx context.Context, id int64, ref string) error
    Commit() error
    Rollback() error
}

// BeginFunc opens a serialized reserve transaction for one trailer type.
type BeginFunc func(ctx context.Context, t model.TrailerType) (Tx, error)

// Ledger is the non-transactional view of the booking table used by the
// lifecycle operations.
type Ledger interface {
    GetByID(ctx context.Context, id int64) (*model.Booking, error)
    List(ctx context.Context, status *model.Status) ([]*model.Booking, error)
    Confirm(ctx context.Context, id int64) (bool, error)
    Cancel(ctx context.Context, id int64) (bool, error)
    ExpireDue(ctx context.Context, now time.Time) (int64, error)
    SetSwishStatus(ctx context.Context, id int64, status string) error
    CountActiveOverlapping(ctx context.Context, t model.TrailerType, start, end, now time.Time) (int, error)
}

// BlockFinder looks up admin blocks outside the reserve transaction, for
// availability reads.
type BlockFinder interface {
    FindOverlap(ctx context.Context, t model.TrailerType, start, end time.Time) (*model.Block, error)
}

// ReserveRequest describes one hold attempt.  StartAt is the rental start
// for two-hour rentals and any instant on the rental day for full-day
// rentals; the window is derived from the rental type.
type ReserveRequest struct {
    TrailerType      model.TrailerType
    RentalType       model.RentalType
    StartAt          time.Time
    CustomerPhone    string
    CustomerEmail    string
    ReceiptRequested bool
}

// BookingService implements reservation, availability and lifecycle
// transitions over the booking ledger.
type BookingService struct {
    Begin     BeginFunc
    Ledger    Ledger
    Blocks    BlockFinder
    Calendar  pricing.Calendar
    Now       func() time.Time
    // OnConfirmed runs after a booking reaches CONFIRMED.  Called on every
    // confirming trigger; downstream send guards make repeats harmless.
    OnConfirmed func(ctx context.Context, b *model.Booking)
}

func (s *BookingService) now() time.Time {
    if s.Now != nil {
        return s.Now().UTC()
    }
    return time.Now().UTC()
}

// Window derives the concrete rental window for a request.
func Window(rental model.RentalType, startAt time.Time) (start, end time.Time) {
    if rental == model.RentalFullDay {
        return model.FullDayWindow(startAt)
    }
    return model.TwoHourWindow(startAt)
}

// Quote prices a prospective rental without touching storage.
func (s *BookingService) Quote(rental model.RentalType, trailer model.TrailerType, startAt time.Time) (int, error) {
    return pricing.Price(rental, trailer, startAt, s.Calendar)
}

// Reserve attempts to hold one trailer for the derived window.  On success
// the booking is PENDING_PAYMENT with a 15 minute expiry and a booking
// reference derived from its row ID.  Admin blocks are checked before
// capacity, so a blocked window reports the block even when the pool is
// also full.
func (s *BookingService) Reserve(ctx context.Context, req ReserveRequest) (*model.Booking, error) {
    now := s.now()
    start, end := Window(req.RentalType, req.StartAt.UTC())
    if !end.After(start) {
        return nil, &InvalidWindowError{Reason: "window end not after start"}
    }
    if end.Before(now) {
        return nil, &InvalidWindowError{Reason: "window already ended"}
    }

    price, err := pricing.Price(req.RentalType, req.TrailerType, start, s.Calendar)
    if err != nil {
        return nil, err
    }

    tx, err := s.Begin(ctx, req.TrailerType)
    if err != nil {
        return nil, err
    }
    defer func() { _ = tx.Rollback() }()

    if blk, err := tx.FindBlockOverlap(ctx, req.TrailerType, start, end); err != nil {
        return nil, err
    } else if blk != nil {
        return nil, &SlotBlockedError{Block: blk}
    }

    active, err := tx.CountActiveOverlapping(ctx, req.TrailerType, start, end, now)
    if err != nil {
        return nil, err
    }
    if active >= model.PoolCapacity {
        return nil, ErrSlotTaken
    }

    expires := now.Add(model.PendingPaymentTTL)
    b := &model.Booking{
        TrailerType:      req.TrailerType,
        RentalType:       req.RentalType,
        StartAt:          start,
        EndAt:            end,
        Price:            price,
        Status:           model.StatusPendingPayment,
        CreatedAt:        now,
        ExpiresAt:        &expires,
        ReceiptRequested: req.ReceiptRequested,
    }
    if req.CustomerPhone != "" {
        phone := req.CustomerPhone
        b.CustomerPhone = &phone
    }
    if req.CustomerEmail != "" {
        email := req.CustomerEmail
        b.CustomerEmail = &email
    }
    if err := tx.InsertBooking(ctx, b); err != nil {
        return nil, err
    }
    ref := model.BookingReference(b.CreatedAt, b.ID)
    if err := tx.SetBookingReference(ctx, b.ID, ref); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    b.Reference = ref
    return b, nil
}

// Available reports how many trailers of the type remain for the window.
// An overlapping admin block makes the window unavailable outright.
func (s *BookingService) Available(ctx context.Context, t model.TrailerType, start, end time.Time) (int, error) {
    if blk, err := s.Blocks.FindOverlap(ctx, t, start, end); err != nil {
        return 0, err
    } else if blk != nil {
        return 0, nil
    }
    active, err := s.Ledger.CountActiveOverlapping(ctx, t, start, end, s.now())
    if err != nil {
        return 0, err
    }
    remaining := model.PoolCapacity - active
    if remaining < 0 {
        remaining = 0
    }
    return remaining, nil
}

// MarkPaid records a successful payment and confirms the booking when it is
// still pending.  Repeated calls are safe.  The confirmation hook fires on
// every call that observes a CONFIRMED booking, so a stuck notification is
// retried by the next payment trigger.
func (s *BookingService) MarkPaid(ctx context.Context, id int64, swishStatus string) (*model.Booking, error) {
    if err := s.Ledger.SetSwishStatus(ctx, id, swishStatus); err != nil {
        return nil, err
    }
    if _, err := s.Ledger.Confirm(ctx, id); err != nil {
        return nil, err
    }
    b, err := s.Ledger.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    if b.Status == model.StatusConfirmed && s.OnConfirmed != nil {
        s.OnConfirmed(ctx, b)
    }
    return b, nil
}

// MarkFailed records a failed or abandoned payment and cancels the booking
// unless it is already cancelled.
func (s *BookingService) MarkFailed(ctx context.Context, id int64, swishStatus string) (*model.Booking, error) {
    if err := s.Ledger.SetSwishStatus(ctx, id, swishStatus); err != nil {
        return nil, err
    }
    if _, err := s.Ledger.Cancel(ctx, id); err != nil {
        return nil, err
    }
    return s.Ledger.GetByID(ctx, id)
}

// ExpireDue cancels every pending booking whose payment window has lapsed
// and returns how many were cancelled.
func (s *BookingService) ExpireDue(ctx context.Context) (int64, error) {
    return s.Ledger.ExpireDue(ctx, s.now())
}
