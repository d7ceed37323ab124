// Package model defines the persistent entities of the rental service and
// the small pure helpers (interval overlap, window derivation, reference
// formatting) that both the repository layer and the booking service rely
// on.  All timestamps are naive local times stored in UTC column format;
// callers must not mix time zones.
package model

import (
    "fmt"
    "strings"
    "time"
)

// TrailerType identifies one of the two trailer variants in the fleet.
// Each type has its own independent pool of PoolCapacity units.
type TrailerType string

const (
    TrailerGaller TrailerType = "GALLER" // open cage trailer
    TrailerKap    TrailerType = "KAP"    // covered trailer
)

// RentalType is the billing/duration category of a booking.
type RentalType string

const (
    RentalTwoHours RentalType = "TWO_HOURS"
    RentalFullDay  RentalType = "FULL_DAY"
)

// Status is the lifecycle state of a booking.  PENDING_PAYMENT is the only
// non-terminal state; CONFIRMED and CANCELLED never transition further.
type Status string

const (
    StatusPendingPayment Status = "PENDING_PAYMENT"
    StatusConfirmed      Status = "CONFIRMED"
    StatusCancelled      Status = "CANCELLED"
)

// PoolCapacity is the number of physical units per trailer type.
const PoolCapacity = 2

// PendingPaymentTTL is the grace period a booking may stay in
// PENDING_PAYMENT before the expiry sweep cancels it.
const PendingPaymentTTL = 15 * time.Minute

// ParseTrailerType validates a client-supplied trailer type string.
func ParseTrailerType(s string) (TrailerType, bool) {
    switch TrailerType(strings.ToUpper(strings.TrimSpace(s))) {
    case TrailerGaller:
        return TrailerGaller, true
    case TrailerKap:
        return TrailerKap, true
    }
    return "", false
}

// ParseRentalType validates a client-supplied rental type string.
func ParseRentalType(s string) (RentalType, bool) {
    switch RentalType(strings.ToUpper(strings.TrimSpace(s))) {
    case RentalTwoHours:
        return RentalTwoHours, true
    case RentalFullDay:
        return RentalFullDay, true
    }
    return "", false
}

// Booking mirrors the bookings table.  The contact fields are ephemeral:
// they are cleared once the matching notification has been delivered or
// when the booking is cancelled.  ReceiptWebhookLockAt is the single-writer
// claim used by the delivery coordinator; ReceiptWebhookSentAt is the
// permanent guard against re-sending.
type Booking struct {
    ID               int64
    Reference        string
    TrailerType      TrailerType
    RentalType       RentalType
    StartAt          time.Time
    EndAt            time.Time
    Price            int
    Status           Status
    CreatedAt        time.Time
    ExpiresAt        *time.Time
    SwishToken       *string
    SwishRequestID   *string
    SwishStatus      *string
    CustomerPhone    *string
    CustomerEmail    *string
    ReceiptRequested bool
    SMSAdminSentAt       *time.Time
    SMSCustomerSentAt    *time.Time
    ReceiptWebhookSentAt *time.Time
    ReceiptWebhookLockAt *time.Time
}

// Active reports whether the booking consumes a capacity slot at the given
// instant: CONFIRMED always does, PENDING_PAYMENT does until its expiry
// deadline passes.  This predicate must match the SQL used by
// CountActiveOverlapping; the two are kept in lockstep by the service tests.
func (b *Booking) Active(now time.Time) bool {
    switch b.Status {
    case StatusConfirmed:
        return true
    case StatusPendingPayment:
        return b.ExpiresAt == nil || !b.ExpiresAt.Before(now)
    }
    return false
}

// Overlaps reports whether two half-open windows [aStart, aEnd) and
// [bStart, bEnd) intersect.  The same predicate is used for admin block
// conflicts and for capacity counting; the symmetry is deliberate and must
// not be broken.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
    return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// BookingReference builds the immutable, human-facing reference assigned
// once at creation, e.g. "DHS-20260509-000042".
func BookingReference(createdAt time.Time, id int64) string {
    return fmt.Sprintf("DHS-%s-%06d", createdAt.Format("20060102"), id)
}

// testReferencePrefix marks ephemeral smoke-test bookings which are excluded
// from receipt delivery.
const testReferencePrefix = "TEST-"

// IsTestReference reports whether the reference belongs to an ephemeral test
// booking.
func IsTestReference(ref string) bool {
    return strings.HasPrefix(ref, testReferencePrefix)
}

// FullDayWindow derives the [start, end) hire window for a full-day rental
// on the given calendar day: 00:00 up to 23:59.
func FullDayWindow(day time.Time) (time.Time, time.Time) {
    midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
    return midnight, midnight.Add(23*time.Hour + 59*time.Minute)
}

// TwoHourWindow derives the [start, end) hire window for a two-hour rental
// starting at the given instant.
func TwoHourWindow(start time.Time) (time.Time, time.Time) {
    return start, start.Add(2 * time.Hour)
}
