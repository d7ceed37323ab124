// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a booking is confirmed after
// payment.  It carries enough information for downstream consumers to log,
// notify, or feed analytics without querying the primary database.
type BookingConfirmedEvent struct {
    BookingID        int64  `json:"booking_id"`
    BookingReference string `json:"booking_reference"`
    TrailerType      string `json:"trailer_type"`
    RentalType       string `json:"rental_type"`
    StartsAt         string `json:"starts_at"`
    EndsAt           string `json:"ends_at"`
    PriceSEK         int    `json:"price_sek"`
    SwishStatus      string `json:"swish_status,omitempty"`
    ConfirmedAt      string `json:"confirmed_at"`
}
