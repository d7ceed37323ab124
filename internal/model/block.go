package model

import "time"

// Block is an operator-declared window during which a trailer type cannot be
// booked regardless of remaining capacity.  Blocks have no lifecycle beyond
// create and delete and are never versioned.
type Block struct {
    ID          int64
    TrailerType TrailerType
    StartAt     time.Time
    EndAt       time.Time
    Reason      string
    CreatedAt   time.Time
}
