package service

import (
    "errors"
    "fmt"
    "time"

    "github.com/dalsjofors/hyrservice/internal/model"
)

// ErrSlotTaken is returned when every trailer of the requested type is
// already held or confirmed for an overlapping window.
var ErrSlotTaken = errors.New("service: no trailer available for the requested window")

// SlotBlockedError is returned when an admin block overlaps the requested
// window.  Blocks veto the window regardless of remaining capacity.
type SlotBlockedError struct {
    Block *model.Block
}

func (e *SlotBlockedError) Error() string {
    return fmt.Sprintf("service: window blocked %s..%s (%s)",
        e.Block.StartAt.Format(time.RFC3339), e.Block.EndAt.Format(time.RFC3339), e.Block.Reason)
}

// InvalidWindowError is returned when the requested rental window cannot be
// booked, for example a start time in the past.
type InvalidWindowError struct {
    Reason string
}

func (e *InvalidWindowError) Error() string {
    return "service: invalid rental window: " + e.Reason
}
