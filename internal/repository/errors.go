// Package repository implements raw-SQL data access for bookings and admin
// blocks.  Sentinel errors defined here let the service and handler layers
// distinguish failure scenarios without inspecting SQL error strings.
package repository

import "errors"

// ErrNotFound is returned when a row lookup matches nothing.  Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrInvalidRange is returned when a caller supplies a window whose end is
// not after its start.
var ErrInvalidRange = errors.New("end must be after start")
