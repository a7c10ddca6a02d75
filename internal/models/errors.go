package models

import "errors"

// Domain errors shared across the inventory, booking and check-in services.
// None of these are fatal; handlers map them to bounded responses and the
// scanner or buyer flow stays ready for the next action.
var (
	ErrMalformedLayout       = errors.New("seating layout is malformed")
	ErrSeatNoLongerAvailable = errors.New("seat is no longer available")
	ErrNotFound              = errors.New("booking not found")
	ErrPaymentIncomplete     = errors.New("booking payment incomplete")
	ErrStoreUnavailable      = errors.New("store unavailable")
)
