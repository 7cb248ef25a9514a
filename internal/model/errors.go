package model

import "errors"

// Domain errors shared by the repository, service and handler layers.
// Handlers map them to HTTP statuses with errors.Is.
var (
	ErrEventNotFound    = errors.New("event not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrCategoryNotFound = errors.New("category not found")

	ErrEventInactive        = errors.New("event is not active")
	ErrInsufficientSeats    = errors.New("not enough available seats")
	ErrSeatUnavailable      = errors.New("one or more seats are not available")
	ErrAvailabilityOverflow = errors.New("available seats would exceed total seats")
	ErrConcurrentUpdate     = errors.New("event was modified concurrently, retry")

	ErrInvalidStatus     = errors.New("invalid booking status")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrValidation        = errors.New("validation failed")

	// ErrOperationFailed marks a store failure inside a booking
	// transaction.  The underlying cause is attached to the message.
	ErrOperationFailed = errors.New("operation failed")
)
