// Package queue carries booking lifecycle messages over RabbitMQ: a
// publisher used by the booking service after commit and a consumer that
// appends an audit trail to a log file.
package queue

import (
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// Message types published on the booking queue.
const (
	TypeBookingConfirmed = "booking.confirmed"
	TypeBookingPending   = "booking.pending"
	TypeBookingCancelled = "booking.cancelled"
)

// TypeFor maps a booking status to the message type announcing it.
func TypeFor(st model.BookingStatus) string {
	switch st {
	case model.BookingConfirmed:
		return TypeBookingConfirmed
	case model.BookingCancelled:
		return TypeBookingCancelled
	default:
		return TypeBookingPending
	}
}

// BookingEvent is published after a booking is created or changes status.
// It contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type BookingEvent struct {
	Type        string              `json:"type"`
	BookingID   uint64              `json:"booking_id"`
	UserID      uint64              `json:"user_id"`
	EventID     uint64              `json:"event_id"`
	EventTitle  string              `json:"event_title"`
	Status      model.BookingStatus `json:"status"`
	SeatIDs     []uint64            `json:"seat_ids"`
	TotalAmount model.Money         `json:"total_amount"`
	OccurredAt  time.Time           `json:"occurred_at"`
}
