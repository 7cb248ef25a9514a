package model

import (
	"fmt"
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking.  The set is closed:
// values only enter the program through ParseBookingStatus or from the
// bookings.status ENUM column.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// ParseBookingStatus validates a client-supplied status string.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case BookingPending, BookingConfirmed, BookingCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// HoldsSeats reports whether a booking in this state owns its seats in the
// seat ledger.
func (s BookingStatus) HoldsSeats() bool { return s == BookingPending || s == BookingConfirmed }

// SeatAction is what a status transition does to the seat ledger and the
// event availability counter.
type SeatAction int

const (
	SeatsUnchanged SeatAction = iota // no ledger change
	SeatsRelease                     // is_booked=false, available += n
	SeatsReserve                     // is_booked=true,  available -= n
)

// TransitionEffect describes the bookkeeping a status change requires.
type TransitionEffect struct {
	Seats         SeatAction
	EnsurePayment bool // a confirmed booking always has a payment row
	DropPayment   bool // a cancelled booking never has one
}

// Transition resolves a status change against the allow-list.  Every pair of
// known states is listed; unknown states are rejected before any store
// access happens.
func Transition(from, to BookingStatus) (TransitionEffect, error) {
	switch from {
	case BookingPending:
		switch to {
		case BookingPending:
			return TransitionEffect{}, nil
		case BookingConfirmed:
			return TransitionEffect{EnsurePayment: true}, nil
		case BookingCancelled:
			return TransitionEffect{Seats: SeatsRelease, DropPayment: true}, nil
		}
	case BookingConfirmed:
		switch to {
		case BookingPending:
			return TransitionEffect{}, nil
		case BookingConfirmed:
			return TransitionEffect{EnsurePayment: true}, nil
		case BookingCancelled:
			return TransitionEffect{Seats: SeatsRelease, DropPayment: true}, nil
		}
	case BookingCancelled:
		switch to {
		case BookingPending:
			return TransitionEffect{Seats: SeatsReserve}, nil
		case BookingConfirmed:
			return TransitionEffect{Seats: SeatsReserve, EnsurePayment: true}, nil
		case BookingCancelled:
			return TransitionEffect{}, nil
		}
	}
	return TransitionEffect{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Booking mirrors a row of the bookings table.
//
// Fields:
//  ID          – primary key identifier.
//  EventID     – event the seats belong to.
//  UserID      – user who made the booking.
//  TotalAmount – amount charged for all seats.
//  Status      – pending, confirmed or cancelled.
//  BookingDate – creation timestamp.
type Booking struct {
	ID          uint64        `json:"id"`
	EventID     uint64        `json:"event_id"`
	UserID      uint64        `json:"user_id"`
	TotalAmount Money         `json:"total_amount"`
	Status      BookingStatus `json:"status"`
	BookingDate time.Time     `json:"booking_date"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// BookedSeatInfo is a seat as shown inside a booking.
type BookedSeatInfo struct {
	SeatID     uint64   `json:"seat_id"`
	SeatNumber string   `json:"seat_number"`
	SeatType   SeatType `json:"seat_type"`
	Price      Money    `json:"price"`
}

// BookingDetail is a booking joined with its event, user and seats, as
// returned by the booking and admin endpoints.
type BookingDetail struct {
	Booking
	EventTitle string           `json:"event_title"`
	EventDate  time.Time        `json:"event_date"`
	UserName   string           `json:"user_name"`
	UserEmail  string           `json:"user_email"`
	Seats      []BookedSeatInfo `json:"seats"`
	Payment    *Payment         `json:"payment,omitempty"`
}
