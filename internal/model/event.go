package model

import "time"

// Event is a bookable happening with a fixed seat inventory.
//
// AvailableSeats is a denormalized counter of unbooked seats.  It is only
// changed together with the seat ledger inside one transaction, and every
// change bumps Version so that concurrent writers detect each other.
type Event struct {
	ID             uint64    `json:"id"`
	OrganizerID    uint64    `json:"organizer_id"`
	CategoryID     *uint64   `json:"category_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	EventDate      time.Time `json:"event_date"`
	Price          Money     `json:"price"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	IsActive       bool      `json:"is_active"`
	Version        uint64    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EventSummary is an event joined with its organizer and category names.
type EventSummary struct {
	Event
	OrganizerName string  `json:"organizer_name"`
	CategoryName  *string `json:"category_name"`
}

// BookedSeats returns the number of seats currently held by non-cancelled
// bookings according to the counter.
func (e Event) BookedSeats() int { return e.TotalSeats - e.AvailableSeats }

// CanReserve reports whether n more seats fit under the counter.
func (e Event) CanReserve(n int) bool { return n > 0 && e.AvailableSeats >= n }

// CanRelease reports whether returning n seats keeps the counter within
// total_seats.
func (e Event) CanRelease(n int) bool { return n >= 0 && e.AvailableSeats+n <= e.TotalSeats }
