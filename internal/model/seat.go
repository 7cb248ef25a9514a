package model

import "strconv"

// SeatType categorizes a seat and drives its price multiplier.
type SeatType string

const (
	SeatStandard   SeatType = "standard"
	SeatVIP        SeatType = "vip"
	SeatAccessible SeatType = "accessible"
)

// SeatsPerRow is the width of generated seat maps.
const SeatsPerRow = 10

// Seat describes one seat of an event.  Seats are uniquely identified by
// their event and seat number.
//
// Fields:
//  ID         – primary key identifier.
//  EventID    – event to which this seat belongs.
//  SeatNumber – row label plus position, e.g. "B7".
//  SeatType   – standard, vip or accessible.
//  Price      – price of this seat.
//  IsBooked   – ledger flag; true iff a non-cancelled booking references it.
type Seat struct {
	ID         uint64   `json:"seat_id"`
	EventID    uint64   `json:"event_id"`
	SeatNumber string   `json:"seat_number"`
	SeatType   SeatType `json:"seat_type"`
	Price      Money    `json:"price"`
	IsBooked   bool     `json:"is_booked"`
}

// PriceFor returns the price of a seat of type t for an event priced at
// base.  VIP seats cost half as much again.
func PriceFor(t SeatType, base Money) Money {
	if t == SeatVIP {
		return base.MulRatio(3, 2)
	}
	return base
}

// SeatNumberAt returns the seat number for the zero-based position i of a
// generated seat map: rows A, B, ... Z, AA, AB and SeatsPerRow seats each.
func SeatNumberAt(i int) string {
	return RowLabel(i/SeatsPerRow) + strconv.Itoa(i%SeatsPerRow+1)
}

// RowLabel converts a zero-based row index to an alphabetical label like
// A, B, AA.
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		res = append(res, rune('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// GenerateSeats builds the seat map for a new event: the first vip seats
// are VIP, the rest standard.  Numbering starts at position offset so that
// seats can be appended to an existing map.
func GenerateSeats(eventID uint64, offset, count, vip int, base Money) []Seat {
	seats := make([]Seat, 0, count)
	for i := 0; i < count; i++ {
		pos := offset + i
		t := SeatStandard
		if pos < vip {
			t = SeatVIP
		}
		seats = append(seats, Seat{
			EventID:    eventID,
			SeatNumber: SeatNumberAt(pos),
			SeatType:   t,
			Price:      PriceFor(t, base),
		})
	}
	return seats
}
