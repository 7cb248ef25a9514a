package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBookingStatus(t *testing.T) {
	for _, in := range []string{"pending", "confirmed", "cancelled", " Confirmed "} {
		st, err := ParseBookingStatus(in)
		require.NoError(t, err, in)
		assert.True(t, st == BookingPending || st == BookingConfirmed || st == BookingCancelled)
	}
	for _, in := range []string{"", "refunded", "canceled", "CONFIRMEDX"} {
		_, err := ParseBookingStatus(in)
		assert.ErrorIs(t, err, ErrInvalidStatus, in)
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		want     TransitionEffect
	}{
		{BookingPending, BookingPending, TransitionEffect{}},
		{BookingPending, BookingConfirmed, TransitionEffect{EnsurePayment: true}},
		{BookingPending, BookingCancelled, TransitionEffect{Seats: SeatsRelease, DropPayment: true}},
		{BookingConfirmed, BookingPending, TransitionEffect{}},
		{BookingConfirmed, BookingConfirmed, TransitionEffect{EnsurePayment: true}},
		{BookingConfirmed, BookingCancelled, TransitionEffect{Seats: SeatsRelease, DropPayment: true}},
		{BookingCancelled, BookingPending, TransitionEffect{Seats: SeatsReserve}},
		{BookingCancelled, BookingConfirmed, TransitionEffect{Seats: SeatsReserve, EnsurePayment: true}},
		{BookingCancelled, BookingCancelled, TransitionEffect{}},
	}
	for _, c := range cases {
		got, err := Transition(c.from, c.to)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s -> %s", c.from, c.to)
	}
}

func TestTransitionRejectsUnknownStates(t *testing.T) {
	_, err := Transition("refunded", BookingConfirmed)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	_, err = Transition(BookingConfirmed, "")
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

// Seats are held exactly when the target state holds seats and the source
// did not, and released in the opposite case.
func TestTransitionAgreesWithHoldsSeats(t *testing.T) {
	all := []BookingStatus{BookingPending, BookingConfirmed, BookingCancelled}
	for _, from := range all {
		for _, to := range all {
			eff, err := Transition(from, to)
			require.NoError(t, err)
			switch {
			case from.HoldsSeats() && !to.HoldsSeats():
				assert.Equal(t, SeatsRelease, eff.Seats)
			case !from.HoldsSeats() && to.HoldsSeats():
				assert.Equal(t, SeatsReserve, eff.Seats)
			default:
				assert.Equal(t, SeatsUnchanged, eff.Seats)
			}
			assert.Equal(t, to == BookingConfirmed, eff.EnsurePayment)
			assert.Equal(t, to == BookingCancelled && from != BookingCancelled, eff.DropPayment)
		}
	}
}

func TestEventCounterGuards(t *testing.T) {
	ev := Event{TotalSeats: 50, AvailableSeats: 48}
	assert.True(t, ev.CanReserve(48))
	assert.False(t, ev.CanReserve(49))
	assert.False(t, ev.CanReserve(0))
	assert.True(t, ev.CanRelease(2))
	assert.False(t, ev.CanRelease(3))
	assert.Equal(t, 2, ev.BookedSeats())
}
