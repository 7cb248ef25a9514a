package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyJSON(t *testing.T) {
	var body struct {
		Amount Money `json:"total_amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"total_amount": 150.5}`), &body))
	assert.Equal(t, Money(15050), body.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"total_amount": "19.999"}`), &body))
	assert.Equal(t, Money(2000), body.Amount)

	assert.Error(t, json.Unmarshal([]byte(`{"total_amount": "abc"}`), &body))

	out, err := json.Marshal(struct {
		Price Money `json:"price"`
	}{Money(1205)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 12.05}`, string(out))
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "0.00", Money(0).String())
	assert.Equal(t, "-3.07", Money(-307).String())
	assert.Equal(t, 12.5, Money(1250).Float())
}

func TestPriceForVIP(t *testing.T) {
	assert.Equal(t, Money(1500), PriceFor(SeatVIP, 1000))
	assert.Equal(t, Money(1000), PriceFor(SeatStandard, 1000))
	assert.Equal(t, Money(1001), PriceFor(SeatVIP, 667))
}

func TestSeatNumbering(t *testing.T) {
	assert.Equal(t, "A1", SeatNumberAt(0))
	assert.Equal(t, "A10", SeatNumberAt(9))
	assert.Equal(t, "B1", SeatNumberAt(10))
	assert.Equal(t, "AA1", SeatNumberAt(260))

	seats := GenerateSeats(7, 0, 12, 3, 1000)
	require.Len(t, seats, 12)
	assert.Equal(t, SeatVIP, seats[2].SeatType)
	assert.Equal(t, SeatStandard, seats[3].SeatType)
	assert.Equal(t, "B2", seats[11].SeatNumber)
	assert.Equal(t, uint64(7), seats[11].EventID)

	more := GenerateSeats(7, 12, 2, 3, 1000)
	assert.Equal(t, "B3", more[0].SeatNumber)
}
