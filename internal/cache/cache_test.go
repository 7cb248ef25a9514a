package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

func TestSeatMapsRoundTrip(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	sm := NewSeatMaps(rdb, time.Minute)
	ctx := context.Background()

	seats := []model.Seat{{ID: 1, EventID: 9, SeatNumber: "A1", SeatType: model.SeatVIP, Price: 1500}}
	bs, err := json.Marshal(seats)
	require.NoError(t, err)

	mock.ExpectSet("seats:9", bs, time.Minute).SetVal("OK")
	require.NoError(t, sm.Set(ctx, 9, seats))

	mock.ExpectGet("seats:9").SetVal(string(bs))
	got, ok := sm.Get(ctx, 9)
	require.True(t, ok)
	assert.Equal(t, seats, got)

	mock.ExpectDel("seats:9").SetVal(1)
	require.NoError(t, sm.Invalidate(ctx, 9))

	mock.ExpectGet("seats:9").RedisNil()
	_, ok = sm.Get(ctx, 9)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatMapsInvalidateError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	sm := NewSeatMaps(rdb, 0)
	mock.ExpectDel("seats:3").SetErr(errors.New("connection refused"))
	assert.Error(t, sm.Invalidate(context.Background(), 3))
}

func TestNilCachesAreNoops(t *testing.T) {
	var sm *SeatMaps = NewSeatMaps(nil, time.Minute)
	assert.Nil(t, sm)
	_, ok := sm.Get(context.Background(), 1)
	assert.False(t, ok)
	assert.NoError(t, sm.Set(context.Background(), 1, nil))
	assert.NoError(t, sm.Invalidate(context.Background(), 1))

	var r *Responses = NewResponses(nil, "cache")
	n, err := r.Purge(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestResponsesPurgeScansAllPages(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	r := NewResponses(rdb, "cache")

	mock.ExpectScan(0, "cache:*", 200).SetVal([]string{"cache:a", "cache:b"}, 17)
	mock.ExpectDel("cache:a", "cache:b").SetVal(2)
	mock.ExpectScan(17, "cache:*", 200).SetVal([]string{"cache:c"}, 0)
	mock.ExpectDel("cache:c").SetVal(1)

	n, err := r.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
