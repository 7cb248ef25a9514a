package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

func sampleEvent() BookingEvent {
	return BookingEvent{
		Type:        TypeBookingConfirmed,
		BookingID:   12,
		UserID:      3,
		EventID:     7,
		EventTitle:  "Jazz Night",
		Status:      model.BookingConfirmed,
		SeatIDs:     []uint64{21, 22},
		TotalAmount: 4500,
		OccurredAt:  time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC),
	}
}

func TestAuditLine(t *testing.T) {
	line := AuditLine(sampleEvent())
	assert.Equal(t,
		"[2026-03-01T18:30:00Z] booking.confirmed | booking_id=12 | user_id=3 | event_id=7 | event=\"Jazz Night\" | status=confirmed | total=45.00 | seats=[21,22]\n",
		line)
}

func TestTypeFor(t *testing.T) {
	assert.Equal(t, TypeBookingConfirmed, TypeFor(model.BookingConfirmed))
	assert.Equal(t, TypeBookingCancelled, TypeFor(model.BookingCancelled))
	assert.Equal(t, TypeBookingPending, TypeFor(model.BookingPending))
}

func TestConsumerHandleAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "booking.log")
	c := NewConsumer("amqp://unused", "booking.events", path, zerolog.Nop())

	body, err := json.Marshal(sampleEvent())
	require.NoError(t, err)
	require.NoError(t, c.Handle(body))
	require.NoError(t, c.Handle(body))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "booking_id=12"))
}

func TestConsumerHandleRejectsBadMessages(t *testing.T) {
	c := NewConsumer("amqp://unused", "q", filepath.Join(t.TempDir(), "a.log"), zerolog.Nop())
	assert.Error(t, c.Handle([]byte("{not json")))
	assert.Error(t, c.Handle([]byte(`{"type":"booking.confirmed"}`)))
}

func TestPublisherReportsDialErrors(t *testing.T) {
	p := NewPublisher("http://not-amqp", "q")
	err := p.Publish(context.Background(), sampleEvent())
	assert.Error(t, err)
	assert.NoError(t, p.Close())

	var nilPub *Publisher
	assert.Error(t, nilPub.Publish(context.Background(), sampleEvent()))
}

func TestConsumerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConsumer("http://not-amqp", "q", filepath.Join(t.TempDir(), "a.log"), zerolog.Nop())
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
}
