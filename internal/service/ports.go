package service

import (
	"context"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// Transactor runs a function inside one store transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repository.Ledger) error) error
}

// BookingReader loads the joined view of a booking after commit.
type BookingReader interface {
	GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error)
}

// SeatCache drops cached seat maps.
type SeatCache interface {
	Invalidate(ctx context.Context, eventID uint64) error
}

// CataloguePurger drops cached catalogue responses, which embed
// available_seats.
type CataloguePurger interface {
	Purge(ctx context.Context) (int, error)
}

// EventPublisher announces booking changes to other services.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}
