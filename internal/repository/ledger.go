package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// Ledger is the set of store operations a booking transaction may
// perform.  Every method runs inside the transaction opened by
// TxStore.WithinTx; nothing is visible to other connections until the
// callback returns nil.
type Ledger interface {
	Event(ctx context.Context, id uint64) (model.Event, error)
	ReserveAvailability(ctx context.Context, ev model.Event, n int) error
	ReleaseAvailability(ctx context.Context, ev model.Event, n int) error

	Seats(ctx context.Context, eventID uint64, ids []uint64) ([]model.Seat, error)
	MarkSeatsBooked(ctx context.Context, eventID uint64, ids []uint64) error
	ReleaseSeats(ctx context.Context, eventID uint64, ids []uint64) error

	Booking(ctx context.Context, id uint64) (model.Booking, error)
	BookingSeatIDs(ctx context.Context, bookingID uint64) ([]uint64, error)
	InsertBooking(ctx context.Context, b *model.Booking, seatIDs []uint64) error
	SetBookingStatus(ctx context.Context, id uint64, st model.BookingStatus) error

	HasPayment(ctx context.Context, bookingID uint64) (bool, error)
	InsertPayment(ctx context.Context, p *model.Payment) error
	DeletePayment(ctx context.Context, bookingID uint64) error
}

// TxStore opens transactions over the event, seat, booking and payment
// tables and hands them to callers as a Ledger.
type TxStore struct {
	db       *sql.DB
	events   *EventRepo
	seats    *SeatRepo
	bookings *BookingRepo
	payments *PaymentRepo
}

// NewTxStore wires the repositories that share a transaction.
func NewTxStore(db *sql.DB) *TxStore {
	return &TxStore{
		db:       db,
		events:   NewEventRepo(db),
		seats:    NewSeatRepo(db),
		bookings: NewBookingRepo(db),
		payments: NewPaymentRepo(db),
	}
}

// WithinTx runs fn in a fresh transaction.  A nil return commits; any
// error (or panic) rolls everything back.
func (s *TxStore) WithinTx(ctx context.Context, fn func(Ledger) error) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&sqlLedger{tx: tx, s: s})
	})
}

type sqlLedger struct {
	tx *sql.Tx
	s  *TxStore
}

func (l *sqlLedger) Event(ctx context.Context, id uint64) (model.Event, error) {
	return l.s.events.GetTx(ctx, l.tx, id)
}

func (l *sqlLedger) ReserveAvailability(ctx context.Context, ev model.Event, n int) error {
	return l.s.events.ReserveTx(ctx, l.tx, ev, n)
}

func (l *sqlLedger) ReleaseAvailability(ctx context.Context, ev model.Event, n int) error {
	return l.s.events.ReleaseTx(ctx, l.tx, ev, n)
}

func (l *sqlLedger) Seats(ctx context.Context, eventID uint64, ids []uint64) ([]model.Seat, error) {
	return l.s.seats.ByIDsTx(ctx, l.tx, eventID, ids)
}

func (l *sqlLedger) MarkSeatsBooked(ctx context.Context, eventID uint64, ids []uint64) error {
	return l.s.seats.MarkBookedTx(ctx, l.tx, eventID, ids)
}

func (l *sqlLedger) ReleaseSeats(ctx context.Context, eventID uint64, ids []uint64) error {
	return l.s.seats.ReleaseTx(ctx, l.tx, eventID, ids)
}

func (l *sqlLedger) Booking(ctx context.Context, id uint64) (model.Booking, error) {
	return l.s.bookings.GetTx(ctx, l.tx, id)
}

func (l *sqlLedger) BookingSeatIDs(ctx context.Context, bookingID uint64) ([]uint64, error) {
	return l.s.bookings.SeatIDsTx(ctx, l.tx, bookingID)
}

func (l *sqlLedger) InsertBooking(ctx context.Context, b *model.Booking, seatIDs []uint64) error {
	if err := l.s.bookings.CreateTx(ctx, l.tx, b); err != nil {
		return err
	}
	return l.s.bookings.AddSeatsTx(ctx, l.tx, b.ID, seatIDs)
}

func (l *sqlLedger) SetBookingStatus(ctx context.Context, id uint64, st model.BookingStatus) error {
	return l.s.bookings.SetStatusTx(ctx, l.tx, id, st)
}

func (l *sqlLedger) HasPayment(ctx context.Context, bookingID uint64) (bool, error) {
	return l.s.payments.ExistsTx(ctx, l.tx, bookingID)
}

func (l *sqlLedger) InsertPayment(ctx context.Context, p *model.Payment) error {
	return l.s.payments.CreateTx(ctx, l.tx, p)
}

func (l *sqlLedger) DeletePayment(ctx context.Context, bookingID uint64) error {
	return l.s.payments.DeleteByBookingTx(ctx, l.tx, bookingID)
}
