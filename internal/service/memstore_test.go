package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// memState is an in-memory copy of the tables a booking touches.
type memState struct {
	events      map[uint64]model.Event
	seats       map[uint64]model.Seat
	bookings    map[uint64]model.Booking
	bookedSeats map[uint64][]uint64
	payments    map[uint64]model.Payment
	nextID      uint64
}

func (s memState) clone() memState {
	c := memState{
		events:      make(map[uint64]model.Event, len(s.events)),
		seats:       make(map[uint64]model.Seat, len(s.seats)),
		bookings:    make(map[uint64]model.Booking, len(s.bookings)),
		bookedSeats: make(map[uint64][]uint64, len(s.bookedSeats)),
		payments:    make(map[uint64]model.Payment, len(s.payments)),
		nextID:      s.nextID,
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.seats {
		c.seats[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.bookedSeats {
		c.bookedSeats[k] = append([]uint64(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	return c
}

// memStore implements Transactor and BookingReader.  A failed callback
// restores the snapshot taken when the transaction began.
type memStore struct {
	mu sync.Mutex
	st memState

	// beforeReserve runs inside ReserveAvailability, standing in for a
	// concurrent writer that committed after our read.
	beforeReserve func(st *memState)
	failPayment   error
}

func newMemStore() *memStore {
	return &memStore{st: memState{
		events:      map[uint64]model.Event{},
		seats:       map[uint64]model.Seat{},
		bookings:    map[uint64]model.Booking{},
		bookedSeats: map[uint64][]uint64{},
		payments:    map[uint64]model.Payment{},
		nextID:      1000,
	}}
}

// addEvent creates an event with total seats priced at price and returns
// the seat ids in order.
func (m *memStore) addEvent(id uint64, total int, price model.Money) []uint64 {
	m.st.events[id] = model.Event{ID: id, Title: "event", TotalSeats: total, AvailableSeats: total, IsActive: true, Price: price}
	ids := make([]uint64, 0, total)
	for i, s := range model.GenerateSeats(id, 0, total, 0, price) {
		s.ID = id*100 + uint64(i) + 1
		m.st.seats[s.ID] = s
		ids = append(ids, s.ID)
	}
	return ids
}

func (m *memStore) event(id uint64) model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.events[id]
}

func (m *memStore) seat(id uint64) model.Seat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.seats[id]
}

func (m *memStore) payment(bookingID uint64) (model.Payment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.st.payments[bookingID]
	return p, ok
}

func (m *memStore) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.bookings)
}

func (m *memStore) WithinTx(ctx context.Context, fn func(repository.Ledger) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.st.clone()
	if err := fn(&memLedger{m: m}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (m *memStore) GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.st.bookings[id]
	if !ok {
		return nil, model.ErrBookingNotFound
	}
	d := &model.BookingDetail{Booking: b, EventTitle: m.st.events[b.EventID].Title, Seats: []model.BookedSeatInfo{}}
	for _, sid := range m.st.bookedSeats[id] {
		s := m.st.seats[sid]
		d.Seats = append(d.Seats, model.BookedSeatInfo{SeatID: s.ID, SeatNumber: s.SeatNumber, SeatType: s.SeatType, Price: s.Price})
	}
	if p, ok := m.st.payments[id]; ok {
		d.Payment = &p
	}
	return d, nil
}

type memLedger struct{ m *memStore }

func (l *memLedger) st() *memState { return &l.m.st }

func (l *memLedger) Event(_ context.Context, id uint64) (model.Event, error) {
	e, ok := l.st().events[id]
	if !ok {
		return e, model.ErrEventNotFound
	}
	return e, nil
}

func (l *memLedger) ReserveAvailability(_ context.Context, ev model.Event, n int) error {
	if l.m.beforeReserve != nil {
		l.m.beforeReserve(l.st())
	}
	cur := l.st().events[ev.ID]
	if cur.Version != ev.Version || cur.AvailableSeats < n {
		return model.ErrConcurrentUpdate
	}
	cur.AvailableSeats -= n
	cur.Version++
	l.st().events[ev.ID] = cur
	return nil
}

func (l *memLedger) ReleaseAvailability(_ context.Context, ev model.Event, n int) error {
	cur := l.st().events[ev.ID]
	if cur.Version != ev.Version || cur.AvailableSeats+n > cur.TotalSeats {
		return model.ErrConcurrentUpdate
	}
	cur.AvailableSeats += n
	cur.Version++
	l.st().events[ev.ID] = cur
	return nil
}

func (l *memLedger) Seats(_ context.Context, eventID uint64, ids []uint64) ([]model.Seat, error) {
	out := []model.Seat{}
	for _, id := range ids {
		if s, ok := l.st().seats[id]; ok && s.EventID == eventID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *memLedger) MarkSeatsBooked(_ context.Context, eventID uint64, ids []uint64) error {
	for _, id := range ids {
		s, ok := l.st().seats[id]
		if !ok || s.EventID != eventID || s.IsBooked {
			return model.ErrSeatUnavailable
		}
	}
	for _, id := range ids {
		s := l.st().seats[id]
		s.IsBooked = true
		l.st().seats[id] = s
	}
	return nil
}

func (l *memLedger) ReleaseSeats(_ context.Context, eventID uint64, ids []uint64) error {
	for _, id := range ids {
		if s, ok := l.st().seats[id]; ok && s.EventID == eventID {
			s.IsBooked = false
			l.st().seats[id] = s
		}
	}
	return nil
}

func (l *memLedger) Booking(_ context.Context, id uint64) (model.Booking, error) {
	b, ok := l.st().bookings[id]
	if !ok {
		return b, model.ErrBookingNotFound
	}
	return b, nil
}

func (l *memLedger) BookingSeatIDs(_ context.Context, bookingID uint64) ([]uint64, error) {
	return append([]uint64(nil), l.st().bookedSeats[bookingID]...), nil
}

func (l *memLedger) InsertBooking(_ context.Context, b *model.Booking, seatIDs []uint64) error {
	l.st().nextID++
	b.ID = l.st().nextID
	b.BookingDate = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.st().bookings[b.ID] = *b
	l.st().bookedSeats[b.ID] = append([]uint64(nil), seatIDs...)
	return nil
}

func (l *memLedger) SetBookingStatus(_ context.Context, id uint64, st model.BookingStatus) error {
	b := l.st().bookings[id]
	b.Status = st
	l.st().bookings[id] = b
	return nil
}

func (l *memLedger) HasPayment(_ context.Context, bookingID uint64) (bool, error) {
	_, ok := l.st().payments[bookingID]
	return ok, nil
}

func (l *memLedger) InsertPayment(_ context.Context, p *model.Payment) error {
	if l.m.failPayment != nil {
		return l.m.failPayment
	}
	if _, ok := l.st().payments[p.BookingID]; ok {
		return errors.New("duplicate payment")
	}
	l.st().nextID++
	p.ID = l.st().nextID
	l.st().payments[p.BookingID] = *p
	return nil
}

func (l *memLedger) DeletePayment(_ context.Context, bookingID uint64) error {
	delete(l.st().payments, bookingID)
	return nil
}

type seatCacheMock struct{ mock.Mock }

func (m *seatCacheMock) Invalidate(ctx context.Context, eventID uint64) error {
	return m.Called(ctx, eventID).Error(0)
}

type purgerMock struct{ mock.Mock }

func (m *purgerMock) Purge(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type publisherMock struct{ mock.Mock }

func (m *publisherMock) Publish(ctx context.Context, ev queue.BookingEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// checkLedger asserts the counter/ledger invariants for one event: seats
// held by non-cancelled bookings plus available equals total, and a seat
// is booked iff such a booking references it.
func checkLedger(m *memStore, eventID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := m.st.events[eventID]
	held := map[uint64]bool{}
	for id, b := range m.st.bookings {
		if b.EventID != eventID || !b.Status.HoldsSeats() {
			continue
		}
		for _, sid := range m.st.bookedSeats[id] {
			if held[sid] {
				return errors.New("seat held by two live bookings")
			}
			held[sid] = true
		}
		if _, ok := m.st.payments[id]; b.Status == model.BookingConfirmed && !ok {
			return errors.New("confirmed booking without payment")
		}
	}
	for id, b := range m.st.bookings {
		if _, ok := m.st.payments[id]; b.Status == model.BookingCancelled && ok {
			return errors.New("cancelled booking with payment")
		}
	}
	if len(held)+ev.AvailableSeats != ev.TotalSeats {
		return errors.New("held + available != total")
	}
	for id, s := range m.st.seats {
		if s.EventID == eventID && s.IsBooked != held[id] {
			return errors.New("seat flag disagrees with bookings")
		}
	}
	return nil
}
