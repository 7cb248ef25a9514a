// Package service holds the booking transaction: creating bookings and
// moving them between statuses while keeping the seat ledger and the event
// availability counter in step.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

const (
	notifyTimeout = 3 * time.Second
	// maxPaymentMethod is the width of payments.method.
	maxPaymentMethod = 32
)

// BookingService creates bookings and applies status transitions.  Each
// operation runs in a single transaction: the event row is read with its
// version, availability is changed only if that version still holds, and
// seats are flipped with a guarded update.  A lost race surfaces as
// model.ErrConcurrentUpdate or model.ErrSeatUnavailable and nothing is
// written; callers resubmit.
type BookingService struct {
	tx     Transactor
	reader BookingReader
	seats  SeatCache
	pages  CataloguePurger
	pub    EventPublisher
	log    zerolog.Logger

	now    func() time.Time
	newRef func() string
}

// NewBookingService wires the service.  seats, pages and pub may be nil.
func NewBookingService(tx Transactor, reader BookingReader, seats SeatCache, pages CataloguePurger, pub EventPublisher, logger zerolog.Logger) *BookingService {
	return &BookingService{
		tx:     tx,
		reader: reader,
		seats:  seats,
		pages:  pages,
		pub:    pub,
		log:    logger.With().Str("component", "booking").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
		newRef: uuid.NewString,
	}
}

// CreateBookingInput is a request to book seats of one event.
type CreateBookingInput struct {
	UserID        uint64
	EventID       uint64
	SeatIDs       []uint64
	TotalAmount   model.Money
	PaymentMethod string
}

func (in CreateBookingInput) validate() error {
	if in.EventID == 0 {
		return fmt.Errorf("%w: event_id is required", model.ErrValidation)
	}
	if len(in.SeatIDs) == 0 {
		return fmt.Errorf("%w: at least one seat is required", model.ErrValidation)
	}
	seen := make(map[uint64]bool, len(in.SeatIDs))
	for _, id := range in.SeatIDs {
		if id == 0 {
			return fmt.Errorf("%w: seat ids must be positive", model.ErrValidation)
		}
		if seen[id] {
			return fmt.Errorf("%w: seat %d listed twice", model.ErrValidation, id)
		}
		seen[id] = true
	}
	if in.TotalAmount < 0 {
		return fmt.Errorf("%w: total_amount must not be negative", model.ErrValidation)
	}
	if len(in.PaymentMethod) > maxPaymentMethod {
		return fmt.Errorf("%w: payment_method must be at most %d characters", model.ErrValidation, maxPaymentMethod)
	}
	return nil
}

// Create books in.SeatIDs for in.UserID.  The booking is stored confirmed
// with a payment row.  A zero TotalAmount is replaced by the sum of the
// seat prices.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*model.BookingDetail, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	n := len(in.SeatIDs)

	var (
		ev      model.Event
		booking model.Booking
	)
	err := s.tx.WithinTx(ctx, func(l repository.Ledger) error {
		var err error
		ev, err = l.Event(ctx, in.EventID)
		if err != nil {
			return err
		}
		if !ev.IsActive {
			return model.ErrEventInactive
		}
		if !ev.CanReserve(n) {
			return fmt.Errorf("%w: requested %d, available %d", model.ErrInsufficientSeats, n, ev.AvailableSeats)
		}
		seats, err := l.Seats(ctx, ev.ID, in.SeatIDs)
		if err != nil {
			return err
		}
		if len(seats) != n {
			return fmt.Errorf("%w: %d of %d seats belong to event %d", model.ErrSeatUnavailable, len(seats), n, ev.ID)
		}
		if err := l.ReserveAvailability(ctx, ev, n); err != nil {
			return err
		}
		if err := l.MarkSeatsBooked(ctx, ev.ID, in.SeatIDs); err != nil {
			return err
		}

		total := in.TotalAmount
		if total == 0 {
			for _, seat := range seats {
				total += seat.Price
			}
		}
		booking = model.Booking{
			EventID:     ev.ID,
			UserID:      in.UserID,
			TotalAmount: total,
			Status:      model.BookingConfirmed,
		}
		if err := l.InsertBooking(ctx, &booking, in.SeatIDs); err != nil {
			return err
		}
		return l.InsertPayment(ctx, &model.Payment{
			BookingID:      booking.ID,
			Amount:         total,
			Method:         in.PaymentMethod,
			TransactionRef: s.newRef(),
			Status:         model.PaymentCompleted,
		})
	})
	if err != nil {
		return nil, wrapStoreErr("create booking", err)
	}

	s.log.Info().Uint64("booking_id", booking.ID).Uint64("event_id", ev.ID).
		Uint64("user_id", in.UserID).Int("seats", n).Msg("booking created")
	s.afterCommit(ctx, ev, booking, in.SeatIDs)
	return s.detail(ctx, booking), nil
}

// UpdateStatus moves a booking to status to and reconciles seats,
// availability and payment in the same transaction.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID uint64, to model.BookingStatus) (*model.BookingDetail, error) {
	return s.transition(ctx, bookingID, to, 0)
}

// CancelByUser cancels a booking on behalf of its owner.  Other users get
// repository.ErrForbidden.
func (s *BookingService) CancelByUser(ctx context.Context, bookingID, userID uint64) (*model.BookingDetail, error) {
	return s.transition(ctx, bookingID, model.BookingCancelled, userID)
}

// transition applies a status change; a non-zero owner restricts it to
// bookings of that user.
func (s *BookingService) transition(ctx context.Context, bookingID uint64, to model.BookingStatus, owner uint64) (*model.BookingDetail, error) {
	if _, err := model.ParseBookingStatus(string(to)); err != nil {
		return nil, err
	}

	var (
		ev      model.Event
		booking model.Booking
		seatIDs []uint64
		changed bool
	)
	err := s.tx.WithinTx(ctx, func(l repository.Ledger) error {
		var err error
		booking, err = l.Booking(ctx, bookingID)
		if err != nil {
			return err
		}
		if owner != 0 && booking.UserID != owner {
			return repository.ErrForbidden
		}
		eff, err := model.Transition(booking.Status, to)
		if err != nil {
			return err
		}
		ev, err = l.Event(ctx, booking.EventID)
		if err != nil {
			return err
		}
		seatIDs, err = l.BookingSeatIDs(ctx, booking.ID)
		if err != nil {
			return err
		}
		n := len(seatIDs)

		switch eff.Seats {
		case model.SeatsRelease:
			if !ev.CanRelease(n) {
				return fmt.Errorf("%w: available %d + %d > total %d",
					model.ErrAvailabilityOverflow, ev.AvailableSeats, n, ev.TotalSeats)
			}
			if n > 0 {
				if err := l.ReleaseSeats(ctx, ev.ID, seatIDs); err != nil {
					return err
				}
				if err := l.ReleaseAvailability(ctx, ev, n); err != nil {
					return err
				}
			}
		case model.SeatsReserve:
			if n > 0 {
				if !ev.CanReserve(n) {
					return fmt.Errorf("%w: booking needs %d, available %d",
						model.ErrInsufficientSeats, n, ev.AvailableSeats)
				}
				if err := l.MarkSeatsBooked(ctx, ev.ID, seatIDs); err != nil {
					return err
				}
				if err := l.ReserveAvailability(ctx, ev, n); err != nil {
					return err
				}
			}
		}

		if eff.DropPayment {
			if err := l.DeletePayment(ctx, booking.ID); err != nil {
				return err
			}
		}
		if eff.EnsurePayment {
			has, err := l.HasPayment(ctx, booking.ID)
			if err != nil {
				return err
			}
			if !has {
				if err := l.InsertPayment(ctx, &model.Payment{
					BookingID:      booking.ID,
					Amount:         booking.TotalAmount,
					TransactionRef: s.newRef(),
					Status:         model.PaymentCompleted,
				}); err != nil {
					return err
				}
			}
		}

		if booking.Status != to {
			if err := l.SetBookingStatus(ctx, booking.ID, to); err != nil {
				return err
			}
			booking.Status = to
			changed = true
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("update booking status", err)
	}

	if changed {
		s.log.Info().Uint64("booking_id", booking.ID).Uint64("event_id", ev.ID).
			Str("status", string(to)).Msg("booking status changed")
		s.afterCommit(ctx, ev, booking, seatIDs)
	}
	return s.detail(ctx, booking), nil
}

// afterCommit drops the cached seat map and catalogue pages and announces
// the change.  All of it is best effort: the booking is already committed.
func (s *BookingService) afterCommit(ctx context.Context, ev model.Event, b model.Booking, seatIDs []uint64) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if s.seats != nil {
		if err := s.seats.Invalidate(bg, ev.ID); err != nil {
			s.log.Warn().Err(err).Uint64("event_id", ev.ID).Msg("seat cache invalidation failed")
		}
	}
	if s.pages != nil {
		if _, err := s.pages.Purge(bg); err != nil {
			s.log.Warn().Err(err).Uint64("event_id", ev.ID).Msg("catalogue cache purge failed")
		}
	}
	if s.pub != nil {
		msg := queue.BookingEvent{
			Type:        queue.TypeFor(b.Status),
			BookingID:   b.ID,
			UserID:      b.UserID,
			EventID:     ev.ID,
			EventTitle:  ev.Title,
			Status:      b.Status,
			SeatIDs:     seatIDs,
			TotalAmount: b.TotalAmount,
			OccurredAt:  s.now(),
		}
		if err := s.pub.Publish(bg, msg); err != nil {
			s.log.Warn().Err(err).Uint64("booking_id", b.ID).Msg("booking event publish failed")
		}
	}
}

// detail reloads the joined booking view; if that read fails the bare
// booking is returned since the write already succeeded.
func (s *BookingService) detail(ctx context.Context, b model.Booking) *model.BookingDetail {
	if s.reader != nil {
		d, err := s.reader.GetDetail(ctx, b.ID)
		if err == nil {
			return d
		}
		s.log.Warn().Err(err).Uint64("booking_id", b.ID).Msg("reload booking failed")
	}
	return &model.BookingDetail{Booking: b, Seats: []model.BookedSeatInfo{}}
}

// domainErrors pass through unchanged so handlers can map them.
var domainErrors = []error{
	model.ErrValidation, model.ErrInvalidStatus, model.ErrInvalidTransition,
	model.ErrEventNotFound, model.ErrBookingNotFound, model.ErrEventInactive,
	model.ErrInsufficientSeats, model.ErrSeatUnavailable, model.ErrAvailabilityOverflow,
	model.ErrConcurrentUpdate, repository.ErrForbidden,
}

func wrapStoreErr(op string, err error) error {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrOperationFailed, err)
}
