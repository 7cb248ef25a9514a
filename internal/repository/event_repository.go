package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// EventRepo manages events together with their seat maps.  Operations
// that touch both tables run in one transaction.
type EventRepo struct {
	db    *sql.DB
	seats *SeatRepo
}

// NewEventRepo returns an EventRepo bound to db.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db, seats: NewSeatRepo(db)}
}

// DB exposes the underlying pool for callers that need their own
// transaction.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `e.id, e.organizer_id, e.category_id, e.title, e.description, e.location,
	e.event_date, e.price_cents, e.total_seats, e.available_seats, e.is_active, e.version,
	e.created_at, e.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner, extra ...any) (model.Event, error) {
	var (
		e    model.Event
		cat  sql.NullInt64
		desc sql.NullString
	)
	dest := []any{&e.ID, &e.OrganizerID, &cat, &e.Title, &desc, &e.Location,
		&e.EventDate, &e.Price, &e.TotalSeats, &e.AvailableSeats, &e.IsActive, &e.Version,
		&e.CreatedAt, &e.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return e, err
	}
	if cat.Valid {
		id := uint64(cat.Int64)
		e.CategoryID = &id
	}
	e.Description = desc.String
	return e, nil
}

const summarySelect = `SELECT ` + eventColumns + `, COALESCE(u.name, ''), c.name
	FROM events e
	LEFT JOIN users u ON u.id = e.organizer_id
	LEFT JOIN categories c ON c.id = e.category_id`

func scanSummaries(rows *sql.Rows) ([]model.EventSummary, error) {
	defer rows.Close()
	out := []model.EventSummary{}
	for rows.Next() {
		var (
			s   model.EventSummary
			cat sql.NullString
			err error
		)
		s.Event, err = scanEvent(rows, &s.OrganizerName, &cat)
		if err != nil {
			return nil, err
		}
		s.CategoryName = stringPtr(cat)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *EventRepo) get(ctx context.Context, q DBTX, id uint64) (model.Event, error) {
	e, err := scanEvent(q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return e, model.ErrEventNotFound
	}
	return e, err
}

// GetTx loads an event inside tx.  The returned Version is the token the
// availability updates check against.
func (r *EventRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Event, error) {
	return r.get(ctx, tx, id)
}

// GetByID returns an event with organizer and category names.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.EventSummary, error) {
	rows, err := r.db.QueryContext(ctx, summarySelect+` WHERE e.id = ?`, id)
	if err != nil {
		return nil, err
	}
	list, err := scanSummaries(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, model.ErrEventNotFound
	}
	return &list[0], nil
}

// ListByOrganizer returns the events owned by an organizer, newest first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.EventSummary, error) {
	rows, err := r.db.QueryContext(ctx, summarySelect+` WHERE e.organizer_id = ? ORDER BY e.created_at DESC`, organizerID)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

// ListAll returns every event, newest first.
func (r *EventRepo) ListAll(ctx context.Context) ([]model.EventSummary, error) {
	rows, err := r.db.QueryContext(ctx, summarySelect+` ORDER BY e.created_at DESC`)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

// ReserveTx takes n seats off the availability counter.  The update only
// applies when the row still carries ev.Version and enough seats remain;
// otherwise another writer got there first and model.ErrConcurrentUpdate
// is returned.
func (r *EventRepo) ReserveTx(ctx context.Context, tx *sql.Tx, ev model.Event, n int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE events SET available_seats = available_seats - ?, version = version + 1
		 WHERE id = ? AND version = ? AND available_seats >= ?`,
		n, ev.ID, ev.Version, n)
	return checkVersioned(res, err)
}

// ReleaseTx returns n seats to the availability counter under the same
// version check, never letting it exceed total_seats.
func (r *EventRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, ev model.Event, n int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE events SET available_seats = available_seats + ?, version = version + 1
		 WHERE id = ? AND version = ? AND available_seats + ? <= total_seats`,
		n, ev.ID, ev.Version, n)
	return checkVersioned(res, err)
}

func checkVersioned(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrConcurrentUpdate
	}
	return nil
}

// CreateWithSeats inserts an event and generates its seat map.  The
// first vip seats are VIP-priced.  ID and timestamps are populated on ev.
func (r *EventRepo) CreateWithSeats(ctx context.Context, ev *model.Event, vip int) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO events (organizer_id, category_id, title, description, location, event_date,
			 price_cents, total_seats, available_seats, is_active)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.OrganizerID, ev.CategoryID, ev.Title, ev.Description, ev.Location, ev.EventDate.UTC(),
			ev.Price, ev.TotalSeats, ev.TotalSeats, ev.IsActive)
		if isMissingParent(err) {
			return model.ErrCategoryNotFound
		}
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		seats := model.GenerateSeats(uint64(id), 0, ev.TotalSeats, vip, ev.Price)
		if err := r.seats.CreateBulkTx(ctx, tx, seats); err != nil {
			return fmt.Errorf("generate seats: %w", err)
		}
		fresh, err := r.get(ctx, tx, uint64(id))
		if err != nil {
			return err
		}
		*ev = fresh
		return nil
	})
}

// EventPatch carries the fields an organizer may change.  Nil fields are
// left untouched.
type EventPatch struct {
	CategoryID  *uint64
	Title       *string
	Description *string
	Location    *string
	EventDate   *time.Time
	Price       *model.Money
	TotalSeats  *int
	IsActive    *bool
}

// Update applies p to an event owned by actorID (any event when asAdmin).
// Growing total_seats appends standard seats, shrinking removes free
// seats, and available_seats moves by the same delta.  The write is
// version-checked against the state read at the start of the transaction.
func (r *EventRepo) Update(ctx context.Context, id, actorID uint64, asAdmin bool, p EventPatch) (*model.Event, error) {
	var out model.Event
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		ev, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if !asAdmin && ev.OrganizerID != actorID {
			return ErrForbidden
		}
		next := ev
		if p.CategoryID != nil {
			next.CategoryID = p.CategoryID
		}
		if p.Title != nil {
			next.Title = strings.TrimSpace(*p.Title)
		}
		if p.Description != nil {
			next.Description = *p.Description
		}
		if p.Location != nil {
			next.Location = strings.TrimSpace(*p.Location)
		}
		if p.EventDate != nil {
			next.EventDate = p.EventDate.UTC()
		}
		if p.Price != nil {
			next.Price = *p.Price
		}
		if p.IsActive != nil {
			next.IsActive = *p.IsActive
		}
		if p.TotalSeats != nil {
			if *p.TotalSeats < ev.BookedSeats() {
				return fmt.Errorf("%w: total_seats cannot be below the %d seats already booked",
					model.ErrValidation, ev.BookedSeats())
			}
			delta := *p.TotalSeats - ev.TotalSeats
			switch {
			case delta > 0:
				taken, err := r.seats.NumbersTx(ctx, tx, id)
				if err != nil {
					return err
				}
				seats := make([]model.Seat, 0, delta)
				for _, n := range freeSeatNumbers(taken, delta) {
					seats = append(seats, model.Seat{EventID: id, SeatNumber: n,
						SeatType: model.SeatStandard, Price: next.Price})
				}
				if err := r.seats.CreateBulkTx(ctx, tx, seats); err != nil {
					return err
				}
			case delta < 0:
				if err := r.seats.DeleteFreeTx(ctx, tx, id, -delta); err != nil {
					return err
				}
			}
			next.TotalSeats = *p.TotalSeats
			next.AvailableSeats = ev.AvailableSeats + delta
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE events SET category_id = ?, title = ?, description = ?, location = ?, event_date = ?,
			 price_cents = ?, total_seats = ?, available_seats = ?, is_active = ?, version = version + 1
			 WHERE id = ? AND version = ?`,
			next.CategoryID, next.Title, next.Description, next.Location, next.EventDate,
			next.Price, next.TotalSeats, next.AvailableSeats, next.IsActive, id, ev.Version)
		if isMissingParent(err) {
			return model.ErrCategoryNotFound
		}
		if err := checkVersioned(res, err); err != nil {
			return err
		}
		if next.Price != ev.Price {
			if err := r.seats.RepriceTx(ctx, tx, id, next.Price); err != nil {
				return err
			}
		}
		out, err = r.get(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an event owned by actorID (any event when asAdmin).
// Events with pending or confirmed bookings are refused with ErrConflict;
// seats, cancelled bookings and their rows go with the event.
func (r *EventRepo) Delete(ctx context.Context, id, actorID uint64, asAdmin bool) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		ev, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if !asAdmin && ev.OrganizerID != actorID {
			return ErrForbidden
		}
		var live int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings WHERE event_id = ? AND status <> 'cancelled'`, id).Scan(&live); err != nil {
			return err
		}
		if live > 0 {
			return fmt.Errorf("%w: event has %d active bookings", ErrConflict, live)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
		return err
	})
}

// ToggleActive flips is_active and returns the new value.
func (r *EventRepo) ToggleActive(ctx context.Context, id uint64) (bool, error) {
	var active bool
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT is_active FROM events WHERE id = ?`, id).Scan(&active); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrEventNotFound
			}
			return err
		}
		active = !active
		_, err := tx.ExecContext(ctx, `UPDATE events SET is_active = ? WHERE id = ?`, active, id)
		return err
	})
	return active, err
}
