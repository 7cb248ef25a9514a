package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// BookingRepo provides persistence for bookings and their seat
// associations.  Writes happen through the *Tx methods so they share the
// caller's transaction with the seat ledger and availability counter.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts a booking and populates its ID and timestamps.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (event_id, user_id, total_amount_cents, status) VALUES (?, ?, ?, ?)`,
		b.EventID, b.UserID, b.TotalAmount, b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	fresh, err := r.get(ctx, tx, uint64(id))
	if err != nil {
		return err
	}
	*b = fresh
	return nil
}

// AddSeatsTx links seats to a booking in a single statement.
func (r *BookingRepo) AddSeatsTx(ctx context.Context, tx *sql.Tx, bookingID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `INSERT INTO booked_seats (booking_id, seat_id) VALUES `
	args := make([]any, 0, len(seatIDs)*2)
	for i, id := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, bookingID, id)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (r *BookingRepo) get(ctx context.Context, q DBTX, id uint64) (model.Booking, error) {
	var b model.Booking
	err := q.QueryRowContext(ctx,
		`SELECT id, event_id, user_id, total_amount_cents, status, booking_date, updated_at
		 FROM bookings WHERE id = ?`, id).
		Scan(&b.ID, &b.EventID, &b.UserID, &b.TotalAmount, &b.Status, &b.BookingDate, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return b, model.ErrBookingNotFound
	}
	return b, err
}

// GetTx loads a booking inside tx.
func (r *BookingRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	return r.get(ctx, tx, id)
}

// SeatIDsTx returns the seats associated with a booking.
func (r *BookingRepo) SeatIDsTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT seat_id FROM booked_seats WHERE booking_id = ? ORDER BY seat_id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetStatusTx writes a new status.
func (r *BookingRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, st model.BookingStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, st, id)
	return err
}

const detailSelect = `SELECT b.id, b.event_id, b.user_id, b.total_amount_cents, b.status, b.booking_date, b.updated_at,
	e.title, e.event_date, u.name, u.email,
	p.id, p.amount_cents, p.method, p.transaction_ref, p.status, p.paid_at
	FROM bookings b
	JOIN events e ON e.id = b.event_id
	JOIN users u  ON u.id = b.user_id
	LEFT JOIN payments p ON p.booking_id = b.id`

func (r *BookingRepo) listDetails(ctx context.Context, where string, args ...any) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, detailSelect+` WHERE `+where+` ORDER BY b.booking_date DESC, b.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	out := []model.BookingDetail{}
	err = func() error {
		defer rows.Close()
		for rows.Next() {
			var (
				d      model.BookingDetail
				payID  sql.NullInt64
				amount sql.NullInt64
				method sql.NullString
				ref    sql.NullString
				status sql.NullString
				paidAt sql.NullTime
			)
			if err := rows.Scan(&d.ID, &d.EventID, &d.UserID, &d.TotalAmount, &d.Status, &d.BookingDate, &d.UpdatedAt,
				&d.EventTitle, &d.EventDate, &d.UserName, &d.UserEmail,
				&payID, &amount, &method, &ref, &status, &paidAt); err != nil {
				return err
			}
			if payID.Valid {
				d.Payment = &model.Payment{
					ID: uint64(payID.Int64), BookingID: d.ID, Amount: model.Money(amount.Int64),
					Method: method.String, TransactionRef: ref.String, Status: status.String, PaidAt: paidAt.Time,
				}
			}
			d.Seats = []model.BookedSeatInfo{}
			out = append(out, d)
		}
		return rows.Err()
	}()
	if err != nil {
		return nil, err
	}
	if err := r.attachSeats(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachSeats loads the seats of all listed bookings with one query.
func (r *BookingRepo) attachSeats(ctx context.Context, list []model.BookingDetail) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uint64, len(list))
	index := make(map[uint64]int, len(list))
	for i, d := range list {
		ids[i] = d.ID
		index[d.ID] = i
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT bs.booking_id, s.id, s.seat_number, s.seat_type, s.price_cents
		 FROM booked_seats bs JOIN seats s ON s.id = bs.seat_id
		 WHERE bs.booking_id IN (`+placeholders(len(ids))+`) ORDER BY s.id`, idArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			bookingID uint64
			s         model.BookedSeatInfo
		)
		if err := rows.Scan(&bookingID, &s.SeatID, &s.SeatNumber, &s.SeatType, &s.Price); err != nil {
			return err
		}
		if i, ok := index[bookingID]; ok {
			list[i].Seats = append(list[i].Seats, s)
		}
	}
	return rows.Err()
}

// GetDetail returns a booking with its event, user, seats and payment.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	list, err := r.listDetails(ctx, `b.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, model.ErrBookingNotFound
	}
	return &list[0], nil
}

// ListByUser returns the bookings made by a user.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, `b.user_id = ?`, userID)
}

// ListByEvent returns the bookings of an event.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, `b.event_id = ?`, eventID)
}

// ListAll returns every booking, newest first.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, `1 = 1`)
}
