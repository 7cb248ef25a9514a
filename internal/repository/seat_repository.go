package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// SeatRepo provides access to the seat ledger.  Reads run against the
// pool; every mutation takes a *sql.Tx because seat flags must change in
// the same transaction as the event availability counter.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a SeatRepo bound to db.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, event_id, seat_number, seat_type, price_cents, is_booked`

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	defer rows.Close()
	out := []model.Seat{}
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.EventID, &s.SeatNumber, &s.SeatType, &s.Price, &s.IsBooked); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByEvent returns the seat map of an event ordered by id, which is
// the generation order.
func (r *SeatRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// CreateBulkTx inserts seats in one statement.  Passing an empty slice
// is a no-op.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (event_id, seat_number, seat_type, price_cents) VALUES `
	args := make([]any, 0, len(seats)*4)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, s.EventID, s.SeatNumber, s.SeatType, s.Price)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ByIDsTx loads the given seats of an event.  Seats of other events are
// silently skipped; callers compare lengths.
func (r *SeatRepo) ByIDsTx(ctx context.Context, tx *sql.Tx, eventID uint64, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return []model.Seat{}, nil
	}
	args := append([]any{eventID}, idArgs(ids)...)
	rows, err := tx.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE event_id = ? AND id IN (`+placeholders(len(ids))+`) ORDER BY id`,
		args...)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// MarkBookedTx flips is_booked for the given seats of an event, but only
// for seats that are currently free.  When fewer rows than requested
// change, at least one seat was taken, missing or belongs to another
// event, and model.ErrSeatUnavailable is returned so the caller rolls back.
func (r *SeatRepo) MarkBookedTx(ctx context.Context, tx *sql.Tx, eventID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{eventID}, idArgs(ids)...)
	res, err := tx.ExecContext(ctx,
		`UPDATE seats SET is_booked = TRUE
		 WHERE event_id = ? AND is_booked = FALSE AND id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return fmt.Errorf("%w: %d of %d seats free", model.ErrSeatUnavailable, n, len(ids))
	}
	return nil
}

// ReleaseTx marks the given seats of an event as free.
func (r *SeatRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, eventID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{eventID}, idArgs(ids)...)
	_, err := tx.ExecContext(ctx,
		`UPDATE seats SET is_booked = FALSE WHERE event_id = ? AND id IN (`+placeholders(len(ids))+`)`,
		args...)
	return err
}

// NumbersTx returns the set of seat numbers already used by an event.
func (r *SeatRepo) NumbersTx(ctx context.Context, tx *sql.Tx, eventID uint64) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT seat_number FROM seats WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	taken := map[string]bool{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		taken[n] = true
	}
	return taken, rows.Err()
}

// DeleteFreeTx removes count unbooked seats from the end of an event's
// seat map.  It returns ErrConflict when not enough free seats exist.
func (r *SeatRepo) DeleteFreeTx(ctx context.Context, tx *sql.Tx, eventID uint64, count int) error {
	if count <= 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM seats WHERE event_id = ? AND is_booked = FALSE ORDER BY id DESC LIMIT ?`,
		eventID, count)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(count) {
		return fmt.Errorf("%w: only %d free seats could be removed", ErrConflict, n)
	}
	return nil
}

// RepriceTx rewrites seat prices after the event's base price changed.
func (r *SeatRepo) RepriceTx(ctx context.Context, tx *sql.Tx, eventID uint64, base model.Money) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE seats SET price_cents = CASE WHEN seat_type = 'vip' THEN ? ELSE ? END WHERE event_id = ?`,
		model.PriceFor(model.SeatVIP, base), base, eventID)
	return err
}

// freeSeatNumbers picks count seat numbers not present in taken, filling
// gaps left by earlier shrinks before extending the map.
func freeSeatNumbers(taken map[string]bool, count int) []string {
	out := make([]string, 0, count)
	for pos := 0; len(out) < count; pos++ {
		n := model.SeatNumberAt(pos)
		if !taken[n] {
			out = append(out, n)
		}
	}
	return out
}
