package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// PaymentRepo stores the single payment row of a confirmed booking.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to db.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx inserts p and sets its ID.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	if p.Status == "" {
		p.Status = model.PaymentCompleted
	}
	if p.Method == "" {
		p.Method = model.DefaultPaymentMethod
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (booking_id, amount_cents, method, transaction_ref, status) VALUES (?, ?, ?, ?, ?)`,
		p.BookingID, p.Amount, p.Method, p.TransactionRef, p.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ExistsTx reports whether a booking already has a payment row.
func (r *PaymentRepo) ExistsTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE booking_id = ?`, bookingID).Scan(&n)
	return n > 0, err
}

// DeleteByBookingTx removes the payment of a booking, if any.
func (r *PaymentRepo) DeleteByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE booking_id = ?`, bookingID)
	return err
}
