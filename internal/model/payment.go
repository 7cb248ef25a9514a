package model

import "time"

// PaymentCompleted is the only status a stored payment has; a cancelled
// booking loses its payment row instead of carrying a refund status.
const PaymentCompleted = "completed"

// DefaultPaymentMethod is recorded when the client does not name one.
const DefaultPaymentMethod = "card"

// Payment is the payment row attached to a confirmed booking.
type Payment struct {
	ID             uint64    `json:"id"`
	BookingID      uint64    `json:"booking_id"`
	Amount         Money     `json:"amount"`
	Method         string    `json:"payment_method"`
	TransactionRef string    `json:"transaction_ref"`
	Status         string    `json:"status"`
	PaidAt         time.Time `json:"paid_at"`
}
