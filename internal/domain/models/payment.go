package models

import "time"

type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Payment is a captured plan purchase.
type Payment struct {
	ID        string        `json:"id"`
	UserID    string        `json:"-"`
	PaymentID string        `json:"paymentId"`
	OrderID   string        `json:"orderId"`
	Amount    float64       `json:"amount"`
	Plan      PlanTier      `json:"plan"`
	Status    PaymentStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}
