package services

import (
	"context"

	"botcraft/internal/domain/models"
)

// PlanSummary is the owner's current plan and remaining quota.
type PlanSummary struct {
	Current       models.PlanTier `json:"current"`
	RequestsLeft  int64           `json:"requestsLeft"`
	RequestsLimit int64           `json:"requestsLimit"`
}

// AccountStats counts bots against the plan ceiling.
type AccountStats struct {
	TotalBots int64 `json:"totalBots"`
	BotsLimit int64 `json:"botsLimit"`
}

// BotSummary is one row of the dashboard bot list.
type BotSummary struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Status    models.BotStatus `json:"status"`
	CreatedAt string           `json:"createdAt"`
}

// Dashboard is everything the dashboard home page shows.
type Dashboard struct {
	User     *models.User     `json:"user"`
	Plan     PlanSummary      `json:"plan"`
	Stats    AccountStats     `json:"stats"`
	Bots     []BotSummary     `json:"bots"`
	Payments []models.Payment `json:"payments"`
}

// VerifyPaymentRequest carries the gateway callback fields.
type VerifyPaymentRequest struct {
	UserID    string
	OrderID   string
	PaymentID string
	Signature string
	Amount    float64
}

// AccountService defines dashboard and billing operations
type AccountService interface {
	// Dashboard aggregates profile, plan, bots and payments for a user
	Dashboard(ctx context.Context, userID string) (*Dashboard, error)

	// VerifyPayment checks the gateway signature, records the payment and
	// upgrades the user to PRO
	VerifyPayment(ctx context.Context, req *VerifyPaymentRequest) (*models.User, error)
}
