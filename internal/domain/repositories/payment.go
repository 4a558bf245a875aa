package repositories

import (
	"context"

	"botcraft/internal/domain/models"
)

// PaymentRepository defines data access operations for plan purchases
type PaymentRepository interface {
	// Create records a payment. A replayed gateway payment id is a conflict.
	Create(ctx context.Context, payment *models.Payment) error

	// ListSuccessful lists a user's captured payments, newest first
	ListSuccessful(ctx context.Context, userID string) ([]models.Payment, error)
}
