package repositories

import (
	"context"

	"botcraft/internal/domain/models"
)

// UserRepository defines data access operations for bot owners
type UserRepository interface {
	// Create inserts a user; ID and CreatedAt are filled in
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user with their current quota
	GetByID(ctx context.Context, id string) (*models.User, error)

	// LockByID reads the user and holds the row lock until the surrounding
	// ExecTx ends. Writers that check a per-owner ceiling serialize on it.
	LockByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail retrieves a user by login email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdatePlan switches the plan, resets requests_left to requests and
	// drops every outstanding quota lease
	UpdatePlan(ctx context.Context, id string, plan models.PlanTier, requests int64) error
}
