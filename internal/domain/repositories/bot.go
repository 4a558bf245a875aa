package repositories

import (
	"context"

	"botcraft/internal/domain/models"
)

// BotRepository defines data access operations for bots and their API keys
type BotRepository interface {
	// Create inserts the bot and its API key. Call inside ExecTx so both
	// rows land together.
	Create(ctx context.Context, bot *models.Bot) error

	// GetByID retrieves a bot owned by ownerID
	GetByID(ctx context.Context, id, ownerID string) (*models.Bot, error)

	// GetByAPIKey resolves the public credential to its bot
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Bot, error)

	// ListByOwner lists an owner's bots, newest first
	ListByOwner(ctx context.Context, ownerID string) ([]models.Bot, error)

	// CountByOwner counts an owner's bots for plan ceilings
	CountByOwner(ctx context.Context, ownerID string) (int64, error)

	// FindIDByName returns the ID of the owner's bot with that name, or
	// ErrNotFound
	FindIDByName(ctx context.Context, ownerID, name string) (string, error)

	// UpdateCustomization overwrites the widget settings
	UpdateCustomization(ctx context.Context, id, ownerID string, c models.Customization) error

	// UpdateStatus switches the bot on or off
	UpdateStatus(ctx context.Context, id, ownerID string, status models.BotStatus) error

	// Delete removes the bot; its API key cascades
	Delete(ctx context.Context, id, ownerID string) error
}
