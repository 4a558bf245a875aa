package services

import (
	"context"

	"botcraft/internal/domain/models"
)

// SourceFile is an uploaded document.
type SourceFile struct {
	Filename string
	Data     []byte
}

// CreateBotRequest builds a bot from exactly one source: PDF or URL.
type CreateBotRequest struct {
	OwnerID string
	Name    string
	PDF     *SourceFile
	URL     string
}

// WidgetConfig is the public, unauthenticated view of a bot's widget.
type WidgetConfig struct {
	PrimaryColor   string `json:"primaryColor"`
	HeaderText     string `json:"headerText"`
	InitialMessage string `json:"initialMessage"`
}

// BotService defines business logic operations for bots
type BotService interface {
	// CreateBot ingests the source into a fresh tenant and stores the bot.
	// Nothing is left behind on failure.
	CreateBot(ctx context.Context, req *CreateBotRequest) (*models.Bot, error)

	// ListBots lists the owner's bots
	ListBots(ctx context.Context, ownerID string) ([]models.Bot, error)

	// GetBot returns the owner's view of one bot
	GetBot(ctx context.Context, ownerID, botID string) (*models.BotDetails, error)

	// UpdateCustomization applies a partial widget update
	UpdateCustomization(ctx context.Context, ownerID, botID string, update models.CustomizationUpdate) (*models.Bot, error)

	// UpdateStatus switches the bot on or off
	UpdateStatus(ctx context.Context, ownerID, botID string, status models.BotStatus) (*models.Bot, error)

	// DeleteBot purges the bot's vectors, then removes the bot and its key
	DeleteBot(ctx context.Context, ownerID, botID string) (*models.Bot, error)

	// GetWidgetConfig resolves an API key to widget settings
	GetWidgetConfig(ctx context.Context, apiKey string) (*WidgetConfig, error)
}
