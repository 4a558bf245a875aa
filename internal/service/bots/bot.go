// Package bots implements bot ingest, management and the query pipeline.
package bots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"botcraft/internal/domain"
	"botcraft/internal/domain/models"
	"botcraft/internal/domain/repositories"
	"botcraft/internal/domain/services"
	"botcraft/internal/plans"
	"botcraft/internal/rag/chunker"
	"botcraft/internal/rag/loader"
	"botcraft/internal/rag/vectorindex"

	"github.com/google/uuid"
)

// APIKeyPrefix starts every bot API key.
const APIKeyPrefix = "sa-"

// purgeTimeout bounds vector cleanup, which runs detached from the request.
const purgeTimeout = 30 * time.Second

// botService implements the BotService interface
type botService struct {
	bots     repositories.BotRepository
	users    repositories.UserRepository
	tx       repositories.TransactionManager
	plans    *plans.Registry
	loader   Loader
	splitter Splitter
	embedder DocumentEmbedder
	index    VectorStore
	logger   *slog.Logger
}

// NewBotService creates a new bot service
func NewBotService(
	bots repositories.BotRepository,
	users repositories.UserRepository,
	tx repositories.TransactionManager,
	planRegistry *plans.Registry,
	docLoader Loader,
	splitter Splitter,
	embedder DocumentEmbedder,
	index VectorStore,
	logger *slog.Logger,
) services.BotService {
	return &botService{
		bots:     bots,
		users:    users,
		tx:       tx,
		plans:    planRegistry,
		loader:   docLoader,
		splitter: splitter,
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// NewAPIKey returns a fresh bot credential.
func NewAPIKey() string {
	return APIKeyPrefix + uuid.NewString()
}

// CreateBot validates the request, ingests the source into a new tenant and
// stores the bot. Vectors written before a failure are purged.
func (s *botService) CreateBot(ctx context.Context, req *services.CreateBotRequest) (*models.Bot, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	name := strings.TrimSpace(req.Name)

	if err := s.checkNameFree(ctx, req.OwnerID, name); err != nil {
		return nil, err
	}
	owner, err := s.users.GetByID(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	// fail fast before ingest; the binding check runs under the owner lock
	if err := s.checkPlanCeiling(ctx, owner); err != nil {
		return nil, err
	}

	apiKey := NewAPIKey()
	tenant, err := vectorindex.NewTenantKey(apiKey)
	if err != nil {
		return nil, fmt.Errorf("tenant key: %w", err)
	}

	source, err := s.ingest(ctx, tenant, req)
	if err != nil {
		return nil, err
	}

	bot := &models.Bot{
		OwnerID:        req.OwnerID,
		Name:           name,
		APIKey:         apiKey,
		Status:         models.BotStatusActive,
		Customization:  models.DefaultCustomization(),
		TrainedSources: []string{source},
	}

	err = s.tx.ExecTx(ctx, func(ctx context.Context) error {
		owner, err := s.users.LockByID(ctx, bot.OwnerID)
		if err != nil {
			return err
		}
		if err := s.checkPlanCeiling(ctx, owner); err != nil {
			return err
		}
		return s.bots.Create(ctx, bot)
	})
	if err != nil {
		s.purge(ctx, tenant, "create")
		return nil, err
	}

	s.logger.Info("bot created",
		"bot_id", bot.ID,
		"owner_id", bot.OwnerID,
		"tenant", tenant.Redacted(),
		"source", source,
	)
	return bot, nil
}

// ingest loads, chunks, embeds and upserts the source. It returns the source
// label stored on the bot.
func (s *botService) ingest(ctx context.Context, tenant vectorindex.TenantKey, req *services.CreateBotRequest) (string, error) {
	var (
		source string
		text   string
		err    error
	)
	if req.PDF != nil && len(req.PDF.Data) > 0 {
		source = pdfSourceName(req.PDF.Filename)
		text, err = s.loader.LoadPDF(ctx, req.PDF.Data)
	} else {
		source = strings.TrimSpace(req.URL)
		text, err = s.loader.LoadURL(ctx, source)
	}
	if err != nil {
		s.logIngestFailure(tenant, "load", err)
		return "", fmt.Errorf("load source: %w", err)
	}

	chunks := chunker.NonBlank(s.splitter.Split(text))
	if len(chunks) == 0 {
		return "", loader.ErrEmptyDocument
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		s.logIngestFailure(tenant, "embed", err)
		return "", fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return "", fmt.Errorf("embed chunks: got %d vectors for %d chunks: %w", len(vectors), len(chunks), domain.ErrUpstreamRejected)
	}

	records := make([]vectorindex.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = vectorindex.Record{Vector: vectors[i], Text: chunk, Source: source}
	}

	if err := s.index.Upsert(ctx, tenant, records); err != nil {
		s.logIngestFailure(tenant, "upsert", err)
		// a backend may have stored part of the batch
		s.purge(ctx, tenant, "upsert")
		return "", fmt.Errorf("store chunks: %w", err)
	}

	s.logger.Debug("source ingested",
		"tenant", tenant.Redacted(),
		"chunks", len(chunks),
		"source", source,
	)
	return source, nil
}

func (s *botService) checkNameFree(ctx context.Context, ownerID, name string) error {
	existingID, err := s.bots.FindIDByName(ctx, ownerID, name)
	switch {
	case err == nil:
		return &domain.ConflictError{
			Message:      fmt.Sprintf("You already have a bot named '%s'. Please choose a different name.", name),
			ResourceType: "bot",
			ResourceID:   existingID,
		}
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *botService) checkPlanCeiling(ctx context.Context, owner *models.User) error {
	plan, err := s.plans.Get(owner.Plan)
	if err != nil {
		return err
	}
	count, err := s.bots.CountByOwner(ctx, owner.ID)
	if err != nil {
		return err
	}
	if count >= int64(plan.BotsLimit) {
		return fmt.Errorf("%w: the %s plan allows %d bots", domain.ErrPlanLimit, plan.DisplayName, plan.BotsLimit)
	}
	return nil
}

// purge removes every vector of tenant. It runs even when ctx was cancelled.
func (s *botService) purge(ctx context.Context, tenant vectorindex.TenantKey, stage string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), purgeTimeout)
	defer cancel()
	if err := s.index.DeleteAll(ctx, tenant); err != nil {
		s.logger.Error("tenant purge failed",
			"tenant", tenant.Redacted(),
			"stage", stage,
			"error", err,
		)
	}
}

func (s *botService) logIngestFailure(tenant vectorindex.TenantKey, stage string, err error) {
	level := slog.LevelError
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, context.Canceled) {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "ingest failed",
		"tenant", tenant.Redacted(),
		"stage", stage,
		"error", err,
	)
}

// ListBots lists the owner's bots
func (s *botService) ListBots(ctx context.Context, ownerID string) ([]models.Bot, error) {
	return s.bots.ListByOwner(ctx, ownerID)
}

// GetBot returns one bot's details
func (s *botService) GetBot(ctx context.Context, ownerID, botID string) (*models.BotDetails, error) {
	bot, err := s.getOwned(ctx, ownerID, botID)
	if err != nil {
		return nil, err
	}
	return bot.Details(), nil
}

// UpdateCustomization merges a partial widget update. An update that
// touches no field is a validation error.
func (s *botService) UpdateCustomization(ctx context.Context, ownerID, botID string, update models.CustomizationUpdate) (*models.Bot, error) {
	bot, err := s.getOwned(ctx, ownerID, botID)
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return nil, fmt.Errorf("%w: at least one of primaryColor, headerText or initialMessage is required", domain.ErrValidation)
	}

	next := bot.Customization.Apply(update)
	next.HeaderText = strings.TrimSpace(next.HeaderText)
	next.InitialMessage = strings.TrimSpace(next.InitialMessage)
	if err := validateCustomization(next); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.bots.UpdateCustomization(ctx, botID, ownerID, next); err != nil {
		return nil, err
	}
	bot.Customization = next

	s.logger.Info("bot customization updated",
		"bot_id", botID,
		"owner_id", ownerID,
	)
	return bot, nil
}

// UpdateStatus switches a bot on or off
func (s *botService) UpdateStatus(ctx context.Context, ownerID, botID string, status models.BotStatus) (*models.Bot, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status provided", domain.ErrValidation)
	}
	bot, err := s.getOwned(ctx, ownerID, botID)
	if err != nil {
		return nil, err
	}
	if bot.Status == status {
		return bot, nil
	}

	if err := s.bots.UpdateStatus(ctx, botID, ownerID, status); err != nil {
		return nil, err
	}
	bot.Status = status

	s.logger.Info("bot status updated",
		"bot_id", botID,
		"owner_id", ownerID,
		"status", status,
	)
	return bot, nil
}

// DeleteBot purges the tenant, then deletes the bot row. A failed purge
// leaves the bot in place so the owner can retry.
func (s *botService) DeleteBot(ctx context.Context, ownerID, botID string) (*models.Bot, error) {
	bot, err := s.getOwned(ctx, ownerID, botID)
	if err != nil {
		return nil, err
	}
	tenant, err := vectorindex.NewTenantKey(bot.APIKey)
	if err != nil {
		return nil, fmt.Errorf("tenant key: %w", err)
	}

	if err := s.index.DeleteAll(ctx, tenant); err != nil {
		s.logger.Error("bot vector purge failed",
			"bot_id", botID,
			"tenant", tenant.Redacted(),
			"stage", "delete",
			"error", err,
		)
		return nil, fmt.Errorf("purge vectors: %w", err)
	}

	if err := s.bots.Delete(ctx, botID, ownerID); err != nil {
		return nil, err
	}

	s.logger.Info("bot deleted",
		"bot_id", botID,
		"owner_id", ownerID,
		"tenant", tenant.Redacted(),
	)
	return bot, nil
}

// GetWidgetConfig resolves a public API key to its widget settings
func (s *botService) GetWidgetConfig(ctx context.Context, apiKey string) (*services.WidgetConfig, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", domain.ErrValidation)
	}
	bot, err := s.bots.GetByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Message: "configuration not found"}
		}
		return nil, err
	}
	return &services.WidgetConfig{
		PrimaryColor:   bot.Customization.PrimaryColor,
		HeaderText:     bot.Customization.HeaderText,
		InitialMessage: bot.Customization.InitialMessage,
	}, nil
}

// getOwned loads a bot scoped to its owner. Malformed IDs are reported as
// not found.
func (s *botService) getOwned(ctx context.Context, ownerID, botID string) (*models.Bot, error) {
	if _, err := uuid.Parse(botID); err != nil {
		return nil, &domain.NotFoundError{Message: "bot not found or you are not the owner"}
	}
	bot, err := s.bots.GetByID(ctx, botID, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Message: "bot not found or you are not the owner"}
		}
		return nil, err
	}
	return bot, nil
}

func pdfSourceName(filename string) string {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "document.pdf"
	}
	return name
}
