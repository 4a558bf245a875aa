package bots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"botcraft/internal/domain"
	"botcraft/internal/domain/models"
	"botcraft/internal/domain/repositories"
	"botcraft/internal/domain/services"
	"botcraft/internal/rag/vectorindex"
	"botcraft/internal/usage"

	"github.com/google/uuid"
)

// queryService implements the QueryService interface
type queryService struct {
	bots      repositories.BotRepository
	meter     *usage.Meter
	retriever Retriever
	answerer  Answerer
	topK      int
	logger    *slog.Logger
}

// NewQueryService creates a new query service. topK is the number of chunks
// retrieved per question.
func NewQueryService(
	bots repositories.BotRepository,
	meter *usage.Meter,
	retriever Retriever,
	answerer Answerer,
	topK int,
	logger *slog.Logger,
) services.QueryService {
	return &queryService{
		bots:      bots,
		meter:     meter,
		retriever: retriever,
		answerer:  answerer,
		topK:      topK,
		logger:    logger,
	}
}

// Ask answers a public question. Inactive bots are rejected before any quota
// is reserved or the index is touched.
func (s *queryService) Ask(ctx context.Context, apiKey, question string) (string, error) {
	if err := validateQuestion(question); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", &domain.UnauthorizedError{Message: "Invalid API Key."}
	}
	bot, err := s.bots.GetByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", &domain.UnauthorizedError{Message: "Invalid API Key."}
		}
		return "", err
	}

	if !bot.IsActive() {
		return "", domain.ErrBotDisabled
	}

	return s.answer(ctx, bot, question, bot.ID)
}

// AskDemo answers an owner's test question. Disabled bots still answer and
// the bot's public counters are left alone.
func (s *queryService) AskDemo(ctx context.Context, ownerID, botID, question string) (string, error) {
	if err := validateQuestion(question); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if _, err := uuid.Parse(botID); err != nil {
		return "", &domain.NotFoundError{Message: "bot not found or you are not the owner"}
	}
	bot, err := s.bots.GetByID(ctx, botID, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", &domain.NotFoundError{Message: "bot not found or you are not the owner"}
		}
		return "", err
	}

	return s.answer(ctx, bot, question, "")
}

// answer runs reserve, retrieve, generate and charge. Any failure before the
// charge releases the reservation.
func (s *queryService) answer(ctx context.Context, bot *models.Bot, question, recordBotID string) (string, error) {
	tenant, err := vectorindex.NewTenantKey(bot.APIKey)
	if err != nil {
		return "", fmt.Errorf("tenant key: %w", err)
	}

	reservation, err := s.meter.Reserve(ctx, bot.OwnerID)
	if err != nil {
		return "", err
	}
	// no-op once charged
	defer reservation.Release(ctx)

	chunks, err := s.retriever.Retrieve(ctx, tenant, question, s.topK)
	if err != nil {
		s.logFailure(bot, tenant, "retrieve", err)
		return "", fmt.Errorf("retrieve: %w", err)
	}

	answer, err := s.answerer.Answer(ctx, question, chunks)
	if err != nil {
		s.logFailure(bot, tenant, "generate", err)
		return "", fmt.Errorf("generate: %w", err)
	}

	if err := reservation.ChargeAndRecord(ctx, recordBotID); err != nil {
		s.logFailure(bot, tenant, "account", err)
		return "", err
	}

	s.logger.Debug("question answered",
		"bot_id", bot.ID,
		"tenant", tenant.Redacted(),
		"chunks", len(chunks),
	)
	return answer, nil
}

func (s *queryService) logFailure(bot *models.Bot, tenant vectorindex.TenantKey, stage string, err error) {
	if errors.Is(err, context.Canceled) {
		s.logger.Info("query cancelled", "bot_id", bot.ID, "stage", stage)
		return
	}
	s.logger.Error("query failed",
		"bot_id", bot.ID,
		"owner_id", bot.OwnerID,
		"tenant", tenant.Redacted(),
		"stage", stage,
		"retryable", domain.IsRetryable(err),
		"error", err,
	)
}
