package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"botcraft/internal/domain"
	"botcraft/internal/domain/models"
	"botcraft/internal/domain/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBotRepository implements the BotRepository interface. A bot row and
// its api_keys row are always written and read together.
type PostgresBotRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewBotRepository creates a new bot repository
func NewBotRepository(config *RepositoryConfig) repositories.BotRepository {
	return &PostgresBotRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts the bot row followed by its API key
func (r *PostgresBotRepository) Create(ctx context.Context, bot *models.Bot) error {
	executor := GetExecutor(ctx, r.pool)

	botQuery := fmt.Sprintf(`
		INSERT INTO %s (owner_id, name, status, primary_color, header_text, initial_message, trained_sources)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, r.tables.Bots)

	err := executor.QueryRow(ctx, botQuery,
		bot.OwnerID,
		bot.Name,
		bot.Status,
		bot.Customization.PrimaryColor,
		bot.Customization.HeaderText,
		bot.Customization.InitialMessage,
		bot.TrainedSources,
	).Scan(&bot.ID, &bot.CreatedAt, &bot.UpdatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			existingID, queryErr := r.FindIDByName(ctx, bot.OwnerID, bot.Name)
			if queryErr != nil {
				return fmt.Errorf("bot '%s' already exists: %w", bot.Name, domain.ErrConflict)
			}
			return &domain.ConflictError{
				Message:      fmt.Sprintf("bot '%s' already exists", bot.Name),
				ResourceType: "bot",
				ResourceID:   existingID,
			}
		}
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("owner %s: %w", bot.OwnerID, domain.ErrNotFound)
		}
		return fmt.Errorf("create bot: %w", err)
	}

	keyQuery := fmt.Sprintf(`
		INSERT INTO %s (key, bot_id)
		VALUES ($1, $2)
	`, r.tables.APIKeys)

	if _, err := executor.Exec(ctx, keyQuery, bot.APIKey, bot.ID); err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("api key collision: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (r *PostgresBotRepository) selectBots() string {
	return fmt.Sprintf(`
		SELECT b.id, b.owner_id, b.name, k.key, b.status,
		       b.primary_color, b.header_text, b.initial_message,
		       b.trained_sources, b.total_queries, b.last_activity_at,
		       b.created_at, b.updated_at
		FROM %s b
		JOIN %s k ON k.bot_id = b.id
	`, r.tables.Bots, r.tables.APIKeys)
}

func scanBot(row interface{ Scan(...any) error }) (*models.Bot, error) {
	var b models.Bot
	err := row.Scan(
		&b.ID,
		&b.OwnerID,
		&b.Name,
		&b.APIKey,
		&b.Status,
		&b.Customization.PrimaryColor,
		&b.Customization.HeaderText,
		&b.Customization.InitialMessage,
		&b.TrainedSources,
		&b.TotalQueries,
		&b.LastActivityAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByID retrieves a bot owned by ownerID
func (r *PostgresBotRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Bot, error) {
	query := r.selectBots() + ` WHERE b.id = $1 AND b.owner_id = $2`

	bot, err := scanBot(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("bot %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get bot: %w", err)
	}
	return bot, nil
}

// GetByAPIKey resolves a public API key
func (r *PostgresBotRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Bot, error) {
	query := r.selectBots() + ` WHERE k.key = $1`

	bot, err := scanBot(GetExecutor(ctx, r.pool).QueryRow(ctx, query, apiKey))
	if err != nil {
		if IsPgNoRowsError(err) {
			// never echo the key
			return nil, fmt.Errorf("api key: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get bot by api key: %w", err)
	}
	return bot, nil
}

// ListByOwner lists an owner's bots, newest first
func (r *PostgresBotRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Bot, error) {
	query := r.selectBots() + ` WHERE b.owner_id = $1 ORDER BY b.created_at DESC`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	defer rows.Close()

	bots := []models.Bot{}
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bot: %w", err)
		}
		bots = append(bots, *bot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bots: %w", err)
	}
	return bots, nil
}

// CountByOwner counts an owner's bots
func (r *PostgresBotRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE owner_id = $1`, r.tables.Bots)

	var n int64
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bots: %w", err)
	}
	return n, nil
}

// FindIDByName looks up an owner's bot by its name
func (r *PostgresBotRepository) FindIDByName(ctx context.Context, ownerID, name string) (string, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE owner_id = $1 AND name = $2`, r.tables.Bots)

	var id string
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, ownerID, name).Scan(&id)
	if err != nil {
		if IsPgNoRowsError(err) {
			return "", fmt.Errorf("bot '%s': %w", name, domain.ErrNotFound)
		}
		return "", fmt.Errorf("find bot by name: %w", err)
	}
	return id, nil
}

// UpdateCustomization overwrites the widget settings
func (r *PostgresBotRepository) UpdateCustomization(ctx context.Context, id, ownerID string, c models.Customization) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET primary_color = $1, header_text = $2, initial_message = $3, updated_at = $4
		WHERE id = $5 AND owner_id = $6
	`, r.tables.Bots)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		c.PrimaryColor,
		c.HeaderText,
		c.InitialMessage,
		time.Now(),
		id,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("update customization: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("bot %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateStatus switches the bot on or off
func (r *PostgresBotRepository) UpdateStatus(ctx context.Context, id, ownerID string, status models.BotStatus) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, updated_at = $2
		WHERE id = $3 AND owner_id = $4
	`, r.tables.Bots)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, status, time.Now(), id, ownerID)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("bot %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a bot; the api_keys row goes with it (ON DELETE CASCADE)
func (r *PostgresBotRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND owner_id = $2`, r.tables.Bots)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete bot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("bot %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
