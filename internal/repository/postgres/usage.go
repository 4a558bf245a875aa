package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"botcraft/internal/domain"
	"botcraft/internal/domain/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUsageRepository keeps requests_left on the users row and one
// lease row per reserved request. Reserve locks the users row, so two
// requests racing for the last unit are serialized by Postgres.
type PostgresUsageRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	tx     repositories.TransactionManager
	logger *slog.Logger
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(config *RepositoryConfig, tx repositories.TransactionManager) repositories.UsageRepository {
	return &PostgresUsageRepository{
		pool:   config.Pool,
		tables: config.Tables,
		tx:     tx,
		logger: config.Logger,
	}
}

// Reserve claims one unit if requests_left exceeds the live leases
func (r *PostgresUsageRepository) Reserve(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	var leaseID string
	err := r.tx.ExecTx(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, r.pool)

		lockQuery := fmt.Sprintf(`SELECT requests_left FROM %s WHERE id = $1 FOR UPDATE`, r.tables.Users)
		var left int64
		if err := executor.QueryRow(ctx, lockQuery, userID).Scan(&left); err != nil {
			if IsPgNoRowsError(err) {
				return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
			}
			return fmt.Errorf("lock user quota: %w", err)
		}

		// statements after the lock see every lease committed before it
		sweepQuery := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND expires_at <= NOW()`, r.tables.Leases)
		if _, err := executor.Exec(ctx, sweepQuery, userID); err != nil {
			return fmt.Errorf("sweep expired leases: %w", err)
		}

		countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1`, r.tables.Leases)
		var live int64
		if err := executor.QueryRow(ctx, countQuery, userID).Scan(&live); err != nil {
			return fmt.Errorf("count leases: %w", err)
		}
		if left-live <= 0 {
			return domain.ErrQuotaExceeded
		}

		insertQuery := fmt.Sprintf(`
			INSERT INTO %s (user_id, expires_at)
			VALUES ($1, NOW() + $2 * INTERVAL '1 millisecond')
			RETURNING id
		`, r.tables.Leases)
		if err := executor.QueryRow(ctx, insertQuery, userID, ttl.Milliseconds()).Scan(&leaseID); err != nil {
			return fmt.Errorf("insert lease: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return leaseID, nil
}

// Commit charges a reserved unit and records bot activity atomically. A
// lapsed lease is still charged: the answer was produced.
func (r *PostgresUsageRepository) Commit(ctx context.Context, userID, leaseID, botID string) error {
	return r.tx.ExecTx(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, r.pool)

		dropQuery := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, r.tables.Leases)
		if _, err := executor.Exec(ctx, dropQuery, leaseID, userID); err != nil {
			return fmt.Errorf("drop lease: %w", err)
		}

		chargeQuery := fmt.Sprintf(`
			UPDATE %s
			SET requests_left = requests_left - 1
			WHERE id = $1 AND requests_left > 0
		`, r.tables.Users)

		result, err := executor.Exec(ctx, chargeQuery, userID)
		if err != nil {
			return fmt.Errorf("charge request: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("charge %s: %w", userID, domain.ErrQuotaExceeded)
		}

		if botID == "" {
			return nil
		}

		activityQuery := fmt.Sprintf(`
			UPDATE %s
			SET total_queries = total_queries + 1, last_activity_at = NOW()
			WHERE id = $1
		`, r.tables.Bots)

		// a bot deleted mid-query has nothing to record
		if _, err := executor.Exec(ctx, activityQuery, botID); err != nil {
			return fmt.Errorf("record bot activity: %w", err)
		}
		return nil
	})
}

// Release drops a lease
func (r *PostgresUsageRepository) Release(ctx context.Context, userID, leaseID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, r.tables.Leases)

	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, leaseID, userID); err != nil {
		return fmt.Errorf("release request: %w", err)
	}
	return nil
}
