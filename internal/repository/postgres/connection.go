package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"botcraft/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Users    string
	Bots     string
	APIKeys  string
	Payments string
	Leases   string
	Chunks   string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Users:    fmt.Sprintf("%susers", prefix),
		Bots:     fmt.Sprintf("%sbots", prefix),
		APIKeys:  fmt.Sprintf("%sapi_keys", prefix),
		Payments: fmt.Sprintf("%spayments", prefix),
		Leases:   fmt.Sprintf("%squota_leases", prefix),
		Chunks:   fmt.Sprintf("%schunks", prefix),
	}
}

// CreateConnectionPool opens and pings a pgx pool.
//
// Port 6543 is treated as a transaction-mode PgBouncer (Supabase pooler),
// which cannot hold prepared statements, so the pool switches to
// QueryExecModeCacheDescribe there unless the connection string already
// picked a mode with default_query_exec_mode. Table names are interpolated
// before statements are sent, so each prefix gets its own cached statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction carried by ctx, or the pool.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
