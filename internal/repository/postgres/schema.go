package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates every table the server needs if it does not exist yet.
// dimensions fixes the width of the chunk embedding column; changing the
// embedding model later requires dropping the chunks table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, prefix string, dimensions int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS ` + tables.Users + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			plan TEXT NOT NULL DEFAULT 'FREE' CHECK (plan IN ('FREE', 'PRO')),
			requests_left BIGINT NOT NULL DEFAULT 100 CHECK (requests_left >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + tables.Bots + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			owner_id UUID NOT NULL REFERENCES ` + tables.Users + `(id) ON DELETE CASCADE,
			name VARCHAR(100) NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE', 'INACTIVE')),
			primary_color TEXT NOT NULL DEFAULT '#007bff',
			header_text TEXT NOT NULL DEFAULT 'Chat with AI',
			initial_message TEXT NOT NULL DEFAULT 'Hi! How can I help you today?',
			trained_sources TEXT[] NOT NULL DEFAULT '{}',
			total_queries BIGINT NOT NULL DEFAULT 0,
			last_activity_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (owner_id, name)
		)`,

		`CREATE TABLE IF NOT EXISTS ` + tables.APIKeys + ` (
			key TEXT PRIMARY KEY,
			bot_id UUID NOT NULL UNIQUE REFERENCES ` + tables.Bots + `(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + tables.Payments + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES ` + tables.Users + `(id) ON DELETE CASCADE,
			payment_id TEXT NOT NULL UNIQUE,
			order_id TEXT NOT NULL,
			amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
			plan TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('SUCCESS', 'FAILED')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + tables.Leases + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES ` + tables.Users + `(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			tenant_key TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, tables.Chunks, dimensions),

		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `bots_owner ON ` + tables.Bots + `(owner_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `payments_user ON ` + tables.Payments + `(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `quota_leases_user ON ` + tables.Leases + `(user_id, expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `chunks_tenant ON ` + tables.Chunks + `(tenant_key)`,
		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `chunks_embedding ON ` + tables.Chunks + ` USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// DropAll drops every table in reverse dependency order.
func DropAll(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range []string{tables.Chunks, tables.Leases, tables.Payments, tables.APIKeys, tables.Bots, tables.Users} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}
