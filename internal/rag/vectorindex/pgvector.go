package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type pgvectorBackend struct {
	pool  *pgxpool.Pool
	table string
}

// NewPgvector returns an index stored in table, a pgvector table created by
// the schema tool. All tenants share the table; tenant_key is part of every
// statement.
func NewPgvector(pool *pgxpool.Pool, table string, dimensions int, logger *slog.Logger) *Index {
	return newIndex("pgvector", &pgvectorBackend{pool: pool, table: table}, dimensions, logger)
}

func (b *pgvectorBackend) upsert(ctx context.Context, tenant string, records []Record) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin: %w", err), isPgRejection)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Warn("chunk upsert rollback failed", "error", err)
		}
	}()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, tenant_key, source, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
	`, b.table)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query, uuid.NewString(), tenant, r.Source, r.Text, pgvector.NewVector(r.Vector))
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return classify(fmt.Errorf("insert chunk: %w", err), isPgRejection)
		}
	}
	if err := results.Close(); err != nil {
		return classify(fmt.Errorf("close batch: %w", err), isPgRejection)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit: %w", err), isPgRejection)
	}
	return nil
}

func (b *pgvectorBackend) query(ctx context.Context, tenant string, vector []float32, k int) ([]Match, error) {
	query := fmt.Sprintf(`
		SELECT content, source, 1 - (embedding <=> $2) AS score
		FROM %s
		WHERE tenant_key = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`, b.table)

	rows, err := b.pool.Query(ctx, query, tenant, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, classify(err, isPgRejection)
	}
	defer rows.Close()

	matches := make([]Match, 0, k)
	for rows.Next() {
		var m Match
		var score float64
		if err := rows.Scan(&m.Text, &m.Source, &score); err != nil {
			return nil, classify(fmt.Errorf("scan match: %w", err), isPgRejection)
		}
		m.Score = float32(score)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, isPgRejection)
	}
	return matches, nil
}

func (b *pgvectorBackend) deleteAll(ctx context.Context, tenant string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_key = $1`, b.table)
	if _, err := b.pool.Exec(ctx, query, tenant); err != nil {
		return classify(err, isPgRejection)
	}
	return nil
}

// the pool is owned by the caller
func (b *pgvectorBackend) close() error { return nil }

// isPgRejection reports errors Postgres will raise again on retry: data
// exceptions (class 22, e.g. "expected 1024 dimensions"), integrity
// violations (23) and syntax or undefined objects (42).
func isPgRejection(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "22") ||
		strings.HasPrefix(pgErr.Code, "23") ||
		strings.HasPrefix(pgErr.Code, "42")
}
