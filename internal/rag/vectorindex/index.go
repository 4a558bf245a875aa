// Package vectorindex stores embedded chunks in a shared vector store,
// partitioned by tenant. Every read, write and delete is scoped to exactly one
// TenantKey; the backends are unexported so no caller can reach the store
// without one.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"botcraft/internal/domain"
)

var (
	// ErrIndexTimeout is returned when the store did not answer in time or
	// could not be reached. Retrying may succeed.
	ErrIndexTimeout = fmt.Errorf("vector index timeout: %w", domain.ErrUpstreamUnavailable)
	// ErrIndexRejected is returned when the store refused the request, for
	// example because of a dimension mismatch.
	ErrIndexRejected = fmt.Errorf("vector index rejected request: %w", domain.ErrUpstreamRejected)
)

// TenantKey is the partition key of a bot's vectors. It can only be built
// from a non-empty API key.
type TenantKey struct {
	key string
}

// NewTenantKey wraps an API key as a partition key.
func NewTenantKey(apiKey string) (TenantKey, error) {
	if apiKey == "" {
		return TenantKey{}, fmt.Errorf("%w: tenant key is required", domain.ErrValidation)
	}
	return TenantKey{key: apiKey}, nil
}

// String returns the raw key.
func (t TenantKey) String() string { return t.key }

// Redacted returns a form of the key safe to log.
func (t TenantKey) Redacted() string {
	if len(t.key) <= 4 {
		return "****"
	}
	return "****" + t.key[len(t.key)-4:]
}

func (t TenantKey) isZero() bool { return t.key == "" }

// Record is one chunk to be stored.
type Record struct {
	Vector []float32
	Text   string
	Source string
}

// Match is one query result, Score is cosine similarity (higher is closer).
type Match struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float32 `json:"score"`
}

// backend is the store behind an Index. Implementations must apply the tenant
// filter on the server side.
type backend interface {
	upsert(ctx context.Context, tenant string, records []Record) error
	query(ctx context.Context, tenant string, vector []float32, k int) ([]Match, error)
	deleteAll(ctx context.Context, tenant string) error
	close() error
}

// Index is the tenant-scoped vector store used by ingest and retrieval.
type Index struct {
	backend    backend
	dimensions int
	name       string
	logger     *slog.Logger
}

func newIndex(name string, b backend, dimensions int, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		backend:    b,
		dimensions: dimensions,
		name:       name,
		logger:     logger.With("vector_store", name),
	}
}

// Name returns the backend name, e.g. "pgvector".
func (i *Index) Name() string { return i.name }

// Dimensions returns the vector length the index accepts.
func (i *Index) Dimensions() int { return i.dimensions }

// Upsert stores records for tenant. The batch is written entirely or not at
// all.
func (i *Index) Upsert(ctx context.Context, tenant TenantKey, records []Record) error {
	if tenant.isZero() {
		return fmt.Errorf("upsert: %w: tenant key is required", domain.ErrValidation)
	}
	if len(records) == 0 {
		return nil
	}
	for n, r := range records {
		if err := i.checkDimensions(r.Vector); err != nil {
			return fmt.Errorf("upsert record %d: %w", n, err)
		}
	}

	if err := i.backend.upsert(ctx, tenant.String(), records); err != nil {
		i.logger.Error("vector upsert failed", "tenant", tenant.Redacted(), "records", len(records), "error", err)
		return fmt.Errorf("upsert: %w", err)
	}

	i.logger.Debug("vectors upserted", "tenant", tenant.Redacted(), "records", len(records))
	return nil
}

// Query returns up to k matches for tenant in descending similarity.
func (i *Index) Query(ctx context.Context, tenant TenantKey, vector []float32, k int) ([]Match, error) {
	if tenant.isZero() {
		return nil, fmt.Errorf("query: %w: tenant key is required", domain.ErrValidation)
	}
	if k <= 0 {
		return nil, fmt.Errorf("query: %w: k must be positive", domain.ErrValidation)
	}
	if err := i.checkDimensions(vector); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	matches, err := i.backend.query(ctx, tenant.String(), vector, k)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// DeleteAll removes every record of tenant. Deleting an empty tenant is not
// an error.
func (i *Index) DeleteAll(ctx context.Context, tenant TenantKey) error {
	if tenant.isZero() {
		return fmt.Errorf("delete: %w: tenant key is required", domain.ErrValidation)
	}
	if err := i.backend.deleteAll(ctx, tenant.String()); err != nil {
		i.logger.Error("vector purge failed", "tenant", tenant.Redacted(), "error", err)
		return fmt.Errorf("delete: %w", err)
	}
	i.logger.Info("tenant vectors purged", "tenant", tenant.Redacted())
	return nil
}

// Close releases backend resources.
func (i *Index) Close() error {
	return i.backend.close()
}

func (i *Index) checkDimensions(v []float32) error {
	if i.dimensions > 0 && len(v) != i.dimensions {
		return fmt.Errorf("%w: vector has %d dimensions, index expects %d", ErrIndexRejected, len(v), i.dimensions)
	}
	return nil
}

// classify maps a raw backend error onto ErrIndexTimeout or ErrIndexRejected.
// Caller cancellation is passed through untouched.
func classify(err error, rejected func(error) bool) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if rejected != nil && rejected(err) {
		return fmt.Errorf("%w: %v", ErrIndexRejected, err)
	}
	return fmt.Errorf("%w: %v", ErrIndexTimeout, err)
}
