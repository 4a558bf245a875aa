// Package retriever finds the chunks of one bot's knowledge base closest to
// a question.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"botcraft/internal/domain"
	"botcraft/internal/rag/embedder"
	"botcraft/internal/rag/vectorindex"
)

const DefaultTopK = 3

// Index is the part of vectorindex.Index the retriever needs.
type Index interface {
	Query(ctx context.Context, tenant vectorindex.TenantKey, vector []float32, k int) ([]vectorindex.Match, error)
}

// Retriever embeds questions and searches one tenant.
type Retriever struct {
	embedder embedder.Embedder
	index    Index
	topK     int
	minScore float32
	logger   *slog.Logger
}

// New creates a Retriever. Matches scoring below minScore are dropped; zero
// keeps everything.
func New(emb embedder.Embedder, index Index, topK int, minScore float32, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		embedder: emb,
		index:    index,
		topK:     topK,
		minScore: minScore,
		logger:   logger,
	}
}

// Retrieve returns up to k chunks of tenant's knowledge base, best first. A
// non-positive k uses the configured default. No matches is a valid, empty
// result.
func (r *Retriever) Retrieve(ctx context.Context, tenant vectorindex.TenantKey, question string, k int) ([]vectorindex.Match, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrValidation)
	}
	if k <= 0 {
		k = r.topK
	}

	vector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	matches, err := r.index.Query(ctx, tenant, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	kept := matches[:0]
	for _, m := range matches {
		if r.minScore <= 0 || m.Score >= r.minScore {
			kept = append(kept, m)
		}
	}

	r.logger.Debug("context retrieved",
		"tenant", tenant.Redacted(),
		"requested", k,
		"matched", len(matches),
		"kept", len(kept),
	)
	return kept, nil
}
