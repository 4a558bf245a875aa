// Package embedder turns text into dense vectors through an external
// provider.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"botcraft/internal/domain"
	"botcraft/internal/rag/upstream"
)

var (
	// ErrProviderUnavailable wraps transient provider failures. Retrying may
	// succeed.
	ErrProviderUnavailable = fmt.Errorf("embedding provider unavailable: %w", domain.ErrUpstreamUnavailable)
	// ErrInvalidInput wraps requests the provider will never accept.
	ErrInvalidInput = fmt.Errorf("invalid embedding input: %w", domain.ErrUpstreamRejected)
)

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	// EmbedDocuments embeds chunks for storage.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a user question for search.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimensions is the length of every returned vector.
	Dimensions() int
	Name() string
}

// batchFunc embeds one provider-sized batch.
type batchFunc func(ctx context.Context, batch []string) ([][]float32, error)

// embedInBatches splits texts into batches of at most size, calls fn for each
// and checks that the provider returned one vector of the expected length
// per text.
func embedInBatches(ctx context.Context, texts []string, size, dimensions int, fn batchFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: text %d is empty", ErrInvalidInput, i)
		}
	}
	if size <= 0 {
		size = len(texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := fn(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts", ErrInvalidInput, len(vectors), end-start)
		}
		for i, v := range vectors {
			if dimensions > 0 && len(v) != dimensions {
				return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrInvalidInput, start+i, len(v), dimensions)
			}
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// wrapProviderError maps SDK and HTTP errors onto ErrProviderUnavailable or
// ErrInvalidInput.
func wrapProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrInvalidInput) {
		return err
	}
	classified := upstream.Classify(err)
	switch {
	case errors.Is(classified, domain.ErrUpstreamRejected):
		return fmt.Errorf("%s: %w: %v", provider, ErrInvalidInput, err)
	case errors.Is(classified, domain.ErrUpstreamUnavailable):
		return fmt.Errorf("%s: %w: %v", provider, ErrProviderUnavailable, err)
	default:
		// cancellation
		return fmt.Errorf("%s: %w", provider, err)
	}
}
