package upstream

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"botcraft/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"timeout", fmt.Errorf("post: %w", context.DeadlineExceeded), domain.ErrUpstreamUnavailable},
		{"typed 429", &StatusError{Provider: "cohere", Code: 429}, domain.ErrUpstreamUnavailable},
		{"typed 503", &StatusError{Provider: "cohere", Code: 503}, domain.ErrUpstreamUnavailable},
		{"typed 400", &StatusError{Provider: "cohere", Code: 400}, domain.ErrUpstreamRejected},
		{"sdk message 401", errors.New("API returned unexpected status code: 401: invalid api key"), domain.ErrUpstreamRejected},
		{"sdk message 502", errors.New("POST https://api.groq.com/openai/v1/chat/completions: 502 Bad Gateway"), domain.ErrUpstreamUnavailable},
		{"no status", errors.New("connection reset by peer"), domain.ErrUpstreamUnavailable},
		{"port is not a status", errors.New("dial tcp 10.0.0.1:443: connect: connection refused"), domain.ErrUpstreamUnavailable},
		{"already classified", fmt.Errorf("x: %w", domain.ErrUpstreamRejected), domain.ErrUpstreamRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassify_PassesThroughCancellation(t *testing.T) {
	err := Classify(context.Canceled)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if domain.IsRetryable(err) {
		t.Error("cancellation must not be retryable")
	}
	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}
