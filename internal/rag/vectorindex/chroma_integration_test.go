package vectorindex

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
)

func TestChromaBackendContract_Integration(t *testing.T) {
	chromaURL := os.Getenv("CHROMA_URL")
	if chromaURL == "" {
		t.Skip("CHROMA_URL not set")
	}

	ctx := context.Background()
	collection := "it_" + uuid.NewString()[:8]
	idx, err := NewChroma(ctx, chromaURL, collection, 2, nil)
	if err != nil {
		t.Fatalf("NewChroma: %v", err)
	}
	t.Cleanup(func() {
		if b, ok := idx.backend.(*chromaBackend); ok {
			if err := b.client.DeleteCollection(context.Background(), collection); err != nil {
				t.Logf("delete collection: %v", err)
			}
		}
		_ = idx.Close()
	})

	checkBackendContract(t, idx)
}

func TestIsChromaRejection(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("error sending request: 422 Unprocessable Entity"), true},
		{errors.New("collection expecting embedding with dimension of 1024, got 3"), true},
		{errors.New("status 404: collection not found"), true},
		{errors.New("dial tcp: connection refused"), false},
		{errors.New("503 Service Unavailable"), false},
	}
	for _, tt := range tests {
		if got := isChromaRejection(tt.err); got != tt.want {
			t.Errorf("isChromaRejection(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
