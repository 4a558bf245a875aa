package providers

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"botcraft/internal/config"
)

func testFactory(cfg *config.Config) *Factory {
	return NewFactory(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFactory_DemoProviders(t *testing.T) {
	f := testFactory(&config.Config{
		EmbeddingProvider:   "hash",
		EmbeddingDimensions: 128,
		LLMProvider:         "lorem",
		VectorStore:         "memory",
		URLRenderer:         "static",
	})
	ctx := context.Background()

	emb, err := f.Embedder(ctx)
	if err != nil || emb.Name() != "hash" || emb.Dimensions() != 128 {
		t.Fatalf("Embedder = %v, %v", emb, err)
	}
	llm, err := f.LLM(ctx)
	if err != nil || llm.Name() != "lorem" {
		t.Fatalf("LLM = %v, %v", llm, err)
	}
	idx, err := f.VectorIndex(ctx, nil, "dev_chunks", 128)
	if err != nil || idx.Name() != "memory" {
		t.Fatalf("VectorIndex = %v, %v", idx, err)
	}
	if _, err := f.Renderer(); err != nil {
		t.Fatalf("Renderer: %v", err)
	}
}

func TestFactory_MissingKeysAndUnknownNames(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  config.Config
		call func(*Factory) error
	}{
		{"cohere without key", config.Config{EmbeddingProvider: "cohere"}, func(f *Factory) error { _, err := f.Embedder(ctx); return err }},
		{"openai embedder without key", config.Config{EmbeddingProvider: "openai"}, func(f *Factory) error { _, err := f.Embedder(ctx); return err }},
		{"unknown embedder", config.Config{EmbeddingProvider: "word2vec"}, func(f *Factory) error { _, err := f.Embedder(ctx); return err }},
		{"groq without key", config.Config{LLMProvider: "groq"}, func(f *Factory) error { _, err := f.LLM(ctx); return err }},
		{"anthropic without key", config.Config{LLMProvider: "anthropic"}, func(f *Factory) error { _, err := f.LLM(ctx); return err }},
		{"unknown llm", config.Config{LLMProvider: "eliza"}, func(f *Factory) error { _, err := f.LLM(ctx); return err }},
		{"pgvector without pool", config.Config{VectorStore: "pgvector"}, func(f *Factory) error {
			_, err := f.VectorIndex(ctx, nil, "dev_chunks", 8)
			return err
		}},
		{"pinecone without key", config.Config{VectorStore: "pinecone", PineconeIndex: "botcraft"}, func(f *Factory) error {
			_, err := f.VectorIndex(ctx, nil, "dev_chunks", 8)
			return err
		}},
		{"unknown store", config.Config{VectorStore: "faiss"}, func(f *Factory) error {
			_, err := f.VectorIndex(ctx, nil, "dev_chunks", 8)
			return err
		}},
		{"unknown renderer", config.Config{URLRenderer: "curl"}, func(f *Factory) error { _, err := f.Renderer(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if err := tt.call(testFactory(&cfg)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
