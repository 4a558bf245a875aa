// Package providers builds the configured RAG backends: embedder, LLM,
// vector index and page renderer.
package providers

import (
	"context"
	"fmt"
	"log/slog"

	"botcraft/internal/config"
	"botcraft/internal/rag/embedder"
	"botcraft/internal/rag/generator"
	"botcraft/internal/rag/loader"
	"botcraft/internal/rag/vectorindex"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Factory creates provider instances from configuration.
type Factory struct {
	config *config.Config
	logger *slog.Logger
}

// NewFactory creates a new provider factory
func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	return &Factory{config: cfg, logger: logger}
}

// Embedder returns the embedder named by EMBEDDING_PROVIDER.
//
// Supported providers:
//   - "cohere" - Cohere embed v3 (default)
//   - "openai" - any OpenAI-compatible embeddings API
//   - "gemini" - Google Gemini embeddings
//   - "hash"   - local feature hashing, no API key (demo mode)
func (f *Factory) Embedder(ctx context.Context) (embedder.Embedder, error) {
	cfg := f.config
	switch cfg.EmbeddingProvider {
	case "cohere":
		if cfg.CohereAPIKey == "" {
			return nil, fmt.Errorf("COHERE_API_KEY environment variable not set")
		}
		return embedder.NewCohere(embedder.CohereConfig{
			APIKey:     cfg.CohereAPIKey,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		})

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		return embedder.NewOpenAI(embedder.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		})

	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
		return embedder.NewGemini(ctx, embedder.GeminiConfig{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		})

	case "hash":
		return embedder.NewHash(cfg.EmbeddingDimensions), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

// LLM returns the chat model named by LLM_PROVIDER.
//
// Supported providers:
//   - "groq"      - Groq's OpenAI-compatible API (default)
//   - "openai"    - OpenAI or any OpenAI-compatible API at OPENAI_BASE_URL
//   - "anthropic" - Claude via the Messages API
//   - "gemini"    - Google Gemini
//   - "lorem"     - canned context echo, no API key (demo mode)
func (f *Factory) LLM(ctx context.Context) (generator.LLM, error) {
	cfg := f.config
	switch cfg.LLMProvider {
	case "groq":
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
		return generator.NewGroq(cfg.GroqAPIKey, cfg.LLMModel)

	case "openai":
		model := cfg.LLMModel
		if model == "" {
			model = generator.DefaultOpenAIModel
		}
		return generator.NewOpenAICompatible("openai", cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model)

	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
		return generator.NewAnthropic(cfg.AnthropicAPIKey, cfg.LLMModel)

	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
		return generator.NewGemini(ctx, cfg.GeminiAPIKey, cfg.LLMModel)

	case "lorem":
		return generator.NewLorem(), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLMProvider)
	}
}

// VectorIndex returns the store named by VECTOR_STORE. pool may be nil
// unless the pgvector backend is selected.
func (f *Factory) VectorIndex(ctx context.Context, pool *pgxpool.Pool, chunkTable string, dimensions int) (*vectorindex.Index, error) {
	cfg := f.config
	switch cfg.VectorStore {
	case "pgvector":
		if pool == nil {
			return nil, fmt.Errorf("pgvector store requires DATABASE_URL")
		}
		return vectorindex.NewPgvector(pool, chunkTable, dimensions, f.logger), nil

	case "chroma":
		return vectorindex.NewChroma(ctx, cfg.ChromaURL, cfg.ChromaCollection, dimensions, f.logger)

	case "pinecone":
		if cfg.PineconeAPIKey == "" {
			return nil, fmt.Errorf("PINECONE_API_KEY environment variable not set")
		}
		return vectorindex.NewPinecone(ctx, vectorindex.PineconeConfig{
			APIKey: cfg.PineconeAPIKey,
			Index:  cfg.PineconeIndex,
			Host:   cfg.PineconeHost,
		}, dimensions, f.logger)

	case "memory":
		return vectorindex.NewMemory(dimensions, f.logger), nil

	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.VectorStore)
	}
}

// Renderer returns the page renderer named by URL_RENDERER.
func (f *Factory) Renderer() (loader.Renderer, error) {
	switch f.config.URLRenderer {
	case "chromedp", "":
		return loader.NewBrowserRenderer(), nil
	case "static":
		return loader.NewStaticRenderer(nil), nil
	default:
		return nil, fmt.Errorf("unsupported url renderer: %s", f.config.URLRenderer)
	}
}
