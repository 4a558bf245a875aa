package embedder

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	DefaultOpenAIModel = "text-embedding-3-small"
	openAIMaxBatch     = 512
)

// OpenAIConfig configures an OpenAI-compatible embedding endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	MaxRetries int
}

// OpenAI embeds through any OpenAI-compatible /embeddings API.
type OpenAI struct {
	embedder   *embeddings.EmbedderImpl
	dimensions int
	retry      retryPolicy
}

// NewOpenAI creates an OpenAI-compatible embedder.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(llm,
		embeddings.WithBatchSize(openAIMaxBatch),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &OpenAI{embedder: emb, dimensions: cfg.Dimensions, retry: defaultRetryPolicy(cfg.MaxRetries)}, nil
}

func (o *OpenAI) Name() string    { return "openai" }
func (o *OpenAI) Dimensions() int { return o.dimensions }

func (o *OpenAI) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	embed := func(ctx context.Context, batch []string) ([][]float32, error) {
		vectors, err := o.embedder.EmbedDocuments(ctx, batch)
		return vectors, wrapProviderError(o.Name(), err)
	}
	return embedInBatches(ctx, texts, openAIMaxBatch, o.dimensions, func(ctx context.Context, batch []string) ([][]float32, error) {
		return o.retry.do(ctx, o.Name(), embed, batch)
	})
}

func (o *OpenAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embed := func(ctx context.Context, batch []string) ([][]float32, error) {
		v, err := o.embedder.EmbedQuery(ctx, batch[0])
		if err != nil {
			return nil, wrapProviderError(o.Name(), err)
		}
		return [][]float32{v}, nil
	}
	vectors, err := embedInBatches(ctx, []string{text}, 1, o.dimensions, func(ctx context.Context, batch []string) ([][]float32, error) {
		return o.retry.do(ctx, o.Name(), embed, batch)
	})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
