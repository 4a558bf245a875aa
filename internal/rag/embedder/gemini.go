package embedder

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "text-embedding-004"
	geminiMaxBatch     = 100
)

// GeminiConfig configures the Gemini embedding client.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Dimensions int
	MaxRetries int
}

// Gemini embeds with the Gemini API.
type Gemini struct {
	client     *genai.Client
	model      string
	dimensions int
	retry      retryPolicy
}

// NewGemini creates a Gemini embedder.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		retry:      defaultRetryPolicy(cfg.MaxRetries),
	}, nil
}

func (g *Gemini) Name() string    { return "gemini" }
func (g *Gemini) Dimensions() int { return g.dimensions }

func (g *Gemini) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return embedInBatches(ctx, texts, geminiMaxBatch, g.dimensions, func(ctx context.Context, batch []string) ([][]float32, error) {
		return g.retry.do(ctx, g.Name(), g.embedFunc("RETRIEVAL_DOCUMENT"), batch)
	})
}

func (g *Gemini) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := embedInBatches(ctx, []string{text}, 1, g.dimensions, func(ctx context.Context, batch []string) ([][]float32, error) {
		return g.retry.do(ctx, g.Name(), g.embedFunc("RETRIEVAL_QUERY"), batch)
	})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (g *Gemini) embedFunc(taskType string) batchFunc {
	return func(ctx context.Context, texts []string) ([][]float32, error) {
		return g.embed(ctx, texts, taskType)
	}
}

func (g *Gemini) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{TaskType: taskType}
	if g.dimensions > 0 {
		dims := int32(g.dimensions)
		cfg.OutputDimensionality = &dims
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, wrapProviderError(g.Name(), err)
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}
