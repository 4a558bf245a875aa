package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"botcraft/internal/rag/upstream"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/core"
	"github.com/cohere-ai/cohere-go/v2/option"
)

const (
	DefaultCohereModel = "embed-english-v3.0"
	// CohereMaxBatch is the provider limit of texts per embed call.
	CohereMaxBatch = 96
)

// CohereConfig configures the Cohere embed client. An empty BaseURL uses
// the SDK default.
type CohereConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// Cohere calls the Cohere embed endpoint through the official SDK.
type Cohere struct {
	client     *cohereclient.Client
	model      string
	dimensions int
	retry      retryPolicy
}

// NewCohere creates a Cohere embedder.
func NewCohere(cfg CohereConfig) (*Cohere, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCohereModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithToken(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		// retries go through retryPolicy like every other provider
		option.WithMaxAttempts(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Cohere{
		client:     cohereclient.NewClient(opts...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		retry:      defaultRetryPolicy(cfg.MaxRetries),
	}, nil
}

func (c *Cohere) Name() string    { return "cohere" }
func (c *Cohere) Dimensions() int { return c.dimensions }

func (c *Cohere) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return embedInBatches(ctx, texts, CohereMaxBatch, c.dimensions, func(ctx context.Context, batch []string) ([][]float32, error) {
		return c.retry.do(ctx, c.Name(), c.embedFunc(cohere.EmbedInputTypeSearchDocument), batch)
	})
}

func (c *Cohere) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := embedInBatches(ctx, []string{text}, 1, c.dimensions, func(ctx context.Context, batch []string) ([][]float32, error) {
		return c.retry.do(ctx, c.Name(), c.embedFunc(cohere.EmbedInputTypeSearchQuery), batch)
	})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Cohere) embedFunc(inputType cohere.EmbedInputType) batchFunc {
	return func(ctx context.Context, batch []string) ([][]float32, error) {
		resp, err := c.client.Embed(ctx, &cohere.EmbedRequest{
			Texts:     batch,
			Model:     cohere.String(c.model),
			InputType: inputType.Ptr(),
			Truncate:  cohere.EmbedRequestTruncateEnd.Ptr(),
		})
		if err != nil {
			return nil, wrapProviderError(c.Name(), statusOf(err))
		}
		if resp.EmbeddingsFloats == nil {
			return nil, fmt.Errorf("%w: cohere returned %q embeddings", ErrProviderUnavailable, resp.ResponseType)
		}
		return toFloat32(resp.EmbeddingsFloats.Embeddings), nil
	}
}

// statusOf turns SDK API errors into upstream.StatusError so they are
// classified by status code.
func statusOf(err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return &upstream.StatusError{Provider: "cohere", Code: apiErr.StatusCode, Body: apiErr.Error()}
	}
	return err
}

func toFloat32(in [][]float64) [][]float32 {
	out := make([][]float32, len(in))
	for i, v := range in {
		f := make([]float32, len(v))
		for j, x := range v {
			f[j] = float32(x)
		}
		out[i] = f
	}
	return out
}
