package generator

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	GroqBaseURL      = "https://api.groq.com/openai/v1"
	DefaultGroqModel = "llama-3.1-8b-instant"

	DefaultOpenAIModel = "gpt-4o-mini"
)

// OpenAICompatible calls any OpenAI-compatible chat API, Groq by default.
type OpenAICompatible struct {
	llm  *openai.LLM
	name string
}

// NewGroq returns a Groq-backed LLM.
func NewGroq(apiKey, model string) (*OpenAICompatible, error) {
	if model == "" {
		model = DefaultGroqModel
	}
	return NewOpenAICompatible("groq", apiKey, GroqBaseURL, model)
}

// NewOpenAICompatible returns an LLM for the API at baseURL. An empty
// baseURL means api.openai.com.
func NewOpenAICompatible(name, apiKey, baseURL, model string) (*OpenAICompatible, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key is required", name)
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", name, err)
	}
	return &OpenAICompatible{llm: llm, name: name}, nil
}

func (o *OpenAICompatible) Name() string { return o.name }

func (o *OpenAICompatible) Complete(ctx context.Context, c Completion) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, c.System),
		llms.TextParts(llms.ChatMessageTypeHuman, c.User),
	}

	resp, err := o.llm.GenerateContent(ctx, messages,
		llms.WithMaxTokens(c.MaxTokens),
		llms.WithTemperature(c.Temperature),
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", o.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}
