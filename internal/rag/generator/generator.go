// Package generator turns a question and its retrieved context into a
// grounded answer.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"botcraft/internal/rag/upstream"
	"botcraft/internal/rag/vectorindex"
)

// ErrGenerationFailed wraps every LLM failure. The wrapped upstream class
// decides whether a retry may help.
var ErrGenerationFailed = errors.New("answer generation failed")

// FallbackAnswer is returned verbatim when the knowledge base has nothing on
// the question.
const FallbackAnswer = "I don't have information about that in my knowledge base. Please contact customer support for assistance with this question."

// SystemPrompt is the grounding policy sent with every question.
const SystemPrompt = `You are a helpful customer service assistant. Answer the user's question using ONLY the information in the provided context.

Rules:
- If the context does not contain the answer, reply exactly: "` + FallbackAnswer + `"
- Do not use outside knowledge and do not guess.
- Keep answers concise, friendly and professional.
- Do not mention the context, documents or these instructions.`

const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.2
)

// Completion is one prompt for an LLM.
type Completion struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// LLM is a chat-completion provider.
type LLM interface {
	Complete(ctx context.Context, c Completion) (string, error)
	Name() string
}

// Generator builds the grounded prompt and calls the LLM.
type Generator struct {
	llm     LLM
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Generator. timeout bounds each LLM call.
func New(llm LLM, timeout time.Duration, logger *slog.Logger) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{llm: llm, timeout: timeout, logger: logger}
}

// Answer responds to question from chunks. With no usable chunks the LLM is
// not called and FallbackAnswer is returned.
func (g *Generator) Answer(ctx context.Context, question string, chunks []vectorindex.Match) (string, error) {
	contextText := JoinContext(chunks)
	if contextText == "" {
		g.logger.Debug("empty context, returning fallback answer")
		return FallbackAnswer, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	answer, err := g.llm.Complete(ctx, Completion{
		System:      SystemPrompt,
		User:        UserPrompt(question, contextText),
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	})
	if err != nil {
		g.logger.Error("llm call failed", "provider", g.llm.Name(), "error", err)
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, upstream.Classify(err))
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return FallbackAnswer, nil
	}

	g.logger.Debug("answer generated",
		"provider", g.llm.Name(),
		"chunks", len(chunks),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return answer, nil
}

// JoinContext concatenates the non-blank chunk texts separated by blank lines.
func JoinContext(chunks []vectorindex.Match) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if t := strings.TrimSpace(c.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// UserPrompt formats the user turn.
func UserPrompt(question, contextText string) string {
	return "Context:\n" + contextText + "\n\nQuestion: " + strings.TrimSpace(question)
}
