package generator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"botcraft/internal/domain"
	"botcraft/internal/rag/vectorindex"
)

type mockLLM struct {
	mu     sync.Mutex
	calls  []Completion
	answer string
	err    error
	delay  time.Duration
}

func (m *mockLLM) Name() string { return "mock" }

func (m *mockLLM) Complete(ctx context.Context, c Completion) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.answer, m.err
}

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnswer_EmptyContextSkipsLLM(t *testing.T) {
	tests := []struct {
		name   string
		chunks []vectorindex.Match
	}{
		{"nil", nil},
		{"no matches", []vectorindex.Match{}},
		{"blank texts", []vectorindex.Match{{Text: "  "}, {Text: "\n"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &mockLLM{answer: "made up"}
			g := New(llm, time.Second, discardLogger())

			got, err := g.Answer(context.Background(), "what is the capital of France?", tt.chunks)
			if err != nil {
				t.Fatalf("Answer: %v", err)
			}
			if got != FallbackAnswer {
				t.Errorf("got %q, want fallback answer", got)
			}
			if llm.callCount() != 0 {
				t.Errorf("LLM called %d times with empty context", llm.callCount())
			}
		})
	}
}

func TestAnswer_BuildsGroundedPrompt(t *testing.T) {
	llm := &mockLLM{answer: "  Returns are accepted within 30 days.  "}
	g := New(llm, time.Second, discardLogger())

	chunks := []vectorindex.Match{
		{Text: "Returns are accepted within 30 days."},
		{Text: "Refunds go to the original payment method."},
	}
	got, err := g.Answer(context.Background(), " How long do I have to return? ", chunks)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "Returns are accepted within 30 days." {
		t.Errorf("answer not trimmed: %q", got)
	}

	if llm.callCount() != 1 {
		t.Fatalf("expected 1 LLM call, got %d", llm.callCount())
	}
	c := llm.calls[0]
	if c.System != SystemPrompt {
		t.Error("system prompt not used")
	}
	want := "Context:\nReturns are accepted within 30 days.\n\nRefunds go to the original payment method.\n\nQuestion: How long do I have to return?"
	if c.User != want {
		t.Errorf("user prompt = %q\nwant %q", c.User, want)
	}
	if !strings.Contains(SystemPrompt, FallbackAnswer) {
		t.Error("system prompt must carry the fallback sentence")
	}
}

func TestAnswer_BlankCompletionFallsBack(t *testing.T) {
	g := New(&mockLLM{answer: "   "}, time.Second, discardLogger())
	got, err := g.Answer(context.Background(), "q", []vectorindex.Match{{Text: "ctx"}})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != FallbackAnswer {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestAnswer_Errors(t *testing.T) {
	tests := []struct {
		name      string
		llm       *mockLLM
		timeout   time.Duration
		retryable bool
	}{
		{"provider 503", &mockLLM{err: errors.New("API returned unexpected status code: 503: overloaded")}, time.Second, true},
		{"provider 401", &mockLLM{err: errors.New("API returned unexpected status code: 401: bad key")}, time.Second, false},
		{"timeout", &mockLLM{delay: time.Second, answer: "late"}, 50 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.llm, tt.timeout, discardLogger())
			_, err := g.Answer(context.Background(), "q", []vectorindex.Match{{Text: "ctx"}})
			if !errors.Is(err, ErrGenerationFailed) {
				t.Fatalf("expected ErrGenerationFailed, got %v", err)
			}
			if got := domain.IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v (err %v)", got, tt.retryable, err)
			}
		})
	}
}

func TestLorem_QuotesContext(t *testing.T) {
	l := NewLorem()
	prompt := UserPrompt("when do you open?", JoinContext([]vectorindex.Match{
		{Text: "We open at 9am   on weekdays."},
		{Text: "Closed on Sundays."},
	}))

	got, err := l.Complete(context.Background(), Completion{System: SystemPrompt, User: prompt})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.HasPrefix(got, "[demo] From your documents: We open at 9am on weekdays.") {
		t.Errorf("unexpected demo answer %q", got)
	}
	if strings.Contains(got, "Closed on Sundays") {
		t.Error("demo answer should quote only the first passage")
	}
}

func TestDemoExcerpt_Truncates(t *testing.T) {
	long := strings.Repeat("word ", 200)
	got := demoExcerpt(UserPrompt("q", long))
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncation marker, got %q", got[len(got)-10:])
	}
	if n := len([]rune(got)); n != demoExcerptLength+3 {
		t.Errorf("excerpt has %d runes, want %d", n, demoExcerptLength+3)
	}
}
