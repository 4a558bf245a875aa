package generator

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	loremgen "github.com/bozaro/golorem"
)

const demoExcerptLength = 240

// Lorem is the demo-mode LLM. It never calls a provider: the answer quotes
// the start of the retrieved context and pads it with placeholder text.
type Lorem struct {
	mu        sync.Mutex
	generator *loremgen.Lorem
}

func NewLorem() *Lorem {
	return &Lorem{generator: loremgen.New()}
}

func (l *Lorem) Name() string { return "lorem" }

func (l *Lorem) Complete(ctx context.Context, c Completion) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	excerpt := demoExcerpt(c.User)
	if excerpt == "" {
		return FallbackAnswer, nil
	}

	// golorem keeps internal state
	l.mu.Lock()
	filler := l.generator.Sentence(5, 12)
	l.mu.Unlock()

	return "[demo] From your documents: " + excerpt + " " + filler, nil
}

// demoExcerpt pulls the first context passage out of a UserPrompt.
func demoExcerpt(userPrompt string) string {
	body := strings.TrimPrefix(userPrompt, "Context:\n")
	if i := strings.Index(body, "\n\nQuestion:"); i >= 0 {
		body = body[:i]
	}
	if i := strings.Index(body, "\n\n"); i >= 0 {
		body = body[:i]
	}
	body = strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(body) > demoExcerptLength {
		body = string([]rune(body)[:demoExcerptLength]) + "..."
	}
	return body
}
