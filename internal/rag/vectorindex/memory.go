package vectorindex

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
)

type memoryBackend struct {
	mu      sync.RWMutex
	tenants map[string][]Record
}

// NewMemory returns an in-process index. Data does not survive a restart.
func NewMemory(dimensions int, logger *slog.Logger) *Index {
	return newIndex("memory", &memoryBackend{tenants: make(map[string][]Record)}, dimensions, logger)
}

func (m *memoryBackend) upsert(ctx context.Context, tenant string, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	copied := make([]Record, len(records))
	for i, r := range records {
		v := make([]float32, len(r.Vector))
		copy(v, r.Vector)
		copied[i] = Record{Vector: v, Text: r.Text, Source: r.Source}
	}

	m.mu.Lock()
	m.tenants[tenant] = append(m.tenants[tenant], copied...)
	m.mu.Unlock()
	return nil
}

func (m *memoryBackend) query(ctx context.Context, tenant string, vector []float32, k int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	records := m.tenants[tenant]
	matches := make([]Match, 0, len(records))
	for _, r := range records {
		matches = append(matches, Match{
			Text:   r.Text,
			Source: r.Source,
			Score:  cosine(vector, r.Vector),
		})
	}
	m.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *memoryBackend) deleteAll(ctx context.Context, tenant string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.tenants, tenant)
	m.mu.Unlock()
	return nil
}

func (m *memoryBackend) close() error { return nil }

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
