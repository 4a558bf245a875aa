package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Hash is a local feature-hashing embedder: lower-cased word and bigram
// features are hashed into a fixed number of buckets and L2-normalised.
// Texts sharing vocabulary land close together, which is enough for demo
// mode and tests. It never calls the network.
type Hash struct {
	dimensions int
}

// NewHash returns a Hash embedder producing vectors of the given length.
func NewHash(dimensions int) *Hash {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &Hash{dimensions: dimensions}
}

func (h *Hash) Name() string    { return "hash" }
func (h *Hash) Dimensions() int { return h.dimensions }

func (h *Hash) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return embedInBatches(ctx, texts, 0, h.dimensions, func(ctx context.Context, batch []string) ([][]float32, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := make([][]float32, len(batch))
		for i, t := range batch {
			out[i] = h.vector(t)
		}
		return out, nil
	})
}

func (h *Hash) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := h.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (h *Hash) vector(text string) []float32 {
	v := make([]float32, h.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	add := func(feature string, weight float32) {
		f := fnv.New32a()
		_, _ = f.Write([]byte(feature))
		sum := f.Sum32()
		idx := int(sum % uint32(h.dimensions))
		// the top bit picks the sign so collisions partly cancel
		if sum&(1<<31) != 0 {
			v[idx] -= weight
		} else {
			v[idx] += weight
		}
	}
	for i, w := range words {
		add(w, 1)
		if i > 0 {
			add(words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range v {
			v[i] /= n
		}
	}
	return v
}
