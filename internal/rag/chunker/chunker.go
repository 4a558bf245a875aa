// Package chunker splits extracted document text into overlapping windows
// sized for embedding.
package chunker

import (
	"fmt"
	"strings"

	"botcraft/internal/domain"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 100
)

// boundaries are tried in order; within one level the latest match wins.
var boundaries = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? "},
	{" "},
}

// Splitter cuts text into windows of at most Size runes. Consecutive windows
// share exactly Overlap runes. A window can be whitespace only when the text
// holds a blank run longer than the window; it is still returned so the
// overlap holds, and callers that embed chunks skip it.
type Splitter struct {
	Size    int
	Overlap int
}

// New returns a Splitter after checking its parameters.
func New(size, overlap int) (*Splitter, error) {
	s := &Splitter{Size: size, Overlap: overlap}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Splitter) validate() error {
	if s.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrValidation, s.Size)
	}
	if s.Overlap < 0 || s.Overlap >= s.Size {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrValidation, s.Size, s.Overlap)
	}
	return nil
}

// Split is shorthand for New(size, overlap) followed by Split.
func Split(text string, size, overlap int) ([]string, error) {
	s, err := New(size, overlap)
	if err != nil {
		return nil, err
	}
	return s.Split(text), nil
}

// Split returns the chunks of text. Blank input yields no chunks and input
// that already fits is returned unchanged as a single chunk.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.Size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + s.Size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		// a cut before minEnd would leave the next window starting at or
		// before this one
		minEnd := start + s.Overlap + 1
		if half := start + s.Size/2; half > minEnd {
			minEnd = half
		}
		end = naturalEnd(runes, minEnd, end)

		chunks = append(chunks, string(runes[start:end]))
		start = end - s.Overlap
	}
	return chunks
}

// NonBlank returns the chunks that hold any non-space text.
func NonBlank(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

// naturalEnd returns the latest cut position in [minEnd, maxEnd] that falls
// right after a boundary, or maxEnd when there is none.
func naturalEnd(runes []rune, minEnd, maxEnd int) int {
	for _, level := range boundaries {
		best := -1
		for _, sep := range level {
			if cut := lastCut(runes, []rune(sep), minEnd, maxEnd); cut > best {
				best = cut
			}
		}
		if best >= 0 {
			return best
		}
	}
	return maxEnd
}

// lastCut finds the last occurrence of sep ending inside [minEnd, maxEnd] and
// returns the index just past it.
func lastCut(runes, sep []rune, minEnd, maxEnd int) int {
	for cut := maxEnd; cut >= minEnd; cut-- {
		i := cut - len(sep)
		if i < 0 {
			break
		}
		if equalRunes(runes[i:cut], sep) {
			return cut
		}
	}
	return -1
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
