package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SplitterConfig configures the chunk splitter. Sizes are in characters (runes).
type SplitterConfig struct {
	// ChunkSize is the maximum characters per chunk
	ChunkSize int

	// Overlap is the character overlap between consecutive chunks
	Overlap int

	// BoundaryWindow is how far back from a hard cut to look for a natural break
	BoundaryWindow int
}

// DefaultSplitterConfig returns the defaults used for course documents.
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		ChunkSize:      domain.DefaultChunkSize,
		Overlap:        domain.DefaultChunkOverlap,
		BoundaryWindow: 100,
	}
}

// Validate checks the size constraints.
func (c SplitterConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, c.ChunkSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrInvalidConfig, c.Overlap, c.ChunkSize)
	}
	if c.BoundaryWindow < 0 {
		return fmt.Errorf("%w: boundary window must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}

// Separators in order of preference. A break lands right after the separator.
var (
	paragraphSeparators = [][]rune{[]rune("\n\n")}
	lineSeparators      = [][]rune{[]rune("\n")}
	sentenceSeparators  = [][]rune{
		[]rune(". "), []rune("! "), []rune("? "),
		[]rune("; "), []rune("… "),
	}
	wordSeparators = [][]rune{[]rune(" "), []rune("\t")}
)

// Splitter cuts preprocessed text into overlapping chunks.
//
// Consecutive chunks share exactly Overlap characters: chunk i+1 starts
// Overlap characters before chunk i ends. Dropping the leading Overlap
// characters of every chunk but the first and concatenating therefore
// rebuilds the input.
type Splitter struct {
	config SplitterConfig
}

// NewSplitter creates a splitter, rejecting overlap >= chunk size.
func NewSplitter(config SplitterConfig) (*Splitter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Splitter{config: config}, nil
}

// Config returns the splitter configuration.
func (s *Splitter) Config() SplitterConfig {
	return s.config
}

// Split splits text into chunks that all carry a copy of base.
// Empty text yields no chunks; text no longer than ChunkSize yields one.
func (s *Splitter) Split(text string, base domain.Metadata) ([]domain.Chunk, error) {
	if base.DocumentID == "" {
		return nil, fmt.Errorf("%w: chunk metadata requires a document id", domain.ErrInvalidInput)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	var chunks []domain.Chunk
	start := 0
	for {
		end := start + s.config.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.findBreakPoint(runes, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			Text:        string(runes[start:end]),
			Metadata:    base.Clone(),
			Position:    len(chunks),
			StartOffset: start,
			EndOffset:   end,
		})

		if end == len(runes) {
			return chunks, nil
		}
		start = end - s.config.Overlap
	}
}

// findBreakPoint finds a good break point in (start+Overlap, maxEnd].
// Breaks never fall at or before start+Overlap so the next chunk always advances.
func (s *Splitter) findBreakPoint(runes []rune, start, maxEnd int) int {
	floor := start + s.config.Overlap + 1
	searchStart := maxEnd - s.config.BoundaryWindow
	if searchStart < floor {
		searchStart = floor
	}
	if searchStart >= maxEnd {
		return maxEnd
	}

	window := runes[searchStart:maxEnd]
	for _, group := range [][][]rune{paragraphSeparators, lineSeparators, sentenceSeparators, wordSeparators} {
		if idx := lastIndexAny(window, group); idx > 0 {
			return searchStart + idx
		}
	}

	// No good break point found, hard cut
	return maxEnd
}

// lastIndexAny returns the position just after the last occurrence of any separator, or -1.
func lastIndexAny(window []rune, separators [][]rune) int {
	best := -1
	for _, sep := range separators {
		for i := len(window) - len(sep); i >= 0; i-- {
			if hasPrefix(window[i:], sep) {
				if end := i + len(sep); end > best {
					best = end
				}
				break
			}
		}
	}
	return best
}

func hasPrefix(s, prefix []rune) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := range prefix {
		if s[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Reconstruct rebuilds the split text from chunks produced with the given overlap.
func Reconstruct(chunks []domain.Chunk, overlap int) string {
	var out []rune
	for i, c := range chunks {
		r := []rune(c.Text)
		if i > 0 {
			r = r[overlap:]
		}
		out = append(out, r...)
	}
	return string(out)
}
