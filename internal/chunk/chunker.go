// Package chunk splits source text into overlapping fixed-size windows for
// embedding and retrieval.
package chunk

import "fmt"

const (
	// DefaultSize and DefaultOverlap match the windows the source corpus was
	// indexed with; changing them requires a full re-index.
	DefaultSize    = 1000
	DefaultOverlap = 150
)

// Chunk is one window of a source document. Ordinal preserves the original
// order so a document could be reassembled from its chunks.
type Chunk struct {
	Text    string
	Ordinal int
}

// Split slices text into windows of at most size runes, each advancing by
// size-overlap. Requires 0 <= overlap < size. Every rune of the input is
// covered by at least one chunk.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d", overlap)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := size - overlap
	var chunks []Chunk
	for start := 0; ; start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Text:    string(runes[start:end]),
			Ordinal: len(chunks),
		})
		// A window that already touched the end covers the whole tail; a
		// further window would only duplicate overlap.
		if start+size >= len(runes) {
			break
		}
	}
	return chunks, nil
}
