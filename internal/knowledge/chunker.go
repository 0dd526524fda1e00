// Package knowledge manages the grounding corpus: document ingestion into
// the vector store and retrieval of context for conversation turns.
package knowledge

import "strings"

const (
	// DefaultChunkSize is the target chunk length in runes.
	DefaultChunkSize = 800
	// DefaultChunkOverlap is how many runes consecutive chunks share.
	DefaultChunkOverlap = 100
)

// Chunk splits text into overlapping windows of at most size runes. Overlap
// must be smaller than size; values out of range fall back to the defaults.
// Whitespace-only chunks are dropped.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
