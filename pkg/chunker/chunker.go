// Package chunker splits extracted document text into fixed-length chunks
// sized for embedding models.
package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidChunkSize is returned when Split is called with a chunk size
// of zero or less.
var ErrInvalidChunkSize = errors.New("chunk size must be positive")

// Split breaks text into consecutive chunks of at most chunkSize characters.
// The final chunk carries the remainder and may be shorter. Concatenating
// the returned chunks reproduces the input exactly. Empty input yields an
// empty slice.
func Split(text string, chunkSize int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, chunkSize)
	}

	if text == "" {
		return []string{}, nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+chunkSize-1)/chunkSize)
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks, nil
}
