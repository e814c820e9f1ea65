// Package chunker splits extracted PDF text into fixed, overlapping
// token windows suitable for embedding.
package chunker

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	domain "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
)

// WindowChunker splits text into chunkSize-token windows advancing by
// chunkSize-overlap tokens, always including the final short window.
type WindowChunker struct {
	ChunkSize int
	Overlap   int
	encoder   *tiktoken.Tiktoken
}

// NewWindowChunker constructs a chunker with the given window. A
// non-positive chunkSize defaults to 512 tokens and a negative overlap
// is clamped to 0; an overlap not smaller than chunkSize is rejected.
func NewWindowChunker(chunkSize, overlap int) (*WindowChunker, error) {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", overlap, chunkSize)
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding: %w", err)
	}
	return &WindowChunker{ChunkSize: chunkSize, Overlap: overlap, encoder: enc}, nil
}

// Chunk slides a fixed token window over text, decoding each window
// back to text and tracking its character offset in the cleaned source.
func (c *WindowChunker) Chunk(text string) ([]domain.ChunkCandidate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	tokens := c.encoder.Encode(text, nil, nil)
	total := len(tokens)
	if total == 0 {
		return nil, nil
	}
	step := c.ChunkSize - c.Overlap

	var out []domain.ChunkCandidate
	for i := 0; i < total; i += step {
		end := i + c.ChunkSize
		if end > total {
			end = total
		}
		window := tokens[i:end]
		chunkText := c.encoder.Decode(window)
		startChar := len(c.encoder.Decode(tokens[:i]))
		out = append(out, domain.ChunkCandidate{
			Index:      len(out),
			Text:       chunkText,
			TokenCount: len(window),
			StartChar:  startChar,
			EndChar:    startChar + len(chunkText),
		})
		if end >= total {
			break
		}
	}
	return out, nil
}

var _ domain.Chunker = (*WindowChunker)(nil)
