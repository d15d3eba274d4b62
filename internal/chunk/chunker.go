// Package chunk splits extracted pages into bounded, overlapping passages.
package chunk

import (
	"log/slog"

	"github.com/regwatch/tariffqa/internal/document"
)

const (
	// DefaultChunkSize is the target passage length in characters.
	DefaultChunkSize = 300

	// DefaultOverlap is the trailing context carried into the next passage.
	DefaultOverlap = 30
)

// Chunker turns pages into indexable chunks. Pages short enough to stand
// on their own pass through unchanged; longer pages are split with overlap
// so tariff figures near a boundary stay readable in both passages.
type Chunker struct {
	chunkSize int
	splitter  *Splitter
	logger    *slog.Logger
}

// NewChunker creates a chunker. chunkSize or overlap at or below zero
// select the defaults.
func NewChunker(chunkSize, overlap int, logger *slog.Logger) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap <= 0 {
		overlap = DefaultOverlap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{
		chunkSize: chunkSize,
		splitter:  NewSplitter(chunkSize, overlap),
		logger:    logger,
	}
}

// Chunk converts pages into chunks. A page whose content is at most
// 1.5x the chunk size becomes exactly one chunk with content, page number
// and source preserved. Longer pages are split. Malformed pages are
// skipped with a warning; one bad page never fails the batch.
func (c *Chunker) Chunk(pages []document.Page) []document.Chunk {
	var chunks []document.Chunk
	for _, page := range pages {
		if !page.Valid() {
			c.logger.Warn("Skipping page with empty content",
				"source", page.Source, "page", page.PageNumber)
			continue
		}

		if len(page.Content) <= c.chunkSize*3/2 {
			chunks = append(chunks, document.Chunk{
				PageNumber: page.PageNumber,
				Content:    page.Content,
				Source:     page.Source,
			})
			continue
		}

		for _, piece := range c.splitter.Split(page.Content) {
			chunks = append(chunks, document.Chunk{
				PageNumber: page.PageNumber,
				Content:    piece,
				Source:     page.Source,
			})
		}
	}
	return chunks
}
