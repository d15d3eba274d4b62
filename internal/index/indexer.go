// Package index deduplicates chunks by content hash and writes them to the
// retrieval backends in batches.
package index

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/regwatch/tariffqa/internal/document"
)

// DefaultBatchSize is the number of entries submitted per backend write.
const DefaultBatchSize = 100

// DenseWriter stores entries in the vector backend.
type DenseWriter interface {
	Add(ctx context.Context, entries []document.IndexEntry) error
}

// LexicalWriter stores entries in the keyword backend.
type LexicalWriter interface {
	Add(ctx context.Context, entries []document.IndexEntry) error
}

// IndexResult reports what a single Index call did. FailedBatches lets
// callers distinguish a degraded run from a clean one without parsing logs.
type IndexResult struct {
	Entries       int // unique entries after in-call dedup
	Duplicates    int // chunks dropped as exact duplicates
	Indexed       int // entries durably written to the dense backend
	Aborted       bool
	FailedBatches []BatchError
}

// BatchError records one failed backend write. The entry range is
// [Start, End) over the deduplicated entry list.
type BatchError struct {
	Backend string // "dense" or "lexical"
	Start   int
	End     int
	Reason  string
}

// Degraded reports whether any batch write failed.
func (r *IndexResult) Degraded() bool {
	return len(r.FailedBatches) > 0
}

// Indexer hashes chunks into content-addressed entries and writes them to
// the dense backend and, when configured, a secondary lexical backend.
// The two backends are independent: a failure writing one never rolls
// back or blocks the other.
type Indexer struct {
	dense       DenseWriter
	lexical     LexicalWriter // optional
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// NewIndexer creates an indexer. batchSize at or below zero selects
// DefaultBatchSize; concurrency at or below one submits batches
// sequentially. lexical may be nil for dense-only deployments.
func NewIndexer(dense DenseWriter, lexical LexicalWriter, batchSize, concurrency int, logger *slog.Logger) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		dense:       dense,
		lexical:     lexical,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Deduplicate converts chunks to index entries, dropping exact duplicates
// by content hash. First-seen order is preserved. Returns the entries and
// the number of duplicates dropped.
func Deduplicate(chunks []document.Chunk) ([]document.IndexEntry, int) {
	seen := make(map[string]struct{}, len(chunks))
	entries := make([]document.IndexEntry, 0, len(chunks))
	duplicates := 0

	for _, c := range chunks {
		if !c.Valid() {
			continue
		}
		id := EntryID(c.Content)
		if _, ok := seen[id]; ok {
			duplicates++
			continue
		}
		seen[id] = struct{}{}
		entries = append(entries, document.IndexEntry{
			ID:           id,
			Text:         c.Content,
			PageNumber:   c.PageNumber,
			Source:       c.Source,
			TableHeading: c.TableHeading,
			IsTable:      c.IsTable,
		})
	}
	return entries, duplicates
}

// Index deduplicates the chunks and writes them in batches. A failed batch
// is logged and recorded, and the remaining batches are still attempted.
// Index never returns an error: inspect the result for partial failures.
// Cancelling the context stops submission of further batches; already
// written entries stay durable and a re-run is idempotent.
func (ix *Indexer) Index(ctx context.Context, chunks []document.Chunk) *IndexResult {
	entries, duplicates := Deduplicate(chunks)
	result := &IndexResult{Entries: len(entries), Duplicates: duplicates}
	if len(entries) == 0 {
		return result
	}

	var mu sync.Mutex
	submit := func(start, end int) {
		batch := entries[start:end]

		if err := ix.dense.Add(ctx, batch); err != nil {
			ix.logger.Warn("Dense batch write failed",
				"start", start, "end", end, "error", err)
			mu.Lock()
			result.FailedBatches = append(result.FailedBatches, BatchError{
				Backend: "dense", Start: start, End: end, Reason: err.Error(),
			})
			mu.Unlock()
		} else {
			mu.Lock()
			result.Indexed += len(batch)
			mu.Unlock()
		}

		if ix.lexical == nil {
			return
		}
		if err := ix.lexical.Add(ctx, batch); err != nil {
			ix.logger.Warn("Lexical batch write failed",
				"start", start, "end", end, "error", err)
			mu.Lock()
			result.FailedBatches = append(result.FailedBatches, BatchError{
				Backend: "lexical", Start: start, End: end, Reason: err.Error(),
			})
			mu.Unlock()
		}
	}

	if ix.concurrency == 1 {
		for start := 0; start < len(entries); start += ix.batchSize {
			if ctx.Err() != nil {
				result.Aborted = true
				break
			}
			submit(start, min(start+ix.batchSize, len(entries)))
		}
		return result
	}

	// Batch order is irrelevant: ids are content-addressed and each batch
	// write is independent, so batches may run concurrently.
	var g errgroup.Group
	g.SetLimit(ix.concurrency)
	for start := 0; start < len(entries); start += ix.batchSize {
		if ctx.Err() != nil {
			result.Aborted = true
			break
		}
		end := min(start+ix.batchSize, len(entries))
		g.Go(func() error {
			submit(start, end)
			return nil
		})
	}
	_ = g.Wait()

	return result
}
