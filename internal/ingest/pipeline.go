// Package ingest orchestrates document ingestion: extraction through the
// cache, chunking, and indexing into the retrieval backends.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/regwatch/tariffqa/internal/cache"
	"github.com/regwatch/tariffqa/internal/document"
	"github.com/regwatch/tariffqa/internal/extract"
	"github.com/regwatch/tariffqa/internal/index"
)

// Extractor produces pages and table chunks from one PDF file.
type Extractor interface {
	ExtractFile(path string) (*extract.Extraction, error)
}

// Chunker splits pages into indexable passages.
type Chunker interface {
	Chunk(pages []document.Page) []document.Chunk
}

// Indexer deduplicates and writes chunks to the backends.
type Indexer interface {
	Index(ctx context.Context, chunks []document.Chunk) *index.IndexResult
}

// IngestResult contains statistics about one ingest run.
type IngestResult struct {
	TotalDocs      int
	SuccessfulDocs int
	FailedDocs     []FailedDoc
	TotalChunks    int
	Indexed        int
	Duplicates     int
	CacheHits      int
	FailedBatches  []index.BatchError
	Aborted        bool
	Duration       time.Duration
}

// FailedDoc represents a document that could not be ingested.
type FailedDoc struct {
	Path   string
	Reason string
}

// Pipeline runs the full ingest from PDF paths to indexed passages.
type Pipeline struct {
	extractor Extractor
	cache     *cache.Cache
	chunker   Chunker
	indexer   Indexer
	params    cache.Params
	logger    *slog.Logger
}

// NewPipeline creates an ingest pipeline with the given components. params
// feeds every document fingerprint, so changed chunk settings rebuild the
// extraction cache.
func NewPipeline(
	extractor Extractor,
	store *cache.Cache,
	chunker Chunker,
	indexer Indexer,
	params cache.Params,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		cache:     store,
		chunker:   chunker,
		indexer:   indexer,
		params:    params,
		logger:    logger,
	}
}

// Run ingests every PDF path. Per-document failures are recorded and the run
// continues with the remaining documents; chunks from all documents are
// deduplicated together and written in one indexing pass. Cancelling the
// context stops the run with already-written entries intact, and a re-run is
// idempotent because entry ids are content-addressed.
func (p *Pipeline) Run(ctx context.Context, pdfPaths []string) *IngestResult {
	start := time.Now()
	result := &IngestResult{TotalDocs: len(pdfPaths)}
	p.logger.Info("Starting ingest", "documents", len(pdfPaths))

	var chunks []document.Chunk
	for _, path := range pdfPaths {
		if ctx.Err() != nil {
			result.Aborted = true
			break
		}
		docChunks, hit, err := p.processDocument(ctx, path)
		if err != nil {
			p.logger.Warn("Failed to ingest document", "path", path, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{
				Path:   path,
				Reason: err.Error(),
			})
			continue
		}
		if hit {
			result.CacheHits++
		}
		result.SuccessfulDocs++
		result.TotalChunks += len(docChunks)
		chunks = append(chunks, docChunks...)
	}

	ixResult := p.indexer.Index(ctx, chunks)
	result.Indexed = ixResult.Indexed
	result.Duplicates = ixResult.Duplicates
	result.FailedBatches = ixResult.FailedBatches
	result.Aborted = result.Aborted || ixResult.Aborted

	result.Duration = time.Since(start)
	p.logger.Info("Ingest complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"indexed", result.Indexed,
		"duplicates", result.Duplicates,
		"cache_hits", result.CacheHits,
		"duration", result.Duration,
	)
	return result
}

// processDocument turns one PDF into chunks, reusing a cached extraction
// when the file and parameters are unchanged.
func (p *Pipeline) processDocument(ctx context.Context, path string) ([]document.Chunk, bool, error) {
	key, err := cache.Fingerprint(path, p.params)
	if err != nil {
		return nil, false, fmt.Errorf("fingerprint: %w", err)
	}

	ext, hit, err := p.cache.GetOrBuild(ctx, key, func(ctx context.Context) (*extract.Extraction, error) {
		return p.extractor.ExtractFile(path)
	})
	if err != nil {
		return nil, false, fmt.Errorf("extract: %w", err)
	}

	chunks := p.chunker.Chunk(ext.Pages)
	// Table passages are already bounded; they bypass the splitter so the
	// pipe layout survives intact.
	chunks = append(chunks, ext.Tables...)

	p.logger.Debug("Prepared document",
		"path", path,
		"pages", len(ext.Pages),
		"tables", len(ext.Tables),
		"chunks", len(chunks),
		"cache_hit", hit,
	)
	return chunks, hit, nil
}
