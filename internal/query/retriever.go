package query

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultLexicalLimit caps results per lexical query. The lexical backend
// ranks by term relevance, not embedding distance, so it gets a slightly
// wider net than the dense topK.
const DefaultLexicalLimit = 10

// DenseSearcher is the vector-similarity side of retrieval.
type DenseSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]string, error)
	Count(ctx context.Context) (uint64, error)
}

// LexicalSearcher is the keyword-ranking side of retrieval.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Retriever fans expanded queries out over the dense backend and, when
// configured, a lexical backend, and concatenates everything it gets back.
// Duplicates are preserved here; the ranker dedups by text later.
type Retriever struct {
	dense       DenseSearcher
	lexical     LexicalSearcher // optional
	concurrency int
	logger      *slog.Logger
}

// NewRetriever creates a retriever. lexical may be nil for dense-only
// deployments; concurrency at or below one dispatches queries in sequence.
func NewRetriever(dense DenseSearcher, lexical LexicalSearcher, concurrency int, logger *slog.Logger) *Retriever {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		dense:       dense,
		lexical:     lexical,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Retrieve runs every query against both backends and returns the
// concatenated passages: dense then lexical per query, queries in input
// order. A failed backend call counts as zero results for that query and
// flips the degraded flag; Retrieve itself never fails. An empty dense
// corpus is not an error, dense queries are simply skipped.
func (r *Retriever) Retrieve(ctx context.Context, queries []string, topK int) ([]string, bool) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	var degraded atomic.Bool

	denseTopK := topK
	count, err := r.dense.Count(ctx)
	if err != nil {
		r.logger.Warn("Corpus count failed, skipping dense retrieval", "error", err)
		degraded.Store(true)
		denseTopK = 0
	} else if count == 0 {
		r.logger.Warn("Corpus is empty, skipping dense retrieval")
		denseTopK = 0
	} else if uint64(topK) > count {
		denseTopK = int(count)
	}

	// Per-query result slots keep the output in canonical query order even
	// when the fan-out runs concurrently, so ranking tie-breaks stay
	// reproducible.
	slots := make([][]string, len(queries))
	run := func(i int) {
		q := queries[i]
		var got []string
		if denseTopK > 0 {
			res, err := r.dense.Search(ctx, q, denseTopK)
			if err != nil {
				r.logger.Warn("Dense query failed", "query", q, "error", err)
				degraded.Store(true)
			} else {
				got = append(got, res...)
			}
		}
		if r.lexical != nil {
			res, err := r.lexical.Search(ctx, q, DefaultLexicalLimit)
			if err != nil {
				r.logger.Warn("Lexical query failed", "query", q, "error", err)
				degraded.Store(true)
			} else {
				got = append(got, res...)
			}
		}
		slots[i] = got
	}

	if r.concurrency == 1 {
		for i := range queries {
			run(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.concurrency)
		for i := range queries {
			g.Go(func() error {
				run(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	var passages []string
	for _, slot := range slots {
		passages = append(passages, slot...)
	}
	return passages, degraded.Load()
}
