// Package query implements the question-answering retrieval engine:
// query expansion, dual-backend retrieval, numeric-richness ranking and
// context assembly.
package query

import (
	"context"
	"log/slog"
)

// RetrievalContext is the ranked, bounded context produced for one
// question. Degraded is set when any backend call failed along the way,
// so callers can tell "nothing matched" from "backends were unhealthy".
type RetrievalContext struct {
	Passages []ScoredPassage
	Text     string
	Queries  []string
	Degraded bool
}

// Empty reports whether retrieval produced no usable context. The answer
// boundary checks this before invoking any model; an empty context is
// answered with an explicit no-passages message, never an empty prompt.
func (rc RetrievalContext) Empty() bool {
	return rc.Text == ""
}

// Engine wires expansion, retrieval, ranking and assembly behind a single
// call. All collaborators are injected; the engine holds no global state
// and is safe for concurrent use.
type Engine struct {
	expander  *Expander
	retriever *Retriever
	ranker    *Ranker
	topK      int
	logger    *slog.Logger
}

// NewEngine creates an engine. topK at or below zero selects DefaultTopK.
func NewEngine(expander *Expander, retriever *Retriever, ranker *Ranker, topK int, logger *slog.Logger) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		expander:  expander,
		retriever: retriever,
		ranker:    ranker,
		topK:      topK,
		logger:    logger,
	}
}

// Retrieve expands the question, fans the variants out over the backends,
// ranks the candidates and assembles the context. It never returns an
// error: a fully failed run comes back as an empty, degraded context.
func (e *Engine) Retrieve(ctx context.Context, question string) RetrievalContext {
	queries := e.expander.Expand(question)
	e.logger.Debug("Expanded question", "question", question, "variants", len(queries))

	passages, degraded := e.retriever.Retrieve(ctx, queries, e.topK)
	ranked := e.ranker.Rank(passages, e.topK)

	e.logger.Info("Retrieval complete",
		"question", question,
		"candidates", len(passages),
		"ranked", len(ranked),
		"degraded", degraded,
	)

	return RetrievalContext{
		Passages: ranked,
		Text:     Assemble(ranked),
		Queries:  queries,
		Degraded: degraded,
	}
}
