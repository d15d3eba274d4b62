package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/regwatch/tariffqa/internal/llm"
	"github.com/regwatch/tariffqa/internal/query"
)

// retrieve runs one expansion, retrieval and ranking pass with per-call
// expansion options. The retriever and ranker are shared; only the expander
// carries call-specific state, so assembling an engine per call is cheap.
func retrieve(ctx context.Context, cfg *Config, question, mustInclude string, exclude []string, topK int) query.RetrievalContext {
	if topK <= 0 {
		topK = cfg.TopK
	}
	engine := query.NewEngine(
		query.NewExpander(exclude, mustInclude),
		cfg.Retriever,
		cfg.Ranker,
		topK,
		cfg.Logger,
	)
	return engine.Retrieve(ctx, question)
}

// makeAskHandler creates the ask_tariff tool handler.
// Answer flow:
// 1. Expand the question into keyword variants
// 2. Fan the variants out over both search backends
// 3. Rank candidates by numeric richness and keep the top K
// 4. Generate a grounded answer over the assembled context
// 5. In table mode, parse the answer's markdown table into rows
func makeAskHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, AskTariffInput,
) (*mcp.CallToolResult, AskTariffOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskTariffInput) (
		*mcp.CallToolResult, AskTariffOutput, error,
	) {
		rc := retrieve(ctx, cfg, input.Question, input.MustInclude, input.Exclude, input.TopK)

		mode := llm.ModeText
		if input.Table {
			mode = llm.ModeTable
		}
		answer, err := cfg.Answerer.Ask(ctx, input.Question, rc, mode)
		if err != nil {
			return nil, AskTariffOutput{}, fmt.Errorf("failed to generate answer: %w", err)
		}

		out := AskTariffOutput{
			Answer:       answer,
			PassagesUsed: len(rc.Passages),
			Degraded:     rc.Degraded,
		}
		if input.Table {
			out.Rows = chargeRows(llm.ParseChargeTable(answer))
		}
		return nil, out, nil
	}
}

// chargeRows converts parsed table rows to the tool output shape.
func chargeRows(rows []llm.ChargeRow) []ChargeRow {
	if len(rows) == 0 {
		return nil
	}
	out := make([]ChargeRow, len(rows))
	for i, r := range rows {
		out[i] = ChargeRow{
			ChargeType: r.ChargeType,
			Unit:       r.Unit,
			Value:      r.Value,
			Source:     r.Source,
		}
	}
	return out
}

// makeSearchHandler creates the search_passages tool handler.
// It runs the retrieval half of the pipeline and returns the ranked
// passages with their scores, without generating an answer.
func makeSearchHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, SearchPassagesInput,
) (*mcp.CallToolResult, SearchPassagesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchPassagesInput) (
		*mcp.CallToolResult, SearchPassagesOutput, error,
	) {
		rc := retrieve(ctx, cfg, input.Question, input.MustInclude, input.Exclude, input.TopK)

		// Ensure non-nil for JSON marshaling
		passages := make([]PassageResult, 0, len(rc.Passages))
		for _, p := range rc.Passages {
			passages = append(passages, PassageResult{
				Text:  p.Text,
				Score: p.Score,
				Tier:  string(p.Tier),
			})
		}

		out := SearchPassagesOutput{
			Passages: passages,
			Queries:  rc.Queries,
			Degraded: rc.Degraded,
		}
		if len(passages) == 0 {
			out.Message = "No matching passages found. Try broader terms or fewer query constraints."
		}
		return nil, out, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
// It reports passage counts from both backends; matching counts mean the
// last ingest run landed every batch in both.
func makeStatusHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		dense, err := cfg.Store.Count(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("qdrant_error: failed to count passages: %w", err)
		}

		lex, err := cfg.Lexical.Count(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("meilisearch_error: failed to count passages: %w", err)
		}

		return nil, StatusOutput{
			DensePassages:   dense,
			LexicalPassages: lex,
			InSync:          lex >= 0 && dense == uint64(lex),
		}, nil
	}
}
