// Package mcp exposes the tariff question-answering engine over the
// Model Context Protocol.
package mcp

// AskTariffInput defines the input parameters for the ask_tariff tool.
type AskTariffInput struct {
	// Question is the tariff question to answer.
	Question string `json:"question" jsonschema:"required,description=The tariff question to answer (e.g. what is the approved wheeling charge for FY 2024-25)"`
	// MustInclude is appended to every query variant.
	MustInclude string `json:"must_include,omitempty" jsonschema:"description=Term appended to every query variant (e.g. approved)"`
	// Exclude terms are appended to every variant as NOT clauses.
	Exclude []string `json:"exclude,omitempty" jsonschema:"description=Terms appended as NOT clauses to steer matches away (e.g. proposed)"`
	// TopK is the number of ranked passages fed to the answer.
	TopK int `json:"top_k,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Number of ranked passages fed to the answer"`
	// Table switches the answer to a markdown charge table.
	Table bool `json:"table,omitempty" jsonschema:"description=Answer as a markdown charge table instead of prose"`
}

// AskTariffOutput contains the generated answer.
type AskTariffOutput struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Rows is the parsed charge table when table mode was requested.
	Rows []ChargeRow `json:"rows,omitempty"`
	// PassagesUsed is how many ranked passages fed the prompt.
	PassagesUsed int `json:"passages_used"`
	// Degraded is set when a search backend failed during retrieval,
	// so the answer may rest on a partial context.
	Degraded bool `json:"degraded,omitempty"`
}

// ChargeRow is one parsed row of a table-mode answer.
type ChargeRow struct {
	// ChargeType names the charge (e.g. wheeling charge).
	ChargeType string `json:"charge_type"`
	// Unit is the charge unit (e.g. Rs/kWh).
	Unit string `json:"unit"`
	// Value is the charge value as it appears in the order.
	Value string `json:"value"`
	// Source names the order or distribution company the value came from.
	Source string `json:"source,omitempty"`
}

// SearchPassagesInput defines the input parameters for the search_passages tool.
type SearchPassagesInput struct {
	// Question is the question to retrieve passages for.
	Question string `json:"question" jsonschema:"required,description=The question to retrieve ranked passages for"`
	// MustInclude is appended to every query variant.
	MustInclude string `json:"must_include,omitempty" jsonschema:"description=Term appended to every query variant"`
	// Exclude terms are appended to every variant as NOT clauses.
	Exclude []string `json:"exclude,omitempty" jsonschema:"description=Terms appended as NOT clauses to steer matches away"`
	// TopK is the maximum number of passages to return.
	TopK int `json:"top_k,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Maximum number of passages to return"`
}

// SearchPassagesOutput contains the ranked passages.
type SearchPassagesOutput struct {
	// Passages is the ranked passages, best first.
	Passages []PassageResult `json:"passages"`
	// Queries is the expanded query variants that were searched.
	Queries []string `json:"queries"`
	// Degraded is set when a search backend failed during retrieval.
	Degraded bool `json:"degraded,omitempty"`
	// Message provides informational context (e.g. nothing matched).
	Message string `json:"message,omitempty"`
}

// PassageResult is a single ranked passage from retrieval.
type PassageResult struct {
	// Text is the passage content.
	Text string `json:"text"`
	// Score is the numeric-richness score.
	Score int `json:"score"`
	// Tier classifies the score: plain, numeric or table.
	Tier string `json:"tier"`
}

// StatusInput defines the input parameters for the get_index_status tool.
// This tool takes no parameters.
type StatusInput struct {
	// No input parameters required
}

// StatusOutput contains the corpus counts from both search backends.
type StatusOutput struct {
	// DensePassages is the passage count in the vector backend.
	DensePassages uint64 `json:"dense_passages"`
	// LexicalPassages is the passage count in the keyword backend.
	LexicalPassages int64 `json:"lexical_passages"`
	// InSync reports whether both backends hold the same passage count.
	// Drift between them usually means an ingest run had failed batches.
	InSync bool `json:"in_sync"`
}
