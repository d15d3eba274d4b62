// Package document defines the entities passed between pipeline stages.
package document

import "strings"

// Page is the raw unit produced by PDF extraction.
// PageNumber is 1-based; Source is the PDF file name without extension.
// Pages are immutable once created.
type Page struct {
	PageNumber int    // 1-based page index within the source document
	Content    string // Extracted plain text
	Source     string // Stable document identifier, e.g. "MYT_Order_MSEDCL_2025"
}

// Valid reports whether the page carries usable content.
// Extraction errors upstream are not this package's concern; the pipeline
// only refuses to chunk an empty page.
func (p Page) Valid() bool {
	return strings.TrimSpace(p.Content) != ""
}

// Chunk is a passage derived from one Page. Most chunks are plain text;
// chunks cut from tabular content carry the table fields so ranking and
// answers can cite the table they came from.
type Chunk struct {
	PageNumber   int
	Content      string
	Source       string
	TableHeading string // e.g. "Table 5: Approved Wheeling Charges"
	HeaderRow    string // Pipe-joined column headers
	IsTable      bool
}

// Valid reports whether the chunk may be indexed.
func (c Chunk) Valid() bool {
	return len(c.Content) > 0
}

// IndexEntry is the unit actually stored in a retrieval backend.
// ID is a deterministic hash of Text: identical text always produces the
// same id, which makes re-indexing idempotent and dedup content-addressed.
// Entries are never mutated; changed text is a new entry.
type IndexEntry struct {
	ID           string `json:"id"`
	Text         string `json:"content"`
	PageNumber   int    `json:"page_number"`
	Source       string `json:"source"`
	TableHeading string `json:"table_heading,omitempty"`
	IsTable      bool   `json:"is_table"`
}
