// Package extract turns tariff order PDFs into pages and table passages.
package extract

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/regwatch/tariffqa/internal/document"
)

// MinContentLength is the smallest number of visible characters a page
// must carry to be worth indexing. Scanned pages with no text layer fall
// below it.
const MinContentLength = 50

var (
	spaceRun = regexp.MustCompile(`[ \t]+`)
	blankRun = regexp.MustCompile(`\n{3,}`)
)

// Extraction holds everything pulled from one PDF: the plain-text pages
// and the table passages found on them. Table passages are emitted
// alongside the page text, not instead of it.
type Extraction struct {
	Pages  []document.Page  `json:"pages"`
	Tables []document.Chunk `json:"tables"`
}

// Extractor reads tariff order PDFs.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// ExtractFile reads every page of the PDF at path. Pages that fail to
// parse or fail the validity filter are skipped with a warning; only an
// unreadable file is an error.
func (e *Extractor) ExtractFile(path string) (*Extraction, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	source := SourceName(path)
	pageCount := reader.NumPage()

	extraction := &Extraction{Pages: make([]document.Page, 0, pageCount)}
	scanner := &tableScanner{}

	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("failed to extract text from page",
				"source", source, "page", i, "error", err)
			continue
		}

		cleaned := CleanText(text)
		if !ValidText(cleaned) {
			e.logger.Debug("skipping page without usable text",
				"source", source, "page", i)
			continue
		}

		extraction.Pages = append(extraction.Pages, document.Page{
			PageNumber: i,
			Content:    cleaned,
			Source:     source,
		})

		rows, err := page.GetTextByRow()
		if err != nil {
			e.logger.Warn("failed to extract rows from page",
				"source", source, "page", i, "error", err)
			continue
		}

		extraction.Tables = append(extraction.Tables,
			scanner.scanPage(pageLines(rows), i, source)...)
	}

	return extraction, nil
}

// pageLines converts the library's positioned rows into the scanner's
// representation.
func pageLines(rows pdf.Rows) []Line {
	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		line := make(Line, 0, len(row.Content))
		for _, word := range row.Content {
			line = append(line, Word{
				X:        word.X,
				W:        word.W,
				FontSize: word.FontSize,
				S:        word.S,
			})
		}
		lines = append(lines, line)
	}
	return lines
}

// SourceName derives the stable document identifier from a file path:
// the base name without its extension.
func SourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CleanText normalises extracted PDF text. Control characters and soft
// hyphens are dropped, runs of spaces and tabs collapse to one space,
// and runs of blank lines collapse to a single blank line.
func CleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range text {
		if r == '­' { // soft hyphen
			continue
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}

	cleaned := spaceRun.ReplaceAllString(b.String(), " ")
	cleaned = blankRun.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// ValidText reports whether extracted text looks like real page content
// rather than raw PDF internals. Malformed orders sometimes yield the
// underlying object stream, which starts with "%PDF" or is littered
// with "N 0 R" object references.
func ValidText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < MinContentLength {
		return false
	}
	if strings.HasPrefix(trimmed, "%PDF") {
		return false
	}

	head := trimmed
	if len(head) > 200 {
		head = head[:200]
	}
	return !strings.Contains(head, " 0 R ")
}
