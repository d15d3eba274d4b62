package extract

import (
	"strings"

	"github.com/regwatch/tariffqa/internal/document"
)

const (
	// headerLookahead is how many rows past a table heading may separate
	// it from the first gridded row before the heading is considered
	// decorative.
	headerLookahead = 5

	// minCellGap is the horizontal gap, in PDF units, treated as a column
	// boundary when the row carries no usable font size.
	minCellGap = 6.0
)

// Word is a positioned text fragment on a page row.
type Word struct {
	X        float64
	W        float64
	FontSize float64
	S        string
}

// Line is one horizontal row of words in reading order.
type Line []Word

// text joins the row's words with single spaces.
func (l Line) text() string {
	parts := make([]string, 0, len(l))
	for _, w := range l {
		if w.S != "" {
			parts = append(parts, w.S)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// cells groups the row's words into columns, splitting wherever the
// horizontal gap between neighbouring words is wider than a cell gap.
func (l Line) cells() []string {
	if len(l) == 0 {
		return nil
	}

	var out []string
	var cur strings.Builder

	flush := func() {
		if cell := strings.TrimSpace(cur.String()); cell != "" {
			out = append(out, cell)
		}
		cur.Reset()
	}

	prev := l[0]
	cur.WriteString(l[0].S)
	for _, w := range l[1:] {
		gap := w.X - (prev.X + prev.W)
		if gap > cellGap(prev) {
			flush()
		} else if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w.S)
		prev = w
	}
	flush()

	return out
}

func cellGap(w Word) float64 {
	if w.FontSize > 0 {
		return 1.5 * w.FontSize
	}
	return minCellGap
}

// isTableHeading reports whether the row is a table caption. Tariff
// orders caption their tables "Table <n>: ...", so a leading "Table"
// marks the row, the same cue the ranking bonus keys on.
func isTableHeading(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "Table")
}

// tableScanner walks page rows and emits one chunk per gridded table.
// The last seen heading and context carry across pages so a table that
// spills onto the next page still cites its caption.
type tableScanner struct {
	lastHeading string
	lastContext string
}

// scanPage extracts table passages from one page's rows. Emitted chunks
// hold the caption, up to two rows of context either side of it, and the
// pipe-joined header and data rows.
func (ts *tableScanner) scanPage(lines []Line, pageNumber int, source string) []document.Chunk {
	var chunks []document.Chunk

	texts := make([]string, len(lines))
	grids := make([][]string, len(lines))
	for i, line := range lines {
		texts[i] = line.text()
		grids[i] = line.cells()
	}

	// A page that opens with gridded rows before any heading is a table
	// continued from the previous page.
	pos := 0
	if ts.lastHeading != "" {
		if start, ok := firstContentRow(texts); ok && len(grids[start]) >= 2 && !isTableHeading(texts[start]) {
			rows, next := collectGrid(texts, grids, start)
			chunks = append(chunks, ts.tableChunk(ts.lastContext, rows, pageNumber, source))
			pos = next
		}
	}

	for i := pos; i < len(lines); i++ {
		if !isTableHeading(texts[i]) {
			continue
		}

		start := -1
		for j := i + 1; j < len(lines) && j <= i+headerLookahead; j++ {
			if isTableHeading(texts[j]) {
				break
			}
			if len(grids[j]) >= 2 {
				start = j
				break
			}
		}
		if start < 0 {
			continue
		}

		rows, next := collectGrid(texts, grids, start)
		context := contextAround(texts, i)

		ts.lastHeading = texts[i]
		ts.lastContext = context

		chunks = append(chunks, ts.tableChunk(context, rows, pageNumber, source))
		i = next - 1
	}

	return chunks
}

// tableChunk assembles the stored passage: context, then the header row
// and data rows pipe-joined so every cell boundary survives as text.
func (ts *tableScanner) tableChunk(context string, rows [][]string, pageNumber int, source string) document.Chunk {
	piped := make([]string, len(rows))
	for i, row := range rows {
		piped[i] = strings.Join(row, "|")
	}

	content := strings.TrimSpace(context + "\n" + strings.Join(piped, "\n"))

	return document.Chunk{
		PageNumber:   pageNumber,
		Content:      content,
		Source:       source,
		TableHeading: ts.lastHeading,
		HeaderRow:    piped[0],
		IsTable:      true,
	}
}

// collectGrid gathers consecutive gridded rows starting at start and
// returns them with the index of the first row past the table.
func collectGrid(texts []string, grids [][]string, start int) ([][]string, int) {
	var rows [][]string
	i := start
	for ; i < len(grids); i++ {
		if len(grids[i]) < 2 || isTableHeading(texts[i]) {
			break
		}
		rows = append(rows, grids[i])
	}
	return rows, i
}

// contextAround returns the heading row plus up to two rows either side,
// newline-joined.
func contextAround(texts []string, heading int) string {
	start := heading - 2
	if start < 0 {
		start = 0
	}
	end := heading + 3
	if end > len(texts) {
		end = len(texts)
	}

	kept := make([]string, 0, end-start)
	for _, t := range texts[start:end] {
		if t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, "\n")
}

// firstContentRow returns the index of the first row with any text.
func firstContentRow(texts []string) (int, bool) {
	for i, t := range texts {
		if t != "" {
			return i, true
		}
	}
	return 0, false
}
