package llm

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// ChargeRow is one parsed line of a charge-table answer.
type ChargeRow struct {
	ChargeType string
	Unit       string
	Value      string
	Source     string
}

// ParseChargeTable extracts the first markdown table from a model answer.
// Prose before or after the table is ignored. Returns nil when the answer
// carries no table.
func ParseChargeTable(answer string) []ChargeRow {
	source := []byte(answer)
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(source))

	var table ast.Node
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == east.KindTable {
			table = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if table == nil {
		return nil
	}

	var columns []string
	var rows []ChargeRow
	for child := table.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.Kind() {
		case east.KindTableHeader:
			columns = cellTexts(child, source)
		case east.KindTableRow:
			rows = append(rows, rowFromCells(columns, cellTexts(child, source)))
		}
	}
	return rows
}

func cellTexts(row ast.Node, source []byte) []string {
	var texts []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		texts = append(texts, nodeText(cell, source))
	}
	return texts
}

func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := child.(*ast.Text); ok {
				sb.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// rowFromCells maps cells to fields by header name, so answers using the
// regulator's Discom column or a reordered layout still parse.
func rowFromCells(columns, cells []string) ChargeRow {
	var row ChargeRow
	for i, cell := range cells {
		if i >= len(columns) {
			break
		}
		col := strings.ToLower(columns[i])
		switch {
		case strings.Contains(col, "charge"):
			row.ChargeType = cell
		case strings.Contains(col, "unit"):
			row.Unit = cell
		case strings.Contains(col, "value"):
			row.Value = cell
		case strings.Contains(col, "source"), strings.Contains(col, "discom"):
			row.Source = cell
		}
	}
	return row
}
