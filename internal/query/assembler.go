package query

import "strings"

// ContextSeparator joins ranked passages into the final context string.
const ContextSeparator = "\n\n"

// Assemble joins the ranked passages in order. Ranking already decided
// how many passages survive; assembly only decides how they are joined.
// An empty input yields an empty string, never an error.
func Assemble(passages []ScoredPassage) string {
	if len(passages) == 0 {
		return ""
	}
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return strings.Join(texts, ContextSeparator)
}
