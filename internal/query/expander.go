package query

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`\b[a-zA-Z0-9]+\b`)

// stopwords are dropped before n-gram generation. Question words and
// glue words retrieve nothing useful from tariff orders on their own.
var stopwords = map[string]struct{}{
	"the": {}, "is": {}, "for": {}, "and": {}, "as": {}, "of": {},
	"to": {}, "in": {}, "on": {}, "by": {}, "with": {}, "a": {},
	"an": {}, "what": {},
}

// Expander turns one natural-language question into the set of retrieval
// queries actually dispatched to the backends: every 1/2/3-gram over the
// question's keywords plus the original question itself.
type Expander struct {
	excludeTerms []string
	mustInclude  string
}

// NewExpander creates an expander. mustInclude, when non-empty, is
// appended to every variant; each excludeTerms entry appends a
// "NOT <term>" clause. The NOT clauses are a hint to the lexical
// backend's query syntax, not a guaranteed filter; the dense backend
// treats them as ordinary text.
func NewExpander(excludeTerms []string, mustInclude string) *Expander {
	return &Expander{
		excludeTerms: excludeTerms,
		mustInclude:  mustInclude,
	}
}

// Expand generates the query variants for a question. Output order is
// deterministic: 1-grams left to right, then 2-grams, then 3-grams, then
// the original question, with duplicates dropped first-seen.
func (e *Expander) Expand(question string) []string {
	keywords := Keywords(question)

	seen := make(map[string]struct{})
	var variants []string
	add := func(q string) {
		if _, ok := seen[q]; ok {
			return
		}
		seen[q] = struct{}{}
		variants = append(variants, q)
	}

	for n := 1; n <= 3; n++ {
		for i := 0; i+n <= len(keywords); i++ {
			add(strings.Join(keywords[i:i+n], " "))
		}
	}
	add(question)

	if e.mustInclude == "" && len(e.excludeTerms) == 0 {
		return variants
	}
	for i, v := range variants {
		if e.mustInclude != "" {
			v += " " + e.mustInclude
		}
		for _, term := range e.excludeTerms {
			v += " NOT " + term
		}
		variants[i] = v
	}
	return variants
}

// Keywords returns the question's lowercase word tokens with stopwords
// removed, in original order.
func Keywords(question string) []string {
	tokens := wordPattern.FindAllString(strings.ToLower(question), -1)
	keywords := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		keywords = append(keywords, tok)
	}
	return keywords
}
