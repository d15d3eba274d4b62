package chunk

import "strings"

// DefaultSeparators is the split priority order: paragraph break, line
// break, sentence end, word boundary, then hard character slicing.
var DefaultSeparators = []string{"\n\n", "\n", ".", " ", ""}

// Splitter cuts text into pieces of at most chunkSize characters,
// preferring the highest-priority separator present in the text and
// recursing with lower-priority separators for pieces that are still too
// long. Adjacent output pieces share a trailing window of roughly overlap
// characters. Separators are dropped at piece boundaries and re-inserted
// when sibling pieces are merged back together.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter with the given size and overlap.
// An overlap at or above chunkSize would never make progress, so it is
// clamped to a quarter of the chunk size.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: DefaultSeparators,
	}
}

// Split returns the text cut into pieces of at most chunkSize characters.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	// Pick the first separator that actually occurs in this text.
	// The empty string always matches and means per-character slicing.
	sep := separators[len(separators)-1]
	var rest []string
	for i, cand := range separators {
		if cand == "" {
			sep = cand
			rest = nil
			break
		}
		if strings.Contains(text, cand) {
			sep = cand
			rest = separators[i+1:]
			break
		}
	}

	var final []string
	var good []string
	for _, piece := range splitOn(text, sep) {
		if len(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good, sep)...)
			good = nil
		}
		if len(rest) == 0 {
			// No lower-priority separator left; keep the oversized
			// piece rather than losing content.
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, sep)...)
	}
	return final
}

// merge greedily combines sibling pieces into chunks of at most chunkSize
// characters, joining with the separator they were split on. When a chunk
// is emitted, pieces are popped from the front of the window until at most
// overlap characters remain; the remainder seeds the next chunk.
func (s *Splitter) merge(pieces []string, sep string) []string {
	sepLen := len(sep)
	var docs []string
	var window []string
	total := 0

	for _, piece := range pieces {
		extra := 0
		if len(window) > 0 {
			extra = sepLen
		}
		if total+len(piece)+extra > s.chunkSize && len(window) > 0 {
			if doc := joinPieces(window, sep); doc != "" {
				docs = append(docs, doc)
			}
			for len(window) > 0 &&
				(total > s.overlap ||
					(total+len(piece)+sepLen > s.chunkSize && total > 0)) {
				drop := len(window[0])
				if len(window) > 1 {
					drop += sepLen
				}
				total -= drop
				window = window[1:]
			}
		}
		if len(window) > 0 {
			total += sepLen
		}
		window = append(window, piece)
		total += len(piece)
	}

	if doc := joinPieces(window, sep); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitOn splits on a literal separator, dropping empty pieces. The empty
// separator slices into individual runes so multi-byte characters are
// never cut in half.
func splitOn(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	var pieces []string
	for _, p := range strings.Split(text, sep) {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

func joinPieces(pieces []string, sep string) string {
	return strings.TrimSpace(strings.Join(pieces, sep))
}
