package search

import (
	"strings"

	"github.com/omarfoud/pdf-text-searcher/internal/normalize"
)

// MaxQueryLength is the longest query string accepted, in bytes.
const MaxQueryLength = 4096

// Query is a parsed, normalized query.
type Query struct {
	// Raw is the query string as given.
	Raw string
	// Terms holds every distinct normalized term, loose and phrase terms
	// alike, in first-occurrence order.
	Terms []string
	// Phrases holds the normalized terms of each quoted phrase with two or
	// more terms. A document must contain every phrase contiguously.
	Phrases [][]string
}

// IsEmpty reports whether normalization left nothing to search for.
func (q *Query) IsEmpty() bool {
	return len(q.Terms) == 0
}

// ParseQuery splits raw into loose text and double-quoted phrases and
// normalizes both with n. An unterminated quote is treated as loose text.
func ParseQuery(n *normalize.Normalizer, raw string) *Query {
	q := &Query{Raw: raw}
	seen := make(map[string]struct{})
	add := func(terms []string) {
		for _, t := range terms {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			q.Terms = append(q.Terms, t)
		}
	}

	rest := raw
	for {
		open := strings.IndexByte(rest, '"')
		if open < 0 {
			break
		}
		closeAt := strings.IndexByte(rest[open+1:], '"')
		if closeAt < 0 {
			break
		}
		add(n.Terms(rest[:open]))

		phrase := n.Terms(rest[open+1 : open+1+closeAt])
		add(phrase)
		if len(phrase) > 1 {
			q.Phrases = append(q.Phrases, phrase)
		}
		rest = rest[open+closeAt+2:]
	}
	add(n.Terms(strings.ReplaceAll(rest, `"`, " ")))

	return q
}
