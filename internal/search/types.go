// Package search ranks indexed documents against free-text queries with
// BM25 and attaches highlighted snippets to the results.
package search

import (
	"github.com/omarfoud/pdf-text-searcher/internal/snippet"
)

// Result is one ranked document.
type Result struct {
	DocID string  `json:"doc_id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	// MatchedTerms are the normalized query terms found in the document.
	MatchedTerms []string           `json:"matched_terms"`
	Fragments    []snippet.Fragment `json:"fragments"`
}

// Options configures an Engine.
type Options struct {
	// K1 controls term frequency saturation.
	K1 float64
	// B controls document length normalization (0 disables it).
	B float64
	// SnippetWindow is the fragment width in characters. Zero disables
	// snippets.
	SnippetWindow int
}

// DefaultOptions returns the standard BM25 parameters.
func DefaultOptions() Options {
	return Options{
		K1:            1.2,
		B:             0.75,
		SnippetWindow: 120,
	}
}
