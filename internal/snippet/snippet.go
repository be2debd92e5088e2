// Package snippet cuts highlighted excerpts out of stored documents using
// the byte spans the normalizer kept for every token.
package snippet

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
	"github.com/omarfoud/pdf-text-searcher/internal/normalize"
	"github.com/omarfoud/pdf-text-searcher/internal/store"
)

// Span is a half-open byte range.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Fragment is one excerpt of a document. Start and End are byte offsets
// into the raw text; Highlights are relative to Text.
type Fragment struct {
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
	Highlights []Span `json:"highlights"`
}

// Render wraps every highlight in open and close.
func (f Fragment) Render(open, close string) string {
	var b strings.Builder
	b.Grow(len(f.Text) + len(f.Highlights)*(len(open)+len(close)))
	last := 0
	for _, h := range f.Highlights {
		b.WriteString(f.Text[last:h.Start])
		b.WriteString(open)
		b.WriteString(f.Text[h.Start:h.End])
		b.WriteString(close)
		last = h.End
	}
	b.WriteString(f.Text[last:])
	return b.String()
}

// DocumentGetter is the part of the index the generator reads.
type DocumentGetter interface {
	GetDocument(ctx context.Context, id string) (*store.Document, []normalize.Token, error)
}

// Generator produces fragments for stored documents.
type Generator struct {
	docs DocumentGetter
}

// New creates a Generator over docs.
func New(docs DocumentGetter) *Generator {
	return &Generator{docs: docs}
}

// Snippet returns the highlighted fragments of docID for the normalized
// matchedTerms. windowSize is measured in characters. An unknown document
// or one without matches yields no fragments.
func (g *Generator) Snippet(ctx context.Context, docID string, matchedTerms []string, windowSize int) ([]Fragment, error) {
	if windowSize <= 0 {
		return nil, doterrors.InvalidArgument("snippet window must be positive").
			WithDetail("window", strconv.Itoa(windowSize))
	}

	doc, tokens, err := g.docs.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return []Fragment{}, nil
	}
	return Fragments(doc.RawText, tokens, matchedTerms, windowSize), nil
}

// Fragments is Snippet over an already loaded document.
func Fragments(text string, tokens []normalize.Token, matchedTerms []string, windowSize int) []Fragment {
	fragments := []Fragment{}
	if windowSize <= 0 || len(matchedTerms) == 0 {
		return fragments
	}

	want := make(map[string]struct{}, len(matchedTerms))
	for _, t := range matchedTerms {
		want[t] = struct{}{}
	}

	idx := newRuneIndex(text)
	var current *Fragment
	var highlights []Span

	flush := func() {
		if current == nil {
			return
		}
		current.Text = text[current.Start:current.End]
		for _, h := range highlights {
			current.Highlights = append(current.Highlights, Span{
				Start: h.Start - current.Start,
				End:   h.End - current.Start,
			})
		}
		fragments = append(fragments, *current)
		current, highlights = nil, nil
	}

	// Tokens are in document order, so windows arrive sorted by start.
	for _, tok := range tokens {
		if _, ok := want[tok.Term]; !ok {
			continue
		}
		if tok.Start < 0 || tok.End > len(text) || tok.Start >= tok.End {
			continue
		}

		start, end := idx.window(tok.Start, tok.End, windowSize)
		if current != nil && start <= current.End {
			if end > current.End {
				current.End = end
			}
		} else {
			flush()
			current = &Fragment{Start: start, End: end}
		}
		highlights = append(highlights, Span{Start: tok.Start, End: tok.End})
	}
	flush()

	return fragments
}

// runeIndex maps between byte offsets and character offsets of a text.
type runeIndex struct {
	// starts[i] is the byte offset of rune i; the last entry is len(text).
	starts []int
}

func newRuneIndex(text string) runeIndex {
	starts := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		starts = append(starts, i)
	}
	starts = append(starts, len(text))
	return runeIndex{starts: starts}
}

func (r runeIndex) runes() int {
	return len(r.starts) - 1
}

// runeAt returns the index of the rune starting at or containing byte b.
func (r runeIndex) runeAt(b int) int {
	i := sort.SearchInts(r.starts, b)
	if i < len(r.starts) && r.starts[i] == b {
		return i
	}
	return i - 1
}

// runeAfter returns the index of the first rune boundary at or after b.
func (r runeIndex) runeAfter(b int) int {
	return sort.SearchInts(r.starts, b)
}

// window centers size characters on the byte span [start, end) and clamps
// the result to the text. A span longer than size is returned whole.
func (r runeIndex) window(start, end, size int) (int, int) {
	rs, re := r.runeAt(start), r.runeAfter(end)
	total := r.runes()

	if pad := size - (re - rs); pad > 0 {
		left := pad / 2
		ws, we := rs-left, re+(pad-left)
		if ws < 0 {
			we -= ws
			ws = 0
		}
		if we > total {
			ws -= we - total
			we = total
		}
		if ws < 0 {
			ws = 0
		}
		rs, re = ws, we
	}
	return r.starts[rs], r.starts[re]
}
