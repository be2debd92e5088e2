package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/omarfoud/pdf-text-searcher/internal/search"
)

// ResultsRenderer prints ranked search results with highlighted fragments.
type ResultsRenderer struct {
	out     io.Writer
	styles  Styles
	noColor bool
}

// NewResultsRenderer creates a results renderer. Without color, highlights
// are bracketed instead of styled.
func NewResultsRenderer(out io.Writer, noColor bool) *ResultsRenderer {
	return &ResultsRenderer{
		out:     out,
		styles:  GetStyles(noColor),
		noColor: noColor,
	}
}

// Render writes results in rank order.
func (r *ResultsRenderer) Render(query string, results []search.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintf(r.out, "No documents match %q\n", query)
		return err
	}

	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render(fmt.Sprintf("%d results for %q", len(results), query)))

	for i, res := range results {
		name := res.Name
		if name == "" {
			name = res.DocID
		}
		_, _ = fmt.Fprintf(r.out, "%2d. %s  %s\n", i+1,
			r.styles.Title.Render(name),
			r.styles.Score.Render(fmt.Sprintf("score %.4f", res.Score)))

		if res.Name != "" && res.Name != res.DocID {
			_, _ = fmt.Fprintf(r.out, "    %s\n", r.styles.Dim.Render(res.DocID))
		}
		for _, frag := range res.Fragments {
			_, _ = fmt.Fprintf(r.out, "    …%s…\n", r.renderFragment(frag.Text, frag.Render("\x00", "\x01")))
		}
		_, _ = fmt.Fprintln(r.out)
	}
	return nil
}

// RenderJSON writes results as a JSON array.
func (r *ResultsRenderer) RenderJSON(results []search.Result) error {
	if results == nil {
		results = []search.Result{}
	}
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

// renderFragment styles the spans marked with \x00 … \x01 and flattens
// line breaks.
func (r *ResultsRenderer) renderFragment(raw, marked string) string {
	if strings.ContainsAny(raw, "\x00\x01") {
		// Markers are ambiguous; fall back to the bare text.
		return flatten(raw)
	}

	var b strings.Builder
	for {
		open := strings.IndexByte(marked, '\x00')
		if open < 0 {
			b.WriteString(marked)
			break
		}
		end := strings.IndexByte(marked[open:], '\x01') + open
		b.WriteString(marked[:open])
		b.WriteString(r.highlight(marked[open+1 : end]))
		marked = marked[end+1:]
	}
	return flatten(b.String())
}

func (r *ResultsRenderer) highlight(s string) string {
	if r.noColor {
		return "[" + s + "]"
	}
	return r.styles.Highlight.Render(s)
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
