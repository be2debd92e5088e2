package mcp

import (
	"fmt"
	"strings"

	"github.com/omarfoud/pdf-text-searcher/internal/search"
	"github.com/omarfoud/pdf-text-searcher/internal/snippet"
)

// Markers wrapped around highlighted matches in tool output.
const (
	highlightOpen  = "**"
	highlightClose = "**"
)

// FormatSearchResults renders ranked documents as markdown.
func FormatSearchResults(query string, results []search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No documents match \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d document", len(results))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		formatResult(&sb, i+1, r)
	}
	return sb.String()
}

func formatResult(sb *strings.Builder, num int, r search.Result) {
	fmt.Fprintf(sb, "### %d. %s (score: %.4f)\n", num, r.Name, r.Score)
	if r.DocID != r.Name {
		fmt.Fprintf(sb, "`%s`\n", r.DocID)
	}
	if len(r.MatchedTerms) > 0 {
		fmt.Fprintf(sb, "**Matched:** %s\n", strings.Join(r.MatchedTerms, ", "))
	}
	sb.WriteString("\n")
	for _, text := range renderFragments(r.Fragments) {
		fmt.Fprintf(sb, "> …%s…\n\n", text)
	}
}

// FormatSnippets renders the fragments of one document as markdown.
func FormatSnippets(docID string, fragments []snippet.Fragment) string {
	if len(fragments) == 0 {
		return fmt.Sprintf("No matches in \"%s\"", docID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", docID)
	for _, f := range fragments {
		fmt.Fprintf(&sb, "- bytes %d-%d: …%s…\n", f.Start, f.End, flatten(f.Render(highlightOpen, highlightClose)))
	}
	return sb.String()
}

// renderFragments highlights each fragment and folds it onto one line.
func renderFragments(fragments []snippet.Fragment) []string {
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		out = append(out, flatten(f.Render(highlightOpen, highlightClose)))
	}
	return out
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// ToSearchResultOutput converts a search result to the tool output format.
func ToSearchResultOutput(r search.Result) SearchResultOutput {
	terms := r.MatchedTerms
	if terms == nil {
		terms = []string{}
	}
	return SearchResultOutput{
		DocID:        r.DocID,
		Name:         r.Name,
		Score:        r.Score,
		MatchedTerms: terms,
		Snippets:     renderFragments(r.Fragments),
	}
}

// toFragmentOutputs converts fragments to the tool output format.
func toFragmentOutputs(fragments []snippet.Fragment) []FragmentOutput {
	out := make([]FragmentOutput, 0, len(fragments))
	for _, f := range fragments {
		out = append(out, FragmentOutput{
			Start: f.Start,
			End:   f.End,
			Text:  f.Render(highlightOpen, highlightClose),
		})
	}
	return out
}
