package normalize

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/kljensen/snowball/english"
)

const (
	// LemmaFilterName maps irregular inflections to their base form.
	LemmaFilterName = "doctext_lemma_en"
	// SnowballFilterName stems with the Snowball English algorithm.
	SnowballFilterName = "doctext_snowball_en"
)

func init() {
	_ = registry.RegisterTokenFilter(LemmaFilterName, lemmaFilterConstructor)
	_ = registry.RegisterTokenFilter(SnowballFilterName, snowballFilterConstructor)
}

func lemmaFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &lemmaFilter{table: irregularForms}, nil
}

// lemmaFilter rewrites irregular forms that suffix stemming cannot reach
// (ran -> run, mice -> mouse). Tokens it rewrites are left for the stemmer,
// which maps the base form to itself.
type lemmaFilter struct {
	table map[string]string
}

// Filter implements analysis.TokenFilter.
func (f *lemmaFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, token := range input {
		if token.KeyWord {
			continue
		}
		if base, ok := f.table[string(token.Term)]; ok {
			token.Term = []byte(base)
		}
	}
	return input
}

func snowballFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &snowballFilter{}, nil
}

type snowballFilter struct{}

// Filter implements analysis.TokenFilter.
func (f *snowballFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, token := range input {
		if token.KeyWord {
			continue
		}
		token.Term = []byte(english.Stem(string(token.Term), true))
	}
	return input
}
