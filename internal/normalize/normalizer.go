// Package normalize turns raw text into normalized index terms while keeping
// each term's original byte span, so lossy stemming never costs exact
// highlighting.
package normalize

import (
	"fmt"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/registry"
)

// Stemmer names a stemming algorithm.
type Stemmer string

const (
	// StemmerPorter is the classic Porter stemmer (bleve stemmer_porter).
	StemmerPorter Stemmer = "porter"
	// StemmerSnowball is the Snowball English (Porter2) stemmer.
	StemmerSnowball Stemmer = "snowball"
)

// Token is one occurrence of a normalized term in a text.
// Start and End delimit the original surface form: text[Start:End].
type Token struct {
	Term     string `json:"term"`
	Position int    `json:"position"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// Normalizer runs the analysis pipeline:
// unicode word segmentation -> possessive strip -> lowercase -> irregular
// lemma table -> stemmer. It is safe for concurrent use.
type Normalizer struct {
	name     string
	analyzer analysis.Analyzer
}

// New builds a Normalizer using the given stemmer.
func New(stemmer Stemmer) (*Normalizer, error) {
	var stemFilter string
	switch stemmer {
	case StemmerPorter, "":
		stemmer = StemmerPorter
		stemFilter = porter.Name
	case StemmerSnowball:
		stemFilter = SnowballFilterName
	default:
		return nil, fmt.Errorf("unknown stemmer %q", stemmer)
	}

	name := "doctext_en_" + string(stemmer)
	cache := registry.NewCache()
	analyzer, err := cache.DefineAnalyzer(name, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []interface{}{
			en.PossessiveName,
			lowercase.Name,
			LemmaFilterName,
			stemFilter,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build analyzer %s: %w", name, err)
	}

	return &Normalizer{name: name, analyzer: analyzer}, nil
}

// MustNew is New for package-level defaults and tests.
func MustNew(stemmer Stemmer) *Normalizer {
	n, err := New(stemmer)
	if err != nil {
		panic(err)
	}
	return n
}

// Name identifies the pipeline. Indexes record it: terms produced by
// different pipelines are not comparable.
func (n *Normalizer) Name() string {
	return n.name
}

// Normalize returns the token stream for text. Positions are dense and
// zero-based; spans are strictly increasing and never overlap.
func (n *Normalizer) Normalize(text string) []Token {
	if text == "" {
		return nil
	}

	stream := n.analyzer.Analyze([]byte(text))
	tokens := make([]Token, 0, len(stream))
	for _, t := range stream {
		if len(t.Term) == 0 || t.End <= t.Start {
			continue
		}
		tokens = append(tokens, Token{
			Term:     string(t.Term),
			Position: len(tokens),
			Start:    t.Start,
			End:      t.End,
		})
	}
	return tokens
}

// Terms returns just the normalized terms of text, in order.
func (n *Normalizer) Terms(text string) []string {
	tokens := n.Normalize(text)
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}
