// Package validation runs data-driven relevance checks against an index.
//
// Checks are loaded from YAML so a collection's owners can pin the queries
// that matter to them and detect ranking regressions after re-indexing or
// a configuration change:
//
//	tier1:
//	  - id: T1-1
//	    name: stemmed verb
//	    query: run
//	    expected: [doc1.txt]
//	negative:
//	  - id: N-1
//	    name: punctuation only
//	    query: "?!"
//
// Tier 1 checks must pass; Tier 2 checks track quality goals; negative
// checks only have to be answered without an internal error.
package validation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
	"github.com/omarfoud/pdf-text-searcher/internal/search"
)

// DefaultTopN is how deep a check looks when top_n is not set.
const DefaultTopN = 5

// QuerySpec defines a check with its expected results.
type QuerySpec struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Query string `yaml:"query" json:"query"`
	// Expected lists document IDs or ID prefixes, any of which must appear
	// within the first TopN results.
	Expected []string `yaml:"expected" json:"expected,omitempty"`
	TopN     int      `yaml:"top_n" json:"top_n,omitempty"`
	Notes    string   `yaml:"notes" json:"notes,omitempty"`
	Tier     int      `yaml:"-" json:"tier"`
}

// QueryConfig holds all checks loaded from YAML.
type QueryConfig struct {
	Tier1    []QuerySpec `yaml:"tier1"`
	Tier2    []QuerySpec `yaml:"tier2"`
	Negative []QuerySpec `yaml:"negative"`
}

// LoadQueries reads checks from a YAML file.
func LoadQueries(path string) (*QueryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries file %s: %w", path, err)
	}
	return ParseQueries(data)
}

// ParseQueries parses checks and assigns their tiers.
func ParseQueries(data []byte) (*QueryConfig, error) {
	var cfg QueryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse queries YAML: %w", err)
	}

	for i := range cfg.Tier1 {
		cfg.Tier1[i].Tier = 1
	}
	for i := range cfg.Tier2 {
		cfg.Tier2[i].Tier = 2
	}
	for i := range cfg.Negative {
		cfg.Negative[i].Tier = 0
	}

	seen := make(map[string]bool)
	for _, spec := range cfg.all() {
		if spec.ID == "" {
			return nil, fmt.Errorf("check %q has no id", spec.Name)
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("duplicate check id %s", spec.ID)
		}
		seen[spec.ID] = true
		if spec.Tier > 0 && len(spec.Expected) == 0 {
			return nil, fmt.Errorf("check %s has no expected documents", spec.ID)
		}
	}
	return &cfg, nil
}

func (c *QueryConfig) all() []QuerySpec {
	all := make([]QuerySpec, 0, len(c.Tier1)+len(c.Tier2)+len(c.Negative))
	all = append(all, c.Tier1...)
	all = append(all, c.Tier2...)
	return append(all, c.Negative...)
}

// TestResult captures the outcome of a single check.
type TestResult struct {
	Spec       QuerySpec     `json:"spec"`
	Passed     bool          `json:"passed"`
	Duration   time.Duration `json:"duration_ns"`
	TopResults []string      `json:"top_results"`
	// MatchedAt is the rank (0-based) of the first expected document, or -1.
	MatchedAt int    `json:"matched_at"`
	Error     string `json:"error,omitempty"`
}

// ValidationResult captures a full run.
type ValidationResult struct {
	Timestamp  time.Time    `json:"timestamp"`
	Tier1      []TestResult `json:"tier1"`
	Tier2      []TestResult `json:"tier2"`
	Negative   []TestResult `json:"negative"`
	Tier1Pass  int          `json:"tier1_pass"`
	Tier1Total int          `json:"tier1_total"`
	Tier2Pass  int          `json:"tier2_pass"`
	Tier2Total int          `json:"tier2_total"`
	NegPass    int          `json:"negative_pass"`
	NegTotal   int          `json:"negative_total"`
}

// OK reports whether every Tier 1 and negative check passed.
func (r *ValidationResult) OK() bool {
	return r.Tier1Pass == r.Tier1Total && r.NegPass == r.NegTotal
}

// Summary is a one-line pass count per tier.
func (r *ValidationResult) Summary() string {
	return fmt.Sprintf("tier1 %d/%d, tier2 %d/%d, negative %d/%d",
		r.Tier1Pass, r.Tier1Total, r.Tier2Pass, r.Tier2Total, r.NegPass, r.NegTotal)
}

// Validator runs checks against a search engine.
type Validator struct {
	searcher search.Searcher
}

// NewValidator creates a validator over s.
func NewValidator(s search.Searcher) *Validator {
	return &Validator{searcher: s}
}

// RunQuery executes one check.
func (v *Validator) RunQuery(ctx context.Context, spec QuerySpec) TestResult {
	topN := spec.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	result := TestResult{Spec: spec, MatchedAt: -1}

	start := time.Now()
	results, err := v.searcher.Search(ctx, spec.Query, topN)
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = err.Error()
		// A negative check may be rejected, just not fail internally.
		result.Passed = spec.Tier == 0 && doterrors.GetCategory(err) == doterrors.CategoryValidation
		return result
	}

	for _, r := range results {
		result.TopResults = append(result.TopResults, r.DocID)
	}

	if len(spec.Expected) == 0 {
		result.Passed = true
	} else {
		result.Passed, result.MatchedAt = checkExpected(result.TopResults, spec.Expected)
	}
	return result
}

// RunAll executes every check in cfg.
func (v *Validator) RunAll(ctx context.Context, cfg *QueryConfig) *ValidationResult {
	result := &ValidationResult{Timestamp: time.Now()}

	for _, spec := range cfg.Tier1 {
		tr := v.RunQuery(ctx, spec)
		result.Tier1 = append(result.Tier1, tr)
		result.Tier1Total++
		if tr.Passed {
			result.Tier1Pass++
		}
	}
	for _, spec := range cfg.Tier2 {
		tr := v.RunQuery(ctx, spec)
		result.Tier2 = append(result.Tier2, tr)
		result.Tier2Total++
		if tr.Passed {
			result.Tier2Pass++
		}
	}
	for _, spec := range cfg.Negative {
		tr := v.RunQuery(ctx, spec)
		result.Negative = append(result.Negative, tr)
		result.NegTotal++
		if tr.Passed {
			result.NegPass++
		}
	}

	return result
}

// checkExpected returns the rank of the first result matching any
// expected ID or prefix.
func checkExpected(results, expected []string) (bool, int) {
	for i, id := range results {
		for _, exp := range expected {
			if id == exp || strings.HasPrefix(id, exp) {
				return true, i
			}
		}
	}
	return false, -1
}
