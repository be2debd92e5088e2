package validation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
	"github.com/omarfoud/pdf-text-searcher/internal/normalize"
	"github.com/omarfoud/pdf-text-searcher/internal/search"
	"github.com/omarfoud/pdf-text-searcher/internal/store"
)

type failingSearcher struct {
	err error
}

func (f failingSearcher) Search(context.Context, string, int, ...search.SearchOption) ([]search.Result, error) {
	return nil, f.err
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	st, err := store.Open("", normalize.MustNew(normalize.StemmerPorter), store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	require.NoError(t, st.UpsertDocument(ctx, "doc1.txt", "doc1.txt", "The running runners ran races"))
	require.NoError(t, st.UpsertDocument(ctx, "animals/doc2.txt", "doc2.txt", "Cats chase running mice"))

	engine, err := search.New(st, search.DefaultOptions())
	require.NoError(t, err)
	return NewValidator(engine)
}

func TestLoadQueries(t *testing.T) {
	cfg, err := LoadQueries(filepath.Join("testdata", "queries.yaml"))

	require.NoError(t, err)
	require.Len(t, cfg.Tier1, 3)
	require.Len(t, cfg.Tier2, 2)
	require.Len(t, cfg.Negative, 2)
	assert.Equal(t, 1, cfg.Tier1[0].Tier)
	assert.Equal(t, 2, cfg.Tier2[0].Tier)
	assert.Equal(t, 0, cfg.Negative[0].Tier)
	assert.Equal(t, 1, cfg.Tier1[0].TopN)
}

func TestParseQueries_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing id", "tier1:\n  - query: run\n    expected: [a]\n"},
		{"duplicate id", "tier1:\n  - id: A\n    query: run\n    expected: [a]\n  - id: A\n    query: ran\n    expected: [a]\n"},
		{"tier check without expectations", "tier2:\n  - id: A\n    query: run\n"},
		{"malformed", "tier1: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQueries([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestValidator_RunAll(t *testing.T) {
	// Given the sample checks over the example documents
	cfg, err := LoadQueries(filepath.Join("testdata", "queries.yaml"))
	require.NoError(t, err)
	v := newTestValidator(t)

	// When running them all
	result := v.RunAll(context.Background(), cfg)

	// Then every Tier 1 and negative check passes and the unmatched
	// Tier 2 check fails
	assert.Equal(t, 3, result.Tier1Pass, result.Tier1)
	assert.Equal(t, 2, result.NegPass, result.Negative)
	assert.Equal(t, 1, result.Tier2Pass)
	assert.True(t, result.OK())
	assert.Equal(t, "tier1 3/3, tier2 1/2, negative 2/2", result.Summary())
	assert.Equal(t, -1, result.Tier2[1].MatchedAt)
}

func TestValidator_RunQuery(t *testing.T) {
	v := newTestValidator(t)

	t.Run("records rank of first expected match", func(t *testing.T) {
		res := v.RunQuery(context.Background(), QuerySpec{
			ID: "X", Query: "run", Expected: []string{"animals/"}, Tier: 1,
		})

		assert.True(t, res.Passed)
		assert.Equal(t, 1, res.MatchedAt)
		assert.Equal(t, []string{"doc1.txt", "animals/doc2.txt"}, res.TopResults)
	})

	t.Run("top_n limits the depth", func(t *testing.T) {
		res := v.RunQuery(context.Background(), QuerySpec{
			ID: "X", Query: "run", Expected: []string{"animals/"}, TopN: 1, Tier: 1,
		})

		assert.False(t, res.Passed)
		assert.Equal(t, []string{"doc1.txt"}, res.TopResults)
	})
}

func TestValidator_ErrorHandling(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		tier   int
		passed bool
	}{
		{"negative check rejected as invalid", doterrors.InvalidArgument("bad"), 0, true},
		{"negative check failing internally", doterrors.InternalError("boom", nil), 0, false},
		{"tier check erroring", doterrors.InvalidArgument("bad"), 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(failingSearcher{err: tt.err})

			res := v.RunQuery(context.Background(), QuerySpec{ID: "X", Query: "q", Tier: tt.tier, Expected: []string{"a"}})

			assert.Equal(t, tt.passed, res.Passed)
			assert.NotEmpty(t, res.Error)
		})
	}
}
