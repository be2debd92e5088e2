package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ExampleDocuments(t *testing.T) {
	for _, stemmer := range []Stemmer{StemmerPorter, StemmerSnowball} {
		t.Run(string(stemmer), func(t *testing.T) {
			n := MustNew(stemmer)

			// Given: the two example documents
			doc1 := "The running runners ran races"
			doc2 := "Cats chase running mice"

			// When: normalizing
			t1 := n.Terms(doc1)
			t2 := n.Terms(doc2)

			// Then: "running", "runners" and "ran" share the query stem of "run"
			assert.Equal(t, []string{"the", "run", "run", "run", "race"}, t1)
			assert.Equal(t, "run", t2[2])
			assert.Equal(t, []string{"run"}, n.Terms("run"))
		})
	}
}

func TestNormalize_SpansPointAtSurfaceForms(t *testing.T) {
	for _, stemmer := range []Stemmer{StemmerPorter, StemmerSnowball} {
		t.Run(string(stemmer), func(t *testing.T) {
			n := MustNew(stemmer)
			text := "Cats chase running mice, and the runner's dog—naïvely—RAN off."

			tokens := n.Normalize(text)
			require.NotEmpty(t, tokens)

			surfaces := make([]string, len(tokens))
			for i, tok := range tokens {
				require.GreaterOrEqual(t, tok.Start, 0)
				require.LessOrEqual(t, tok.End, len(text))
				require.Less(t, tok.Start, tok.End)
				surfaces[i] = text[tok.Start:tok.End]
			}
			assert.Equal(t, []string{
				"Cats", "chase", "running", "mice", "and", "the", "runner's", "dog", "naïvely", "RAN", "off",
			}, surfaces)
		})
	}
}

func TestNormalize_PositionsDenseAndSpansIncreasing(t *testing.T) {
	n := MustNew(StemmerPorter)
	tokens := n.Normalize("  ...first,   second;; third!!! -- fourth  ")

	require.Len(t, tokens, 4)
	for i, tok := range tokens {
		assert.Equal(t, i, tok.Position)
		if i > 0 {
			assert.GreaterOrEqual(t, tok.Start, tokens[i-1].End, "spans must not overlap")
		}
	}
}

func TestNormalize_PunctuationAndWhitespaceOnly(t *testing.T) {
	n := MustNew(StemmerPorter)

	assert.Empty(t, n.Normalize(""))
	assert.Empty(t, n.Normalize("   \n\t  "))
	assert.Empty(t, n.Normalize("!!! ... --- ???"))
}

func TestNormalize_IsDeterministic(t *testing.T) {
	n := MustNew(StemmerSnowball)
	text := "Indexing indexes indexed documents; the indexer re-indexes."

	first := n.Normalize(text)
	second := n.Normalize(text)
	assert.Equal(t, first, second)

	// A second normalizer with the same pipeline agrees too.
	assert.Equal(t, first, MustNew(StemmerSnowball).Normalize(text))
}

func TestNormalize_CaseFoldingAndLemmas(t *testing.T) {
	n := MustNew(StemmerPorter)

	tests := []struct {
		name string
		a, b string
	}{
		{"case", "RUNNING", "running"},
		{"irregular verb", "ran", "run"},
		{"irregular verb uppercase", "RAN", "runs"},
		{"irregular plural", "mice", "mouse"},
		{"possessive", "runner's", "runner"},
		{"agent noun", "runners", "run"},
		{"agent noun possessive", "runner's", "ran"},
		{"doubled consonant agent noun", "Swimmers", "swimming"},
		{"regular plural", "races", "race"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, n.Terms(tt.a), n.Terms(tt.b))
		})
	}
}

func TestNew_UnknownStemmer(t *testing.T) {
	_, err := New("lancaster")
	require.Error(t, err)
}

func TestName_DependsOnStemmer(t *testing.T) {
	porter := MustNew(StemmerPorter)
	snowball := MustNew(StemmerSnowball)

	assert.Equal(t, "doctext_en_porter", porter.Name())
	assert.Equal(t, "doctext_en_snowball", snowball.Name())
	assert.Equal(t, "doctext_en_porter", MustNew("").Name())
}
