//go:build ignore

// Package main generates a synthetic document collection for benchmarking.
// Usage: go run scripts/generate-test-corpus.go -docs 1000 -output testdata/bench
//
// Word frequencies follow a Zipf distribution so posting lists have the
// long-tail shape of natural text.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numDocs   = flag.Int("docs", 1000, "Number of documents to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	minWords  = flag.Int("min-words", 200, "Minimum words per document")
	maxWords  = flag.Int("max-words", 4000, "Maximum words per document")
)

// Vocabulary, most frequent first.
var vocabulary = strings.Fields(`
	the of and to a in is that for it as was with be by on not he this are or
	his from at which but have an they you were her she there been one all we
	their has would when if so no will more can who about up said out some
	time what them into only other new like could than these two may first
	then do any over such our after most also made many before must through
	report revenue quarter market research study analysis method result data
	system model process growth customer product service team project policy
	running runner race chase cat mouse river mountain harbor engine signal
	contract invoice meeting schedule budget forecast audit review summary
	library archive catalog index search query ranking snippet document page
	laboratory experiment sample measurement variance protocol hypothesis
	treaty council election minister parliament committee amendment statute
`)

var sections = []string{"reports", "letters", "minutes", "papers", "notes"}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))
	zipf := rand.NewZipf(rng, 1.1, 2, uint64(len(vocabulary)-1))

	for _, sub := range sections {
		if err := os.MkdirAll(filepath.Join(*outputDir, sub), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating directory %s: %v\n", sub, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generating %d documents in %s...\n", *numDocs, *outputDir)

	var totalWords int
	for i := 0; i < *numDocs; i++ {
		words := *minWords + rng.Intn(*maxWords-*minWords+1)
		totalWords += words

		ext := ".txt"
		if i%5 == 0 {
			ext = ".md"
		}
		name := filepath.Join(*outputDir, sections[i%len(sections)], fmt.Sprintf("doc-%05d%s", i, ext))
		if err := os.WriteFile(name, []byte(document(rng, zipf, words)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Done: %d documents, %d words\n", *numDocs, totalWords)
}

// document renders n words as sentences grouped into paragraphs.
func document(rng *rand.Rand, zipf *rand.Zipf, n int) string {
	var sb strings.Builder
	sentence := 0
	for i := 0; i < n; i++ {
		word := vocabulary[zipf.Uint64()]
		if sentence == 0 {
			word = strings.ToUpper(word[:1]) + word[1:]
		} else {
			sb.WriteByte(' ')
		}
		sb.WriteString(word)
		sentence++

		if sentence > 6 && rng.Intn(10) == 0 {
			sb.WriteString(".")
			sentence = 0
			if rng.Intn(6) == 0 {
				sb.WriteString("\n\n")
			} else {
				sb.WriteByte(' ')
			}
		}
	}
	sb.WriteString(".\n")
	return sb.String()
}
