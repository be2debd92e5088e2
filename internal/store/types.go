// Package store persists the inverted index: documents with their raw text
// and token tables, per-term postings, and the aggregate statistics ranking
// needs.
package store

import (
	"context"
	"time"

	"github.com/omarfoud/pdf-text-searcher/internal/normalize"
)

// Document is an indexed document.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	RawText     string    `json:"raw_text,omitempty"`
	ContentHash string    `json:"content_hash"`
	IndexedAt   time.Time `json:"indexed_at"`
	// Length is the number of tokens in the document.
	Length int `json:"length"`
}

// Posting records one term's occurrences in one document.
// Positions are token ordinals in ascending order.
type Posting struct {
	DocID         string `json:"doc_id"`
	TermFrequency int    `json:"tf"`
	Positions     []int  `json:"positions"`
}

// Stats summarizes the index.
type Stats struct {
	Documents     int       `json:"documents"`
	EmptyDocs     int       `json:"empty_documents"`
	Terms         int       `json:"terms"`
	TotalTokens   int64     `json:"total_tokens"`
	AverageLength float64   `json:"average_length"`
	LastIndexed   time.Time `json:"last_indexed"`
	Analyzer      string    `json:"analyzer"`
	SizeBytes     int64     `json:"size_bytes"`
}

// Reader is a consistent read view of the index. Every call made through
// one Reader observes the same committed state.
type Reader interface {
	// LookupTerm returns the postings for term ordered by document ID.
	// Unknown terms yield an empty list, not an error.
	LookupTerm(ctx context.Context, term string) ([]Posting, error)

	// DocumentCount returns the number of documents in the index,
	// including documents stored without postings.
	DocumentCount(ctx context.Context) (int, error)

	// AverageDocumentLength returns the mean token count per document.
	AverageDocumentLength(ctx context.Context) (float64, error)

	// DocumentLength returns the token count of one document.
	// The bool is false when the document is not indexed.
	DocumentLength(ctx context.Context, id string) (int, bool, error)

	// GetDocument returns the document and its token table, or nil when
	// the document is not indexed.
	GetDocument(ctx context.Context, id string) (*Document, []normalize.Token, error)
}

// Store is the durable index. One writer at a time; any number of readers.
type Store interface {
	// Normalizer returns the pipeline the index was built with. Queries
	// must use the same one.
	Normalizer() *normalize.Normalizer

	// UpsertDocument normalizes rawText and atomically replaces everything
	// stored for id. A document with no tokens is still stored and an
	// ExtractionEmpty error is returned.
	UpsertDocument(ctx context.Context, id, name, rawText string) error

	// RemoveDocument purges id and every posting referencing it.
	// Removing an absent document is a no-op.
	RemoveDocument(ctx context.Context, id string) error

	// View runs fn against a read snapshot.
	View(ctx context.Context, fn func(r Reader) error) error

	// ContentHash returns the stored content hash for id.
	ContentHash(ctx context.Context, id string) (string, bool, error)

	// ListDocuments returns metadata (no raw text) for every document.
	ListDocuments(ctx context.Context) ([]Document, error)

	// Stats returns index statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases resources.
	Close() error

	Reader
}
