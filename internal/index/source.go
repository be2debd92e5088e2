// Package index drives ingestion: it pulls text from document sources and
// writes it into the index store, one document at a time.
package index

import (
	"context"
)

// Source is anything that can supply a document: a stable identity, a
// display name and its raw text. Text may fail; the indexer records the
// failure and moves on.
type Source interface {
	ID() string
	Name() string
	Text(ctx context.Context) (string, error)
}

// Collection is an ordered set of sources. Documents are written in
// collection order.
type Collection []Source

// IDs returns the identities in the collection.
func (c Collection) IDs() []string {
	ids := make([]string, len(c))
	for i, s := range c {
		ids[i] = s.ID()
	}
	return ids
}

// TextSource is a Source over text already in memory.
type TextSource struct {
	DocID   string
	DocName string
	Body    string
}

// ID implements Source.
func (s TextSource) ID() string { return s.DocID }

// Name implements Source.
func (s TextSource) Name() string {
	if s.DocName == "" {
		return s.DocID
	}
	return s.DocName
}

// Text implements Source.
func (s TextSource) Text(context.Context) (string, error) { return s.Body, nil }
