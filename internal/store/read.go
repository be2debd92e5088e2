package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/omarfoud/pdf-text-searcher/internal/normalize"
)

// txReader implements Reader inside one read transaction.
type txReader struct {
	tx   *sql.Tx
	docs *documentCache
}

var _ Reader = (*txReader)(nil)

// LookupTerm implements Reader.
func (r *txReader) LookupTerm(ctx context.Context, term string) ([]Posting, error) {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT doc_id, tf, positions FROM postings WHERE term = ? ORDER BY doc_id`, term)
	if err != nil {
		return nil, fmt.Errorf("failed to look up term %q: %w", term, err)
	}
	defer rows.Close()

	postings := []Posting{}
	for rows.Next() {
		var p Posting
		var positions string
		if err := rows.Scan(&p.DocID, &p.TermFrequency, &positions); err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}
		if err := json.Unmarshal([]byte(positions), &p.Positions); err != nil {
			return nil, fmt.Errorf("corrupt positions for %q in %s: %w", term, p.DocID, err)
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// DocumentCount implements Reader.
func (r *txReader) DocumentCount(ctx context.Context) (int, error) {
	var n int
	if err := r.tx.QueryRowContext(ctx, `SELECT total_docs FROM stats WHERE id = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to read document count: %w", err)
	}
	return n, nil
}

// AverageDocumentLength implements Reader.
func (r *txReader) AverageDocumentLength(ctx context.Context) (float64, error) {
	var docs int
	var total int64
	err := r.tx.QueryRowContext(ctx, `SELECT total_docs, total_length FROM stats WHERE id = 1`).Scan(&docs, &total)
	if err != nil {
		return 0, fmt.Errorf("failed to read length stats: %w", err)
	}
	if docs == 0 {
		return 0, nil
	}
	return float64(total) / float64(docs), nil
}

// DocumentLength implements Reader.
func (r *txReader) DocumentLength(ctx context.Context, id string) (int, bool, error) {
	var n int
	err := r.tx.QueryRowContext(ctx, `SELECT length FROM documents WHERE id = ?`, id).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read length of %s: %w", id, err)
	}
	return n, true, nil
}

// GetDocument implements Reader.
func (r *txReader) GetDocument(ctx context.Context, id string) (*Document, []normalize.Token, error) {
	var doc Document
	var indexedAt int64
	err := r.tx.QueryRowContext(ctx,
		`SELECT name, content_hash, indexed_at, length FROM documents WHERE id = ?`, id).
		Scan(&doc.Name, &doc.ContentHash, &indexedAt, &doc.Length)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}
	doc.ID = id
	doc.IndexedAt = time.Unix(0, indexedAt).UTC()

	if cached, ok := r.docs.get(id, doc.ContentHash); ok {
		doc.RawText = cached.rawText
		return &doc, cached.tokens, nil
	}

	var blob []byte
	err = r.tx.QueryRowContext(ctx, `SELECT raw_text, tokens FROM documents WHERE id = ?`, id).
		Scan(&doc.RawText, &blob)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read text of %s: %w", id, err)
	}
	tokens, err := decodeTokens(blob)
	if err != nil {
		return nil, nil, fmt.Errorf("corrupt token table for %s: %w", id, err)
	}

	r.docs.add(id, doc.ContentHash, &cachedDocument{rawText: doc.RawText, tokens: tokens})
	return &doc, tokens, nil
}

func (r *txReader) contentHash(ctx context.Context, id string) (string, bool, error) {
	var hash string
	err := r.tx.QueryRowContext(ctx, `SELECT content_hash FROM documents WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read hash of %s: %w", id, err)
	}
	return hash, true, nil
}

func (r *txReader) listDocuments(ctx context.Context) ([]Document, error) {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT id, name, content_hash, indexed_at, length FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var indexedAt int64
		if err := rows.Scan(&d.ID, &d.Name, &d.ContentHash, &indexedAt, &d.Length); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.IndexedAt = time.Unix(0, indexedAt).UTC()
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *txReader) stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := r.tx.QueryRowContext(ctx, `SELECT total_docs, total_length FROM stats WHERE id = 1`).
		Scan(&st.Documents, &st.TotalTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	if st.Documents > 0 {
		st.AverageLength = float64(st.TotalTokens) / float64(st.Documents)
	}

	if err := r.tx.QueryRowContext(ctx, `SELECT COUNT(DISTINCT term) FROM postings`).Scan(&st.Terms); err != nil {
		return nil, fmt.Errorf("failed to count terms: %w", err)
	}
	if err := r.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE length = 0`).Scan(&st.EmptyDocs); err != nil {
		return nil, fmt.Errorf("failed to count empty documents: %w", err)
	}

	var last sql.NullInt64
	if err := r.tx.QueryRowContext(ctx, `SELECT MAX(indexed_at) FROM documents`).Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to read last indexed time: %w", err)
	}
	if last.Valid {
		st.LastIndexed = time.Unix(0, last.Int64).UTC()
	}
	return &st, nil
}

// tokenRecord is the compact on-disk token form: [term, start, end].
// Positions are implied by order.
type tokenRecord struct {
	Term  string
	Start int
	End   int
}

func (t tokenRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.Term, t.Start, t.End})
}

func (t *tokenRecord) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("token record has %d fields, want 3", len(raw))
	}
	if err := json.Unmarshal(raw[0], &t.Term); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &t.Start); err != nil {
		return err
	}
	return json.Unmarshal(raw[2], &t.End)
}

func encodeTokens(tokens []normalize.Token) ([]byte, error) {
	records := make([]tokenRecord, len(tokens))
	for i, t := range tokens {
		records[i] = tokenRecord{Term: t.Term, Start: t.Start, End: t.End}
	}
	return json.Marshal(records)
}

func decodeTokens(blob []byte) ([]normalize.Token, error) {
	var records []tokenRecord
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, err
	}
	tokens := make([]normalize.Token, len(records))
	for i, r := range records {
		tokens[i] = normalize.Token{Term: r.Term, Position: i, Start: r.Start, End: r.End}
	}
	return tokens, nil
}
