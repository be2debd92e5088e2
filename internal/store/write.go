package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
	"github.com/omarfoud/pdf-text-searcher/internal/normalize"
)

// HashContent returns the content hash stored with a document.
func HashContent(rawText string) string {
	sum := sha256.Sum256([]byte(rawText))
	return hex.EncodeToString(sum[:])
}

// termPostings groups a token stream into per-term position lists, ordered
// by term so writes are deterministic.
func termPostings(tokens []normalize.Token) ([]string, map[string][]int) {
	positions := make(map[string][]int)
	for _, t := range tokens {
		positions[t.Term] = append(positions[t.Term], t.Position)
	}
	terms := make([]string, 0, len(positions))
	for term := range positions {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms, positions
}

// UpsertDocument implements Store.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, id, name, rawText string) error {
	if id == "" {
		return doterrors.InvalidArgument("document id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return doterrors.StoreWriteError("upsert", fmt.Errorf("index store is closed"))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tokens := s.normalizer.Normalize(rawText)
	hash := HashContent(rawText)
	blob, err := encodeTokens(tokens)
	if err != nil {
		return doterrors.StoreWriteError("upsert", err)
	}
	terms, positions := termPostings(tokens)

	oldHash, err := s.writeTx(ctx, func(tx *sql.Tx) (string, error) {
		var oldLength int
		var oldHash string
		existed := true
		err := tx.QueryRowContext(ctx, `SELECT length, content_hash FROM documents WHERE id = ?`, id).
			Scan(&oldLength, &oldHash)
		if err == sql.ErrNoRows {
			existed = false
		} else if err != nil {
			return "", err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM postings WHERE doc_id = ?`, id); err != nil {
			return "", err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (id, name, raw_text, tokens, content_hash, indexed_at, length)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				raw_text = excluded.raw_text,
				tokens = excluded.tokens,
				content_hash = excluded.content_hash,
				indexed_at = excluded.indexed_at,
				length = excluded.length`,
			id, name, rawText, blob, hash, time.Now().UnixNano(), len(tokens))
		if err != nil {
			return "", err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO postings (term, doc_id, tf, positions) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return "", err
		}
		defer stmt.Close()

		for _, term := range terms {
			pos := positions[term]
			encoded, err := json.Marshal(pos)
			if err != nil {
				return "", err
			}
			if _, err := stmt.ExecContext(ctx, term, id, len(pos), string(encoded)); err != nil {
				return "", err
			}
		}

		docDelta, lengthDelta := 1, len(tokens)
		if existed {
			docDelta, lengthDelta = 0, len(tokens)-oldLength
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE stats SET total_docs = total_docs + ?, total_length = total_length + ? WHERE id = 1`,
			docDelta, lengthDelta)
		return oldHash, err
	})
	if err != nil {
		return doterrors.StoreWriteError("upsert", err).WithDetail("doc_id", id)
	}

	if oldHash != "" && oldHash != hash {
		s.docs.remove(id, oldHash)
	}

	s.logger.Debug("document_indexed",
		slog.String("doc_id", id),
		slog.Int("tokens", len(tokens)),
		slog.Int("terms", len(terms)))

	if len(tokens) == 0 {
		return doterrors.ExtractionEmpty(id)
	}
	return nil
}

// RemoveDocument implements Store.
func (s *SQLiteStore) RemoveDocument(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return doterrors.StoreWriteError("remove", fmt.Errorf("index store is closed"))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	oldHash, err := s.writeTx(ctx, func(tx *sql.Tx) (string, error) {
		var length int
		var hash string
		err := tx.QueryRowContext(ctx, `SELECT length, content_hash FROM documents WHERE id = ?`, id).
			Scan(&length, &hash)
		if err == sql.ErrNoRows {
			return "", nil
		}
		if err != nil {
			return "", err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM postings WHERE doc_id = ?`, id); err != nil {
			return "", err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
			return "", err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE stats SET total_docs = total_docs - 1, total_length = total_length - ? WHERE id = 1`,
			length)
		return hash, err
	})
	if err != nil {
		return doterrors.StoreWriteError("remove", err).WithDetail("doc_id", id)
	}

	if oldHash != "" {
		s.docs.remove(id, oldHash)
		s.logger.Debug("document_removed", slog.String("doc_id", id))
	}
	return nil
}

// writeTx runs fn in a write transaction, committing only if fn succeeds.
func (s *SQLiteStore) writeTx(ctx context.Context, fn func(tx *sql.Tx) (string, error)) (string, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin write: %w", err)
	}

	out, err := fn(tx)
	if err != nil {
		_ = tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return out, nil
}

// clear empties the index, keeping the schema.
func (s *SQLiteStore) clear(ctx context.Context) error {
	_, err := s.writeTx(ctx, func(tx *sql.Tx) (string, error) {
		for _, q := range []string{
			`DELETE FROM postings`,
			`DELETE FROM documents`,
			`UPDATE stats SET total_docs = 0, total_length = 0 WHERE id = 1`,
		} {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return "", err
			}
		}
		return "", nil
	})
	if err != nil {
		return doterrors.StoreWriteError("clear", err)
	}
	s.docs.purge()
	return nil
}

// Reset removes every document from the index.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return doterrors.StoreWriteError("clear", fmt.Errorf("index store is closed"))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.clear(ctx); err != nil {
		return err
	}
	s.logger.Info("index_reset", slog.String("analyzer", s.normalizer.Name()))
	return nil
}
