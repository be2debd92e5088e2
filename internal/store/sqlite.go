package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
	"github.com/omarfoud/pdf-text-searcher/internal/normalize"
)

const schemaVersion = "1"

// Options tunes a SQLiteStore.
type Options struct {
	// CacheSize is the number of documents kept in the snippet cache.
	CacheSize int
	// ReadConns is the size of the reader connection pool.
	ReadConns int
	// ResetOnMismatch clears an index built with a different normalizer
	// instead of refusing to open it.
	ResetOnMismatch bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{CacheSize: 256, ReadConns: 4}
}

// SQLiteStore implements Store on SQLite in WAL mode.
//
// Each document replace is one write transaction, so a crash mid-write
// leaves the previous committed state and readers (who run inside their own
// read transactions) see either the old or the new postings of a document,
// never a mix.
type SQLiteStore struct {
	mu     sync.RWMutex
	closed bool

	// writeMu serializes writers inside this process; SQLite's write lock
	// does the same across processes.
	writeMu sync.Mutex

	writer *sql.DB
	reader *sql.DB
	path   string

	normalizer *normalize.Normalizer
	docs       *documentCache
	logger     *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) the index at path. An empty path opens an
// in-memory index for tests.
func Open(path string, n *normalize.Normalizer, opts Options) (*SQLiteStore, error) {
	if n == nil {
		return nil, fmt.Errorf("normalizer is required")
	}
	if opts.ReadConns <= 0 {
		opts.ReadConns = DefaultOptions().ReadConns
	}

	s := &SQLiteStore{
		path:       path,
		normalizer: n,
		docs:       newDocumentCache(opts.CacheSize),
		logger:     slog.Default(),
	}

	if path == "" {
		// Every :memory: connection is a separate database, so reads and
		// writes share one connection.
		db, err := openDB(":memory:", 1)
		if err != nil {
			return nil, err
		}
		s.writer, s.reader = db, db
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
		}
		if err := recoverCorrupt(path); err != nil {
			return nil, err
		}

		writer, err := openDB(path+"?_txlock=immediate&"+pragmaDSN, 1)
		if err != nil {
			return nil, err
		}
		s.writer = writer
	}

	if err := s.initSchema(); err != nil {
		_ = s.writer.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.checkAnalyzer(opts.ResetOnMismatch); err != nil {
		_ = s.writer.Close()
		return nil, err
	}

	if s.reader == nil {
		// The schema exists now, so query_only connections can open it.
		reader, err := openDB(path+"?"+pragmaDSN+"&_pragma=query_only(1)", opts.ReadConns)
		if err != nil {
			_ = s.writer.Close()
			return nil, err
		}
		s.reader = reader
	}

	return s, nil
}

// pragmaDSN is applied to every pooled connection (modernc.org/sqlite
// runs _pragma parameters on connect).
const pragmaDSN = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)"

func openDB(dsn string, conns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// recoverCorrupt removes an index file that fails SQLite's integrity check.
// The index is derived data, so a rebuild is always possible.
func recoverCorrupt(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	checkErr := func() error {
		db, err := sql.Open("sqlite", path+"?mode=ro")
		if err != nil {
			return err
		}
		defer db.Close()

		var result string
		if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
			return err
		}
		if result != "ok" {
			return fmt.Errorf("integrity check: %s", result)
		}
		return nil
	}()
	if checkErr == nil {
		return nil
	}

	slog.Warn("index_corrupted",
		slog.String("path", path),
		slog.String("error", checkErr.Error()))

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return doterrors.New(doterrors.ErrCodeCorruptIndex,
			fmt.Sprintf("index at %s is corrupted and cannot be removed", path), err)
	}
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")

	slog.Info("index_corruption_recovered",
		slog.String("path", path),
		slog.String("action", "cleared, reindex required"))
	return nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- tokens holds the JSON-encoded token table of the document.
	CREATE TABLE IF NOT EXISTS documents (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		raw_text     TEXT NOT NULL,
		tokens       BLOB NOT NULL,
		content_hash TEXT NOT NULL,
		indexed_at   INTEGER NOT NULL,
		length       INTEGER NOT NULL
	);

	-- positions is a JSON array of token ordinals.
	CREATE TABLE IF NOT EXISTS postings (
		term      TEXT NOT NULL,
		doc_id    TEXT NOT NULL,
		tf        INTEGER NOT NULL,
		positions TEXT NOT NULL,
		PRIMARY KEY (term, doc_id)
	) WITHOUT ROWID;

	CREATE INDEX IF NOT EXISTS idx_postings_doc ON postings(doc_id);

	CREATE TABLE IF NOT EXISTS stats (
		id           INTEGER PRIMARY KEY CHECK (id = 1),
		total_docs   INTEGER NOT NULL,
		total_length INTEGER NOT NULL
	);

	INSERT OR IGNORE INTO stats (id, total_docs, total_length) VALUES (1, 0, 0);
	INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', '` + schemaVersion + `');
	`

	_, err := s.writer.Exec(schema)
	return err
}

// checkAnalyzer records the normalizer in a new index, and refuses (or
// resets) an index whose terms came from a different one.
func (s *SQLiteStore) checkAnalyzer(reset bool) error {
	var stored string
	err := s.writer.QueryRow(`SELECT value FROM meta WHERE key = 'analyzer'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		stored = ""
	case err != nil:
		return fmt.Errorf("failed to read index metadata: %w", err)
	}

	want := s.normalizer.Name()
	if stored == want {
		return nil
	}

	if stored != "" {
		var docs int
		if err := s.writer.QueryRow(`SELECT total_docs FROM stats WHERE id = 1`).Scan(&docs); err != nil {
			return fmt.Errorf("failed to read index stats: %w", err)
		}
		if docs > 0 && !reset {
			return doterrors.New(doterrors.ErrCodeAnalyzerMismatch,
				fmt.Sprintf("index was built with %s, configured normalizer is %s", stored, want), nil).
				WithDetail("index_analyzer", stored).
				WithDetail("configured_analyzer", want).
				WithSuggestion("rebuild the index with: doctext index --force")
		}
		if docs > 0 {
			if err := s.clear(context.Background()); err != nil {
				return err
			}
			s.logger.Info("index_reset",
				slog.String("previous_analyzer", stored),
				slog.String("analyzer", want))
		}
	}

	_, err = s.writer.Exec(`INSERT INTO meta (key, value) VALUES ('analyzer', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, want)
	return err
}

// Normalizer implements Store.
func (s *SQLiteStore) Normalizer() *normalize.Normalizer {
	return s.normalizer
}

// Path returns the database path ("" for in-memory stores).
func (s *SQLiteStore) Path() string {
	return s.path
}

// View implements Store.
func (s *SQLiteStore) View(ctx context.Context, fn func(r Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("index store is closed")
	}

	tx, err := s.reader.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(&txReader{tx: tx, docs: s.docs})
}

// LookupTerm implements Reader in its own snapshot.
func (s *SQLiteStore) LookupTerm(ctx context.Context, term string) (postings []Posting, err error) {
	err = s.View(ctx, func(r Reader) error {
		postings, err = r.LookupTerm(ctx, term)
		return err
	})
	return postings, err
}

// DocumentCount implements Reader in its own snapshot.
func (s *SQLiteStore) DocumentCount(ctx context.Context) (n int, err error) {
	err = s.View(ctx, func(r Reader) error {
		n, err = r.DocumentCount(ctx)
		return err
	})
	return n, err
}

// AverageDocumentLength implements Reader in its own snapshot.
func (s *SQLiteStore) AverageDocumentLength(ctx context.Context) (avg float64, err error) {
	err = s.View(ctx, func(r Reader) error {
		avg, err = r.AverageDocumentLength(ctx)
		return err
	})
	return avg, err
}

// DocumentLength implements Reader in its own snapshot.
func (s *SQLiteStore) DocumentLength(ctx context.Context, id string) (n int, ok bool, err error) {
	err = s.View(ctx, func(r Reader) error {
		n, ok, err = r.DocumentLength(ctx, id)
		return err
	})
	return n, ok, err
}

// GetDocument implements Reader in its own snapshot.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (doc *Document, tokens []normalize.Token, err error) {
	err = s.View(ctx, func(r Reader) error {
		doc, tokens, err = r.GetDocument(ctx, id)
		return err
	})
	return doc, tokens, err
}

// ContentHash implements Store.
func (s *SQLiteStore) ContentHash(ctx context.Context, id string) (hash string, ok bool, err error) {
	err = s.View(ctx, func(r Reader) error {
		hash, ok, err = r.(*txReader).contentHash(ctx, id)
		return err
	})
	return hash, ok, err
}

// ListDocuments implements Store.
func (s *SQLiteStore) ListDocuments(ctx context.Context) (docs []Document, err error) {
	err = s.View(ctx, func(r Reader) error {
		docs, err = r.(*txReader).listDocuments(ctx)
		return err
	})
	return docs, err
}

// Stats implements Store.
func (s *SQLiteStore) Stats(ctx context.Context) (stats *Stats, err error) {
	err = s.View(ctx, func(r Reader) error {
		stats, err = r.(*txReader).stats(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	stats.Analyzer = s.normalizer.Name()
	if s.path != "" {
		for _, p := range []string{s.path, s.path + "-wal"} {
			if info, statErr := os.Stat(p); statErr == nil {
				stats.SizeBytes += info.Size()
			}
		}
	}
	return stats, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.docs.purge()

	var err error
	if s.reader != s.writer {
		err = s.reader.Close()
	}
	if werr := s.writer.Close(); werr != nil && err == nil {
		err = werr
	}
	return err
}
