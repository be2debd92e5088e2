package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/omarfoud/pdf-text-searcher/internal/config"
	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
	"github.com/omarfoud/pdf-text-searcher/internal/normalize"
	"github.com/omarfoud/pdf-text-searcher/internal/scanner"
	"github.com/omarfoud/pdf-text-searcher/internal/search"
	"github.com/omarfoud/pdf-text-searcher/internal/store"
)

// loadConfig loads the configuration for the collection rooted at dir.
func loadConfig(dir string) (*config.Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	cfg, err := config.Load(abs)
	if err != nil {
		return nil, doterrors.ConfigError(err.Error(), errors.Unwrap(err)).
			WithSuggestion("fix " + config.ProjectConfigName + " or remove the offending key")
	}
	return cfg, nil
}

// storeOptions are the store settings for cfg. resetOnMismatch discards an
// index built with a different stemmer instead of refusing to open it.
func storeOptions(cfg *config.Config, resetOnMismatch bool) store.Options {
	opts := store.DefaultOptions()
	opts.CacheSize = cfg.Cache.Documents
	opts.ResetOnMismatch = resetOnMismatch
	return opts
}

// openStore opens (creating if needed) the index described by cfg.
func openStore(cfg *config.Config, resetOnMismatch bool) (*store.SQLiteStore, error) {
	n, err := normalize.New(normalize.Stemmer(cfg.Index.Stemmer))
	if err != nil {
		return nil, doterrors.ConfigError("invalid index.stemmer", err)
	}
	if err := os.MkdirAll(cfg.Index.Dir, 0o755); err != nil {
		return nil, doterrors.New(doterrors.ErrCodeFilePermission, "failed to create index directory", err).
			WithDetail("path", cfg.Index.Dir)
	}
	return store.Open(cfg.IndexPath(), n, storeOptions(cfg, resetOnMismatch))
}

// openExistingStore opens the index for reading, failing when none exists.
func openExistingStore(cfg *config.Config) (*store.SQLiteStore, error) {
	if _, err := os.Stat(cfg.IndexPath()); errors.Is(err, os.ErrNotExist) {
		return nil, doterrors.New(doterrors.ErrCodeFileNotFound,
			fmt.Sprintf("no index found at %s", cfg.Index.Dir), nil).
			WithSuggestion("run 'doctext index' first")
	}
	return openStore(cfg, false)
}

// newScanner builds the document scanner for cfg's collection.
func newScanner(cfg *config.Config) (*scanner.Scanner, error) {
	return scanner.New(scanner.ScanOptions{
		RootDir:         cfg.Source.Dir,
		Extensions:      cfg.Source.Extensions,
		ExcludePatterns: cfg.Source.Exclude,
		MaxFileSize:     cfg.Source.MaxFileSize,
	})
}

// searchOptions are the ranking parameters for cfg.
func searchOptions(cfg *config.Config) search.Options {
	return search.Options{
		K1:            cfg.Search.BM25K1,
		B:             cfg.Search.BM25B,
		SnippetWindow: cfg.Search.SnippetWindow,
	}
}

// indexDirName returns the index directory relative to the collection
// root, or the default name when the index lives elsewhere.
func indexDirName(cfg *config.Config) string {
	rel, err := filepath.Rel(cfg.Source.Dir, cfg.Index.Dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return config.DefaultIndexDirName
	}
	return filepath.ToSlash(rel)
}
