package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/omarfoud/pdf-text-searcher/internal/index"
)

// Scanner discovers document files in a collection directory.
type Scanner struct {
	opts    ScanOptions
	absRoot string
}

// New creates a Scanner for opts.RootDir, which must be an existing directory.
func New(opts ScanOptions) (*Scanner, error) {
	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	opts.RootDir = absRoot

	return &Scanner{opts: opts, absRoot: absRoot}, nil
}

// Root returns the absolute collection root.
func (s *Scanner) Root() string {
	return s.absRoot
}

// Scan streams document files in lexical path order. The channel is closed
// when scanning is complete.
func (s *Scanner) Scan(ctx context.Context) <-chan ScanResult {
	results := make(chan ScanResult, 64)

	go func() {
		defer close(results)
		s.scan(ctx, results)
	}()

	return results
}

// Collection scans the root and returns every document as an index source,
// in lexical path order.
func (s *Scanner) Collection(ctx context.Context) (index.Collection, error) {
	var coll index.Collection
	for res := range s.Scan(ctx) {
		if res.Error != nil {
			return nil, res.Error
		}
		coll = append(coll, NewFileSource(*res.File, s.opts.MaxFileSize))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return coll, nil
}

// scan performs the actual directory traversal.
func (s *Scanner) scan(ctx context.Context, results chan<- ScanResult) {
	err := filepath.WalkDir(s.absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			slog.Debug("scan_entry_skipped", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}

		relPath, err := filepath.Rel(s.absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}

		if d.IsDir() {
			if s.shouldExcludeDir(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		info, ok := s.fileInfo(path, relPath, d)
		if !ok {
			return nil
		}

		select {
		case results <- ScanResult{File: info}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		select {
		case results <- ScanResult{Error: err}:
		case <-ctx.Done():
		}
	}
}

// fileInfo applies the file filters and returns the metadata of a document.
func (s *Scanner) fileInfo(path, relPath string, d fs.DirEntry) (*FileInfo, bool) {
	if d.Type()&fs.ModeSymlink != 0 {
		if !s.opts.FollowSymlinks {
			return nil, false
		}
		target, err := os.Stat(path)
		if err != nil || !target.Mode().IsRegular() {
			return nil, false
		}
	} else if !d.Type().IsRegular() {
		return nil, false
	}

	if !hasExtension(relPath, s.opts.Extensions) {
		return nil, false
	}
	if s.shouldExcludeFile(relPath) {
		return nil, false
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if info.Size() > s.opts.MaxFileSize {
		slog.Debug("scan_file_too_large", slog.String("path", relPath), slog.Int64("size", info.Size()))
		return nil, false
	}
	if isBinaryFile(path) {
		return nil, false
	}

	return &FileInfo{
		Path:    filepath.ToSlash(relPath),
		AbsPath: path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, true
}

// shouldExcludeDir checks if a directory should be excluded.
func (s *Scanner) shouldExcludeDir(relPath string) bool {
	for _, pattern := range defaultExcludeDirs {
		if matchDirPattern(relPath, pattern) {
			return true
		}
	}
	for _, pattern := range s.opts.ExcludePatterns {
		if matchDirPattern(relPath, pattern) {
			return true
		}
	}
	return false
}

// shouldExcludeFile checks if a file should be excluded.
func (s *Scanner) shouldExcludeFile(relPath string) bool {
	baseName := filepath.Base(relPath)

	for _, pattern := range sensitiveFilePatterns {
		if matchFilePattern(baseName, relPath, pattern) {
			return true
		}
	}
	for _, pattern := range s.opts.ExcludePatterns {
		if matchFilePattern(baseName, relPath, pattern) {
			return true
		}
	}
	return false
}

// Excluded reports whether relPath (relative to the root) is filtered out
// by the directory, sensitive-file or configured exclusions. The watcher
// uses it to ignore events for files that can never become documents.
func (s *Scanner) Excluded(relPath string) bool {
	dir := filepath.Dir(relPath)
	if dir != "." && s.shouldExcludeDir(dir) {
		return true
	}
	return !hasExtension(relPath, s.opts.Extensions) || s.shouldExcludeFile(relPath)
}

// ExcludedDir reports whether the directory relPath is skipped during scans.
func (s *Scanner) ExcludedDir(relPath string) bool {
	return s.shouldExcludeDir(filepath.ToSlash(relPath))
}

// matchDirPattern checks if a directory path matches a pattern.
func matchDirPattern(relPath, pattern string) bool {
	// **/name/** matches name at any depth
	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		suffix = strings.TrimSuffix(suffix, "/**")
		for _, part := range strings.Split(relPath, string(filepath.Separator)) {
			if part == suffix {
				return true
			}
		}
		return false
	}

	// dir/** matches dir itself and everything below it
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return relPath == prefix || strings.HasPrefix(relPath, prefix+string(filepath.Separator))
	}

	return relPath == pattern || strings.HasPrefix(relPath, pattern+string(filepath.Separator))
}

// matchFilePattern checks if a file matches a pattern.
func matchFilePattern(baseName, relPath, pattern string) bool {
	if strings.HasSuffix(pattern, "/**") && !strings.HasPrefix(pattern, "**/") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return strings.HasPrefix(relPath, prefix+string(filepath.Separator))
	}

	// dir/glob patterns like "drafts/2019-*.md"
	if strings.Contains(pattern, string(filepath.Separator)) && strings.Contains(pattern, "*") && !strings.HasPrefix(pattern, "**/") {
		if filepath.Dir(relPath) != filepath.Dir(pattern) {
			return false
		}
		matched, err := filepath.Match(filepath.Base(pattern), baseName)
		return err == nil && matched
	}

	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		if strings.HasPrefix(suffix, "*.") {
			return strings.HasSuffix(baseName, strings.TrimPrefix(suffix, "*"))
		}
		for _, part := range strings.Split(relPath, string(filepath.Separator)) {
			if part == suffix {
				return true
			}
		}
		return false
	}

	// *middle* (contains, case-insensitive)
	if strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) > 1 {
		middle := strings.TrimSuffix(strings.TrimPrefix(pattern, "*"), "*")
		return strings.Contains(strings.ToLower(baseName), strings.ToLower(middle))
	}

	if strings.ContainsAny(pattern, "*?[") {
		matched, err := filepath.Match(pattern, baseName)
		return err == nil && matched
	}

	return baseName == pattern
}

// isBinaryFile checks if a file is binary by looking for null bytes.
func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil {
		return false
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

// Default directories to exclude.
var defaultExcludeDirs = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/.ssh/**",
	"**/.aws/**",
	"**/.gnupg/**",
}

// Sensitive file patterns that are never indexed.
var sensitiveFilePatterns = []string{
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*credentials*",
	"*secrets*",
	"*password*",
	".netrc",
	"id_rsa",
	"id_ed25519",
}
