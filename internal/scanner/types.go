// Package scanner discovers document files under a collection root and
// exposes them as index sources.
package scanner

import (
	"path/filepath"
	"strings"
	"time"
)

// FileInfo contains metadata about a discovered file.
type FileInfo struct {
	Path    string    // Slash-separated path relative to the root; the document ID
	AbsPath string    // Absolute path
	Size    int64     // File size in bytes
	ModTime time.Time // Last modification time
}

// ScanOptions configures the scanner behavior.
type ScanOptions struct {
	// RootDir is the collection root directory to scan.
	RootDir string

	// Extensions lists the document extensions, with leading dot. Matching
	// is case-insensitive. Empty means DefaultExtensions.
	Extensions []string

	// ExcludePatterns specifies patterns to exclude, matched against the
	// path relative to RootDir.
	ExcludePatterns []string

	// MaxFileSize is the maximum file size to include in bytes (0 = 32MB default).
	MaxFileSize int64

	// FollowSymlinks enables following symbolic links to files (default: false).
	FollowSymlinks bool
}

// ScanResult is returned from the scanner channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default maximum file size (32MB).
const DefaultMaxFileSize = 32 << 20

// DefaultExtensions are the plain-text document types.
var DefaultExtensions = []string{".txt", ".text", ".md", ".markdown"}

// hasExtension reports whether path ends in one of exts, ignoring case.
func hasExtension(path string, exts []string) bool {
	ext := filepath.Ext(path)
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
