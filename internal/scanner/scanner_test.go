package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}
}

func scanPaths(t *testing.T, opts ScanOptions) []string {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)

	var paths []string
	for result := range s.Scan(context.Background()) {
		require.NoError(t, result.Error)
		paths = append(paths, result.File.Path)
	}
	return paths
}

func TestScanner_Scan_DocumentFiles(t *testing.T) {
	// Given: a collection with documents and other files
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"doc1.txt":             "The running runners ran races",
		"doc2.TXT":             "Cats chase running mice",
		"notes/ideas.md":       "# Ideas\n",
		"notes/deep/plan.text": "plan",
		"main.go":              "package main\n",
		"image.png":            "not really",
	})

	// When: scanning with the default extensions
	paths := scanPaths(t, ScanOptions{RootDir: tmpDir})

	// Then: only documents are found, in lexical order
	assert.Equal(t, []string{"doc1.txt", "doc2.TXT", "notes/deep/plan.text", "notes/ideas.md"}, paths)
}

func TestScanner_Scan_CustomExtensions(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"a.txt": "a",
		"b.rst": "b",
		"c.md":  "c",
	})

	paths := scanPaths(t, ScanOptions{RootDir: tmpDir, Extensions: []string{"rst", ".MD"}})

	assert.Equal(t, []string{"b.rst", "c.md"}, paths)
}

func TestScanner_Scan_ReturnsCorrectMetadata(t *testing.T) {
	// Given: one document
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{"sub/book.txt": "twelve bytes"})

	// When: scanning
	s, err := New(ScanOptions{RootDir: tmpDir})
	require.NoError(t, err)
	var files []*FileInfo
	for result := range s.Scan(context.Background()) {
		require.NoError(t, result.Error)
		files = append(files, result.File)
	}

	// Then: metadata is filled in
	require.Len(t, files, 1)
	f := files[0]
	assert.Equal(t, "sub/book.txt", f.Path)
	assert.Equal(t, filepath.Join(s.Root(), "sub", "book.txt"), f.AbsPath)
	assert.Equal(t, int64(12), f.Size)
	assert.WithinDuration(t, time.Now(), f.ModTime, time.Minute)
}

func TestScanner_Scan_DefaultExclusions(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"keep.txt":                    "keep",
		".git/description.txt":        "git",
		"node_modules/pkg/LICENSE.md": "license",
		"a/.ssh/notes.txt":            "ssh",
	})

	paths := scanPaths(t, ScanOptions{RootDir: tmpDir})

	assert.Equal(t, []string{"keep.txt"}, paths)
}

func TestScanner_Scan_ExcludesSensitiveFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"keep.txt":            "keep",
		"aws-credentials.txt": "secret",
		"my_passwords.md":     "secret",
		"team-secrets.txt":    "secret",
	})

	paths := scanPaths(t, ScanOptions{RootDir: tmpDir})

	assert.Equal(t, []string{"keep.txt"}, paths)
}

func TestScanner_Scan_CustomExcludePatterns(t *testing.T) {
	// Given: drafts and an archive that should be skipped
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"keep.md":               "keep",
		"archive/old.md":        "old",
		"archive/deep/older.md": "older",
		"drafts/2019-a.md":      "draft",
		"drafts/2024-b.md":      "draft",
		"scratch.tmp.txt":       "tmp",
		".doctext/index.txt":    "index dir",
	})

	// When: scanning with exclusions
	paths := scanPaths(t, ScanOptions{
		RootDir:         tmpDir,
		ExcludePatterns: []string{"archive/**", "drafts/2019-*.md", "*.tmp.txt", ".doctext/**"},
	})

	// Then: only the unmatched documents remain
	assert.Equal(t, []string{"drafts/2024-b.md", "keep.md"}, paths)
}

func TestScanner_Scan_SkipsBinaryFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"text.txt":   "plain text",
		"binary.txt": "abc\x00def",
	})

	paths := scanPaths(t, ScanOptions{RootDir: tmpDir})

	assert.Equal(t, []string{"text.txt"}, paths)
}

func TestScanner_Scan_SkipsLargeFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"small.txt": "small",
		"large.txt": "this one is larger than the limit",
	})

	paths := scanPaths(t, ScanOptions{RootDir: tmpDir, MaxFileSize: 10})

	assert.Equal(t, []string{"small.txt"}, paths)
}

func TestScanner_Scan_Symlinks(t *testing.T) {
	// Given: a document and a symlink to it
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{"real.txt": "real"})
	if err := os.Symlink(filepath.Join(tmpDir, "real.txt"), filepath.Join(tmpDir, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	// Then: links are skipped unless following is enabled
	assert.Equal(t, []string{"real.txt"}, scanPaths(t, ScanOptions{RootDir: tmpDir}))
	assert.Equal(t, []string{"link.txt", "real.txt"}, scanPaths(t, ScanOptions{RootDir: tmpDir, FollowSymlinks: true}))
}

func TestScanner_Scan_EmptyDirectory(t *testing.T) {
	assert.Empty(t, scanPaths(t, ScanOptions{RootDir: t.TempDir()}))
}

func TestScanner_New_NonExistentDirectory(t *testing.T) {
	_, err := New(ScanOptions{RootDir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestScanner_New_RootIsFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{"file.txt": "x"})

	_, err := New(ScanOptions{RootDir: filepath.Join(tmpDir, "file.txt")})
	assert.Error(t, err)
}

func TestScanner_Scan_GoroutineLeakVerification(t *testing.T) {
	// Given: a directory with many files
	tmpDir := t.TempDir()
	files := make(map[string]string, 200)
	for i := 0; i < 200; i++ {
		files[fmt.Sprintf("dir%d/file%03d.txt", i%10, i)] = "text"
	}
	writeFiles(t, tmpDir, files)

	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	baseGoroutines := runtime.NumGoroutine()

	s, err := New(ScanOptions{RootDir: tmpDir})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())

	// When: a few results are read and the channel is abandoned
	results := s.Scan(ctx)
	for i := 0; i < 3; i++ {
		<-results
	}
	cancel()

	// Then: the walker goroutine exits without draining
	assert.Eventually(t, func() bool {
		runtime.GC()
		return runtime.NumGoroutine() <= baseGoroutines+2
	}, 3*time.Second, 100*time.Millisecond)
}

func TestScanner_Collection(t *testing.T) {
	// Given: the example documents
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{
		"doc1.txt":      "The running runners ran races",
		"cats/doc2.txt": "Cats chase running mice",
	})
	s, err := New(ScanOptions{RootDir: tmpDir})
	require.NoError(t, err)

	// When: building the collection
	coll, err := s.Collection(context.Background())
	require.NoError(t, err)

	// Then: sources carry relative IDs, base names and text
	require.Len(t, coll, 2)
	assert.Equal(t, []string{"cats/doc2.txt", "doc1.txt"}, coll.IDs())
	assert.Equal(t, "doc2.txt", coll[0].Name())
	text, err := coll[1].Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "The running runners ran races", text)
}

func TestScanner_Collection_Cancelled(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, map[string]string{"a.txt": "a"})
	s, err := New(ScanOptions{RootDir: tmpDir})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Collection(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanner_Excluded(t *testing.T) {
	s, err := New(ScanOptions{RootDir: t.TempDir(), ExcludePatterns: []string{"archive/**"}})
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{"notes.txt", false},
		{"sub/notes.md", false},
		{"main.go", true},
		{"archive/old.txt", true},
		{".git/info.txt", true},
		{".env", true},
		{"secrets.txt", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Excluded(filepath.FromSlash(tt.path)))
		})
	}
}

func TestMatchDirPattern(t *testing.T) {
	tests := []struct {
		relPath string
		pattern string
		want    bool
	}{
		{"node_modules", "**/node_modules/**", true},
		{"a/b/node_modules", "**/node_modules/**", true},
		{"a/node_modules_x", "**/node_modules/**", false},
		{".doctext", ".doctext/**", true},
		{".doctext/sub", ".doctext/**", true},
		{".doctextual", ".doctext/**", false},
		{"archive", "archive", true},
		{"archive/2019", "archive", true},
		{"archived", "archive", false},
	}

	for _, tt := range tests {
		t.Run(tt.relPath+"~"+tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, matchDirPattern(filepath.FromSlash(tt.relPath), tt.pattern))
		})
	}
}

func TestMatchFilePattern(t *testing.T) {
	tests := []struct {
		relPath string
		pattern string
		want    bool
	}{
		{"archive/a.md", "archive/**", true},
		{"archive/x/a.md", "archive/**", true},
		{"other/a.md", "archive/**", false},
		{"drafts/2019-a.md", "drafts/2019-*.md", true},
		{"drafts/2020-a.md", "drafts/2019-*.md", false},
		{"deep/drafts/2019-a.md", "drafts/2019-*.md", false},
		{"x/y/file.min.txt", "**/*.min.txt", true},
		{"x/CREDENTIALS.txt", "*credentials*", true},
		{".env.local", ".env.*", true},
		{"server.pem", "*.pem", true},
		{"notes.txt", "notes?.txt", false},
		{"notes1.txt", "notes?.txt", true},
		{"README", "README", true},
	}

	for _, tt := range tests {
		t.Run(tt.relPath+"~"+tt.pattern, func(t *testing.T) {
			rel := filepath.FromSlash(tt.relPath)
			pattern := filepath.FromSlash(tt.pattern)
			assert.Equal(t, tt.want, matchFilePattern(filepath.Base(rel), rel, pattern))
		})
	}
}

func TestHasExtension(t *testing.T) {
	exts := []string{".txt", "md"}
	got := []bool{
		hasExtension("a.txt", exts),
		hasExtension("a.TXT", exts),
		hasExtension("a.md", exts),
		hasExtension("a.go", exts),
		hasExtension("Makefile", exts),
	}
	assert.Equal(t, []bool{true, true, true, false, false}, got)
}
