package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
)

func fileSource(t *testing.T, content string, maxSize int64) *FileSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return NewFileSource(FileInfo{Path: "sub/doc.txt", AbsPath: path, Size: int64(len(content))}, maxSize)
}

func TestFileSource_Text(t *testing.T) {
	src := fileSource(t, "Cats chase running mice", 0)

	text, err := src.Text(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Cats chase running mice", text)
	assert.Equal(t, "sub/doc.txt", src.ID())
	assert.Equal(t, "doc.txt", src.Name())
	assert.Equal(t, int64(DefaultMaxFileSize), src.MaxSize)
}

func TestFileSource_StripsBOM(t *testing.T) {
	src := fileSource(t, "\uFEFFhello", 0)

	text, err := src.Text(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestFileSource_GrewPastLimit(t *testing.T) {
	// Given: a file that is larger than the limit at read time
	src := fileSource(t, "0123456789abc", 10)

	// When: reading
	_, err := src.Text(context.Background())

	// Then: the failure says why
	assert.True(t, doterrors.HasCode(err, doterrors.ErrCodeFileTooLarge))
}

func TestFileSource_InvalidUTF8(t *testing.T) {
	src := fileSource(t, "caf\xe9", 0)

	_, err := src.Text(context.Background())

	assert.True(t, doterrors.HasCode(err, doterrors.ErrCodeExtractionFailed))
}

func TestFileSource_Missing(t *testing.T) {
	src := NewFileSource(FileInfo{Path: "gone.txt", AbsPath: filepath.Join(t.TempDir(), "gone.txt")}, 0)

	_, err := src.Text(context.Background())

	assert.True(t, doterrors.HasCode(err, doterrors.ErrCodeFileNotFound))
}

func TestFileSource_CancelledContext(t *testing.T) {
	src := fileSource(t, "text", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Text(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
