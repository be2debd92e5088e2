package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"
	"unicode/utf8"

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
	"github.com/omarfoud/pdf-text-searcher/internal/index"
)

// utf8BOM is dropped from the start of documents.
const utf8BOM = "\uFEFF"

// FileSource is a plain-text document on disk.
type FileSource struct {
	Info    FileInfo
	MaxSize int64
}

// NewFileSource creates a source for info. maxSize <= 0 means
// DefaultMaxFileSize.
func NewFileSource(info FileInfo, maxSize int64) *FileSource {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &FileSource{Info: info, MaxSize: maxSize}
}

// ID implements index.Source. It is the slash-separated relative path.
func (s *FileSource) ID() string { return s.Info.Path }

// Name implements index.Source.
func (s *FileSource) Name() string { return path.Base(s.Info.Path) }

// Text implements index.Source. The file is re-checked at read time since
// it may have changed after the scan.
func (s *FileSource) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(s.Info.AbsPath)
	if err != nil {
		return "", s.openError(err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, s.MaxSize+1))
	if err != nil {
		return "", doterrors.New(doterrors.ErrCodeExtractionFailed,
			fmt.Sprintf("failed to read %s", s.Info.Path), err).WithDetail("doc_id", s.Info.Path)
	}
	if int64(len(data)) > s.MaxSize {
		return "", doterrors.New(doterrors.ErrCodeFileTooLarge,
			fmt.Sprintf("%s exceeds the %d byte limit", s.Info.Path, s.MaxSize), nil).
			WithDetail("doc_id", s.Info.Path).
			WithDetail("max_file_size", strconv.FormatInt(s.MaxSize, 10)).
			WithSuggestion("raise source.max_file_size or exclude the file")
	}
	if !utf8.Valid(data) {
		return "", doterrors.New(doterrors.ErrCodeExtractionFailed,
			fmt.Sprintf("%s is not valid UTF-8 text", s.Info.Path), nil).
			WithDetail("doc_id", s.Info.Path).
			WithSuggestion("convert the file to UTF-8")
	}

	return strings.TrimPrefix(string(data), utf8BOM), nil
}

func (s *FileSource) openError(err error) error {
	code := doterrors.ErrCodeExtractionFailed
	switch {
	case errors.Is(err, fs.ErrNotExist):
		code = doterrors.ErrCodeFileNotFound
	case errors.Is(err, fs.ErrPermission):
		code = doterrors.ErrCodeFilePermission
	}
	return doterrors.New(code, fmt.Sprintf("failed to open %s", s.Info.Path), err).
		WithDetail("doc_id", s.Info.Path)
}

var _ index.Source = (*FileSource)(nil)
