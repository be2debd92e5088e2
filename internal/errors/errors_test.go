package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("disk I/O error")

	// When: wrapping it as a store write failure
	docErr := StoreWriteError("upsert", originalErr)

	// Then: unwrapping returns the original error
	require.NotNil(t, docErr)
	assert.Equal(t, originalErr, errors.Unwrap(docErr))
	assert.True(t, errors.Is(docErr, originalErr))
}

func TestDocError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigInvalid,
			message:  "top_k must be positive",
			expected: "[ERR_102_CONFIG_INVALID] top_k must be positive",
		},
		{
			name:     "extraction empty",
			code:     ErrCodeExtractionEmpty,
			message:  "no text",
			expected: "[ERR_207_EXTRACTION_EMPTY] no text",
		},
		{
			name:     "invalid argument",
			code:     ErrCodeInvalidArgument,
			message:  "topK must be > 0",
			expected: "[ERR_401_INVALID_ARGUMENT] topK must be > 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestDocError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with the same code and different messages
	err1 := ExtractionEmpty("a.txt")
	err2 := ExtractionEmpty("b.txt")

	// Then: they match by code
	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, InvalidArgument("x")))
}

func TestHasCode_FindsWrappedDocError(t *testing.T) {
	// Given: a DocError wrapped by fmt.Errorf
	err := fmt.Errorf("indexing notes.txt: %w", ExtractionEmpty("notes.txt"))

	// Then: the code is found through the chain
	assert.True(t, HasCode(err, ErrCodeExtractionEmpty))
	assert.False(t, HasCode(err, ErrCodeStoreWrite))
	assert.Equal(t, ErrCodeExtractionEmpty, GetCode(err))
	assert.Equal(t, CategoryIO, GetCategory(err))
}

func TestNew_DerivesCategorySeverityAndRetry(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeExtractionEmpty, CategoryIO, SeverityWarning, false},
		{ErrCodeStoreWrite, CategoryIO, SeverityError, true},
		{ErrCodeIndexBusy, CategoryIO, SeverityWarning, true},
		{ErrCodeCorruptIndex, CategoryIO, SeverityFatal, false},
		{ErrCodeInvalidArgument, CategoryValidation, SeverityError, false},
		{ErrCodeInternal, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestDocError_WithDetailAndSuggestion(t *testing.T) {
	// Given: a base error
	err := InvalidArgument("topK must be positive")

	// When: adding context
	err.WithDetail("top_k", "0").WithSuggestion("pass -n 10")

	// Then: context is recorded
	assert.Equal(t, "0", err.Details["top_k"])
	assert.Equal(t, "pass -n 10", err.Suggestion)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeCorruptIndex, "bad", nil)))
	assert.False(t, IsFatal(StoreWriteError("commit", errors.New("x"))))
	assert.False(t, IsFatal(errors.New("plain")))
	assert.False(t, IsFatal(nil))
}
