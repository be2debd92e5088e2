package errors

import (
	stderrors "errors"
	"fmt"
)

// DocError is the structured error type for doctext.
// It carries enough context for logging, CLI output and MCP/HTTP mapping.
type DocError struct {
	// Code is the unique error code (e.g., "ERR_207_EXTRACTION_EMPTY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *DocError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DocError) Unwrap() error {
	return e.Cause
}

// Is matches another DocError by code, so errors.Is(err, New(code, "", nil))
// works regardless of message.
func (e *DocError) Is(target error) bool {
	if t, ok := target.(*DocError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *DocError) WithDetail(key, value string) *DocError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *DocError) WithSuggestion(suggestion string) *DocError {
	e.Suggestion = suggestion
	return e
}

// New creates a new DocError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *DocError {
	return &DocError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a DocError from an existing error.
func Wrap(code string, err error) *DocError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *DocError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InvalidArgument creates a caller contract violation error.
func InvalidArgument(message string) *DocError {
	return New(ErrCodeInvalidArgument, message, nil)
}

// ExtractionEmpty reports a document that produced no indexable tokens.
func ExtractionEmpty(docID string) *DocError {
	return New(ErrCodeExtractionEmpty, fmt.Sprintf("document %s has no indexable text", docID), nil).
		WithDetail("doc_id", docID)
}

// StoreWriteError wraps a persistence failure. The prior committed state
// is intact when this is returned.
func StoreWriteError(op string, cause error) *DocError {
	return New(ErrCodeStoreWrite, fmt.Sprintf("index store %s failed", op), cause).
		WithDetail("op", op)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DocError {
	return New(ErrCodeInternal, message, cause)
}

// As finds the first DocError in err's chain.
func As(err error) (*DocError, bool) {
	var de *DocError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if de, ok := As(err); ok {
		return de.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if de, ok := As(err); ok {
		return de.Severity == SeverityFatal
	}
	return false
}

// HasCode reports whether any DocError in err's chain has the given code.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &DocError{Code: code})
}

// GetCode extracts the error code from a DocError.
// Returns empty string if err is not a DocError.
func GetCode(err error) string {
	if de, ok := As(err); ok {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category from a DocError.
func GetCategory(err error) Category {
	if de, ok := As(err); ok {
		return de.Category
	}
	return ""
}
