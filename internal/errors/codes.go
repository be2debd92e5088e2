// Package errors provides structured error handling for doctext.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO, extraction and index store errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, extraction and store errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates caller contract violations.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound   = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_103_CONFIG_PERMISSION"

	// IO and store errors (200-299)
	ErrCodeFileNotFound     = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission   = "ERR_202_FILE_PERMISSION"
	ErrCodeDiskFull         = "ERR_203_DISK_FULL"
	ErrCodeFileTooLarge     = "ERR_204_FILE_TOO_LARGE"
	ErrCodeCorruptIndex     = "ERR_205_CORRUPT_INDEX"
	ErrCodeFileCorrupt      = "ERR_206_FILE_CORRUPT"
	ErrCodeExtractionEmpty  = "ERR_207_EXTRACTION_EMPTY"
	ErrCodeExtractionFailed = "ERR_208_EXTRACTION_FAILED"
	ErrCodeStoreWrite       = "ERR_209_STORE_WRITE"
	ErrCodeIndexBusy        = "ERR_210_INDEX_BUSY"
	ErrCodeDocumentNotFound = "ERR_211_DOCUMENT_NOT_FOUND"

	// Validation errors (400-499)
	ErrCodeInvalidArgument  = "ERR_401_INVALID_ARGUMENT"
	ErrCodeInvalidQuery     = "ERR_403_INVALID_QUERY"
	ErrCodeQueryTooLong     = "ERR_405_QUERY_TOO_LONG"
	ErrCodeInvalidPath      = "ERR_406_INVALID_PATH"
	ErrCodeAnalyzerMismatch = "ERR_407_ANALYZER_MISMATCH"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexFailed  = "ERR_505_INDEX_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "207" from "ERR_207_EXTRACTION_EMPTY"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeDiskFull:
		return SeverityFatal
	case ErrCodeExtractionEmpty, ErrCodeIndexBusy:
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// A failed store write leaves the prior committed state intact, so the
// same write may simply be attempted again.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeStoreWrite, ErrCodeIndexBusy:
		return true
	default:
		return false
	}
}
