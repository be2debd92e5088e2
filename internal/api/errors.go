package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
)

// ErrorCode is a stable, client-facing error identifier.
type ErrorCode string

const (
	ErrorCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrorCodeInvalidQuery     ErrorCode = "INVALID_QUERY"
	ErrorCodeDocumentNotFound ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrorCodeIndexBusy        ErrorCode = "INDEX_BUSY"
	ErrorCodeIndexUnusable    ErrorCode = "INDEX_UNUSABLE"
	ErrorCodeRequestCancelled ErrorCode = "REQUEST_CANCELLED"
	ErrorCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// APIError is the body of every error response.
type APIError struct {
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	RequestID  string            `json:"request_id,omitempty"`
}

// SendError writes an error response tagged with the request ID.
func SendError(c *gin.Context, status int, code ErrorCode, message string) {
	c.AbortWithStatusJSON(status, newAPIError(c, code, message))
}

func newAPIError(c *gin.Context, code ErrorCode, message string) *APIError {
	resp := &APIError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if id, ok := c.Get(requestIDKey); ok {
		resp.RequestID, _ = id.(string)
	}
	return resp
}

// SendInvalidRequest writes a 400 for a malformed parameter.
func SendInvalidRequest(c *gin.Context, message string) {
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, message)
}

// SendDocError maps an engine error onto an HTTP status and error code.
// Unknown errors become 500 without leaking their text.
func SendDocError(c *gin.Context, err error) {
	status, code := classify(err)

	de, ok := doterrors.As(err)
	if !ok {
		message := "internal error"
		if code == ErrorCodeRequestCancelled {
			message = err.Error()
		}
		SendError(c, status, code, message)
		return
	}

	resp := newAPIError(c, code, de.Message)
	resp.Suggestion = de.Suggestion
	if len(de.Details) > 0 {
		resp.Details = de.Details
	}
	c.AbortWithStatusJSON(status, resp)
}

func classify(err error) (int, ErrorCode) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrorCodeRequestCancelled
	}

	switch doterrors.GetCode(err) {
	case doterrors.ErrCodeInvalidArgument, doterrors.ErrCodeInvalidQuery, doterrors.ErrCodeQueryTooLong:
		return http.StatusBadRequest, ErrorCodeInvalidQuery
	case doterrors.ErrCodeDocumentNotFound:
		return http.StatusNotFound, ErrorCodeDocumentNotFound
	case doterrors.ErrCodeIndexBusy:
		return http.StatusConflict, ErrorCodeIndexBusy
	case doterrors.ErrCodeCorruptIndex, doterrors.ErrCodeAnalyzerMismatch:
		return http.StatusServiceUnavailable, ErrorCodeIndexUnusable
	}

	if doterrors.GetCategory(err) == doterrors.CategoryValidation {
		return http.StatusBadRequest, ErrorCodeInvalidRequest
	}
	return http.StatusInternalServerError, ErrorCodeInternalError
}
