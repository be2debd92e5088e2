// Package mcp exposes the document index to AI clients over the Model
// Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
)

// Application error codes, in the JSON-RPC implementation-defined range.
const (
	ErrCodeIndexNotFound    = -32001
	ErrCodeIndexBusy        = -32002
	ErrCodeTimeout          = -32003
	ErrCodeDocumentNotFound = -32004
	ErrCodeFileTooLarge     = -32005

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	ErrIndexNotFound    = errors.New("index not found")
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidParams    = errors.New("invalid parameters")
	ErrResourceNotFound = errors.New("resource not found")
)

// MCPError is a protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}
	if de, ok := doterrors.As(err); ok {
		return mapDocError(de)
	}

	switch {
	case errors.Is(err, ErrIndexNotFound):
		return &MCPError{Code: ErrCodeIndexNotFound, Message: "Index not found. Run 'doctext index' first."}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: "Invalid parameters."}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Resource not found."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Resource '%s' not found.", uri)}
}

func mapDocError(de *doterrors.DocError) *MCPError {
	message := de.Message
	if de.Suggestion != "" {
		message = fmt.Sprintf("%s %s", de.Message, de.Suggestion)
	}

	switch de.Code {
	case doterrors.ErrCodeDocumentNotFound, doterrors.ErrCodeFileNotFound:
		return &MCPError{Code: ErrCodeDocumentNotFound, Message: message}
	case doterrors.ErrCodeFileTooLarge:
		return &MCPError{Code: ErrCodeFileTooLarge, Message: message}
	case doterrors.ErrCodeCorruptIndex, doterrors.ErrCodeAnalyzerMismatch:
		return &MCPError{Code: ErrCodeIndexNotFound, Message: message}
	case doterrors.ErrCodeIndexBusy:
		return &MCPError{Code: ErrCodeIndexBusy, Message: message}
	}

	switch de.Category {
	case doterrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
