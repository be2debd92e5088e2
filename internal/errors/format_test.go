package errors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLI_IncludesHintAndCode(t *testing.T) {
	// Given: an error with a suggestion
	err := InvalidArgument("topK must be positive").WithSuggestion("use -n 10")

	// When: formatting for CLI
	out := FormatForCLI(err)

	// Then: message, hint and code are present
	assert.Contains(t, out, "Error: topK must be positive")
	assert.Contains(t, out, "Hint: use -n 10")
	assert.Contains(t, out, "Code: ERR_401_INVALID_ARGUMENT")
}

func TestFormatForCLI_WrapsPlainErrors(t *testing.T) {
	out := FormatForCLI(errors.New("boom"))
	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, ErrCodeInternal)
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatJSON_RoundTripsFields(t *testing.T) {
	// Given: a store write error
	err := StoreWriteError("commit", errors.New("disk full"))

	// When: formatting as JSON
	data, ferr := FormatJSON(err)
	require.NoError(t, ferr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	// Then: structured fields are present
	assert.Equal(t, ErrCodeStoreWrite, decoded["code"])
	assert.Equal(t, "disk full", decoded["cause"])
	assert.Equal(t, true, decoded["retryable"])
}

func TestLogAttrs_PairsAreEven(t *testing.T) {
	attrs := LogAttrs(ExtractionEmpty("a.txt"))
	require.NotEmpty(t, attrs)
	assert.Zero(t, len(attrs)%2)
	assert.Contains(t, attrs, "detail_doc_id")

	assert.Equal(t, []any{"error", "plain"}, LogAttrs(errors.New("plain")))
	assert.Nil(t, LogAttrs(nil))
}
