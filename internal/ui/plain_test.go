package ui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_UpdateProgress_OutputFormat(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: updating progress
	r.UpdateProgress(ProgressEvent{
		Stage:       StageIndexing,
		Current:     2,
		Total:       5,
		CurrentFile: "papers/graph.txt",
	})

	// Then: output is correctly formatted
	output := buf.String()
	assert.Contains(t, output, "[INDEX]")
	assert.Contains(t, output, "2/5")
	assert.Contains(t, output, "papers/graph.txt")
}

func TestPlainRenderer_UpdateProgress_StageOpening(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: a stage opens with zero progress
	r.UpdateProgress(ProgressEvent{Stage: StageIndexing, Current: 0, Total: 12})

	// Then: only the total is announced
	assert.Equal(t, "[INDEX] 12 documents\n", buf.String())
}

func TestPlainRenderer_UpdateProgress_NoANSICodes(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: rendering progress through all stages
	for _, stage := range []Stage{StageScanning, StageIndexing, StagePruning, StageComplete} {
		r.UpdateProgress(ProgressEvent{Stage: stage, Current: 1, Total: 2, Message: "working"})
	}

	// Then: output contains no ANSI escape codes
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPlainRenderer_UpdateProgress_MessageOnly(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: a stage reports a message without totals
	r.UpdateProgress(ProgressEvent{Stage: StagePruning, Message: "removing 3 documents"})

	// Then: the message is printed
	assert.Equal(t, "[PRUNE] removing 3 documents\n", buf.String())
}

func TestPlainRenderer_AddError(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: adding an error and a warning
	r.AddError(ErrorEvent{File: "a.txt", Err: errors.New("unreadable")})
	r.AddError(ErrorEvent{File: "b.txt", Err: errors.New("no text"), IsWarn: true})
	r.AddError(ErrorEvent{Err: errors.New("lock held")})

	// Then: each is prefixed by severity
	output := buf.String()
	assert.Contains(t, output, "ERROR: a.txt: unreadable")
	assert.Contains(t, output, "WARN: b.txt: no text")
	assert.Contains(t, output, "ERROR: lock held")
}

func TestPlainRenderer_Complete(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: completing a run with failures
	r.Complete(CompletionStats{
		Documents: 8,
		Skipped:   3,
		Removed:   1,
		Errors:    2,
		Warnings:  1,
		Duration:  1500 * time.Millisecond,
		Stages:    StageTimings{Scan: 20 * time.Millisecond, Index: time.Second},
		Analyzer:  "doctext/porter",
	})

	// Then: the summary has counts, stage breakdown and analyzer
	output := buf.String()
	assert.Contains(t, output, "Complete: 8 indexed, 3 unchanged, 1 removed in 1.5s")
	assert.Contains(t, output, "(2 errors, 1 warnings)")
	assert.Contains(t, output, "Scan:   20ms")
	assert.Contains(t, output, "Index:  1s")
	assert.NotContains(t, output, "Prune:")
	assert.Contains(t, output, "Analyzer: doctext/porter")
}

func TestPlainRenderer_Complete_Cancelled(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: completing a cancelled run
	r.Complete(CompletionStats{Documents: 1, Cancelled: true})

	// Then: the summary says so
	assert.Contains(t, buf.String(), "Cancelled: 1 indexed")
}

func TestPlainRenderer_StartStop(t *testing.T) {
	r := NewPlainRenderer(NewConfig(&bytes.Buffer{}))
	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())
}
