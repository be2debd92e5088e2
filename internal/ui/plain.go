package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer outputs plain text progress (for CI/pipes).
type PlainRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	errors []ErrorEvent
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := event.Message
	if msg == "" {
		msg = event.CurrentFile
	}

	// The opening event of a stage (0 of N) only announces the total.
	switch {
	case event.Total > 0 && event.Current == 0:
		_, _ = fmt.Fprintf(r.out, "[%s] %d documents\n", event.Stage.Icon(), event.Total)
	case event.Total > 0:
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d - %s\n", event.Stage.Icon(), event.Current, event.Total, msg)
	case msg != "":
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), msg)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}

	if event.File != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.File, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	verb := "Complete"
	if stats.Cancelled {
		verb = "Cancelled"
	}
	_, _ = fmt.Fprintf(r.out, "%s: %d indexed, %d unchanged, %d removed in %s",
		verb, stats.Documents, stats.Skipped, stats.Removed, stats.Duration.Round(100*time.Millisecond))

	if stats.Errors > 0 || stats.Warnings > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d errors, %d warnings)", stats.Errors, stats.Warnings)
	}
	_, _ = fmt.Fprintln(r.out)

	if stats.Stages.Index > 0 {
		_, _ = fmt.Fprintln(r.out, "Stage Breakdown:")
		if stats.Stages.Scan > 0 {
			_, _ = fmt.Fprintf(r.out, "  Scan:   %s\n", stats.Stages.Scan.Round(time.Millisecond))
		}
		_, _ = fmt.Fprintf(r.out, "  Index:  %s\n", stats.Stages.Index.Round(time.Millisecond))
		if stats.Stages.Prune > 0 {
			_, _ = fmt.Fprintf(r.out, "  Prune:  %s\n", stats.Stages.Prune.Round(time.Millisecond))
		}
	}
	if stats.Analyzer != "" {
		_, _ = fmt.Fprintf(r.out, "Analyzer: %s\n", stats.Analyzer)
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}
