// Package async runs index builds in the background and exposes their
// progress to servers that keep answering requests meanwhile.
package async

import (
	"context"
	"sync"
	"time"

	"github.com/omarfoud/pdf-text-searcher/internal/ui"
)

// IndexingStatus represents the overall indexing state.
type IndexingStatus string

const (
	// StatusIndexing indicates indexing is in progress.
	StatusIndexing IndexingStatus = "indexing"
	// StatusReady indicates the last run finished; search reflects it.
	StatusReady IndexingStatus = "ready"
	// StatusCancelled indicates the run was stopped between documents.
	StatusCancelled IndexingStatus = "cancelled"
	// StatusError indicates indexing failed with an error.
	StatusError IndexingStatus = "error"
)

// IndexProgressSnapshot is an immutable snapshot of indexing progress.
type IndexProgressSnapshot struct {
	Status             string  `json:"status"`
	Stage              string  `json:"stage"`
	DocumentsTotal     int     `json:"documents_total"`
	DocumentsProcessed int     `json:"documents_processed"`
	DocumentsIndexed   int     `json:"documents_indexed"`
	DocumentsSkipped   int     `json:"documents_skipped"`
	DocumentsRemoved   int     `json:"documents_removed"`
	Errors             int     `json:"errors"`
	Warnings           int     `json:"warnings"`
	ProgressPct        float64 `json:"progress_pct"`
	ElapsedSeconds     int     `json:"elapsed_seconds"`
	ErrorMessage       string  `json:"error_message,omitempty"`
}

// IndexProgress tracks one background run. It implements ui.Renderer so
// the indexer can report into it directly.
type IndexProgress struct {
	mu sync.RWMutex

	status       IndexingStatus
	stage        ui.Stage
	total        int
	processed    int
	errors       int
	warnings     int
	completion   *ui.CompletionStats
	startTime    time.Time
	errorMessage string
}

// NewIndexProgress creates a new progress tracker initialized for indexing.
func NewIndexProgress() *IndexProgress {
	return &IndexProgress{
		status:    StatusIndexing,
		stage:     ui.StageScanning,
		startTime: time.Now(),
	}
}

// Start implements ui.Renderer.
func (p *IndexProgress) Start(context.Context) error { return nil }

// Stop implements ui.Renderer.
func (p *IndexProgress) Stop() error { return nil }

// UpdateProgress implements ui.Renderer.
func (p *IndexProgress) UpdateProgress(ev ui.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = ev.Stage
	p.total = ev.Total
	p.processed = ev.Current
}

// AddError implements ui.Renderer.
func (p *IndexProgress) AddError(ev ui.ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.IsWarn {
		p.warnings++
	} else {
		p.errors++
	}
}

// Complete implements ui.Renderer.
func (p *IndexProgress) Complete(stats ui.CompletionStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = ui.StageComplete
	p.completion = &stats
}

// SetError marks the indexing as failed with an error message.
func (p *IndexProgress) SetError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusError
	p.errorMessage = message
}

// SetCancelled marks the run as stopped before it finished.
func (p *IndexProgress) SetCancelled() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusCancelled
}

// SetReady marks the indexing as complete and ready for search.
func (p *IndexProgress) SetReady() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusReady
}

// IsIndexing returns true if indexing is still in progress.
func (p *IndexProgress) IsIndexing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status == StatusIndexing
}

// Snapshot returns an immutable copy of the current progress state.
func (p *IndexProgress) Snapshot() IndexProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := IndexProgressSnapshot{
		Status:             string(p.status),
		Stage:              p.stage.String(),
		DocumentsTotal:     p.total,
		DocumentsProcessed: p.processed,
		Errors:             p.errors,
		Warnings:           p.warnings,
		ElapsedSeconds:     int(time.Since(p.startTime).Seconds()),
		ErrorMessage:       p.errorMessage,
	}
	if p.total > 0 {
		snap.ProgressPct = float64(p.processed) / float64(p.total) * 100.0
	}
	if c := p.completion; c != nil {
		snap.DocumentsIndexed = c.Documents
		snap.DocumentsSkipped = c.Skipped
		snap.DocumentsRemoved = c.Removed
		snap.ProgressPct = 100.0
		if c.Cancelled && p.total > 0 {
			snap.ProgressPct = float64(p.processed) / float64(p.total) * 100.0
		}
	}
	return snap
}

var _ ui.Renderer = (*IndexProgress)(nil)
