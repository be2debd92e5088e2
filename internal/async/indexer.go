package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// IndexFunc is the indexing work. It reports into progress, typically by
// passing it to index.WithRenderer.
type IndexFunc func(ctx context.Context, progress *IndexProgress) error

// BackgroundIndexer runs one index build in a background goroutine with
// progress tracking.
type BackgroundIndexer struct {
	progress *IndexProgress

	// IndexFunc is the indexing function to run.
	IndexFunc IndexFunc

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}

	mu      sync.Mutex
	started bool
	running bool
	err     error
}

// NewBackgroundIndexer creates a background indexer for fn.
func NewBackgroundIndexer(fn IndexFunc) *BackgroundIndexer {
	return &BackgroundIndexer{
		progress:  NewIndexProgress(),
		IndexFunc: fn,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Progress returns the progress tracker for this indexer.
func (b *BackgroundIndexer) Progress() *IndexProgress {
	return b.progress
}

// IsRunning returns true if the indexer is currently running.
func (b *BackgroundIndexer) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Start begins indexing in a background goroutine and returns immediately.
// A BackgroundIndexer runs once; later calls are no-ops.
func (b *BackgroundIndexer) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.running = true
	b.mu.Unlock()

	go b.run(ctx)
}

func (b *BackgroundIndexer) run(ctx context.Context) {
	defer close(b.doneCh)
	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-b.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	var err error
	if b.IndexFunc != nil {
		err = b.IndexFunc(ctx, b.progress)
	}

	switch {
	case err == nil:
		b.progress.SetReady()
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		b.progress.SetCancelled()
		slog.Info("background_index_cancelled")
	default:
		b.progress.SetError(err.Error())
		slog.Error("background_index_failed", slog.String("error", err.Error()))
	}

	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

// Stop signals the indexer to stop and waits for it to finish. The
// indexer stops between documents.
func (b *BackgroundIndexer) Stop() {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started {
		return
	}

	b.stopOnce.Do(func() { close(b.stopCh) })
	<-b.doneCh
}

// Wait blocks until the indexer completes and returns any error. It must
// only be called after Start.
func (b *BackgroundIndexer) Wait() error {
	<-b.doneCh
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
