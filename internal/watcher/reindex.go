package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
	"github.com/omarfoud/pdf-text-searcher/internal/index"
)

// CollectFunc enumerates the current sources under the watched root.
type CollectFunc func(ctx context.Context) (index.Collection, error)

// ReindexOptions configures a Reindexer.
type ReindexOptions struct {
	// Prune removes documents whose source disappeared.
	Prune bool

	// Retry applies when the index is busy with another run.
	Retry doterrors.RetryConfig

	// OnConfigChange runs before a pass triggered by a config change, so
	// the caller can reload exclusions before sources are collected.
	OnConfigChange func(ctx context.Context) error

	// OnPass observes every completed pass.
	OnPass func(report *index.Report, err error)
}

// Reindexer runs an incremental index pass per batch of changes.
type Reindexer struct {
	indexer *index.Indexer
	collect CollectFunc
	opts    ReindexOptions
}

// NewReindexer creates a Reindexer. A zero Retry uses the default policy.
func NewReindexer(ix *index.Indexer, collect CollectFunc, opts ReindexOptions) *Reindexer {
	if opts.Retry == (doterrors.RetryConfig{}) {
		opts.Retry = doterrors.RetryConfig{
			MaxRetries:   5,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		}
	}
	return &Reindexer{indexer: ix, collect: collect, opts: opts}
}

// Run consumes batches until the channel closes or ctx is done. Batches
// that queue up while a pass is running are folded into the next pass.
func (r *Reindexer) Run(ctx context.Context, batches <-chan []FileEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			batch = drain(batches, batch)
			if err := r.Reindex(ctx, batch); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// drain appends every batch already waiting on the channel.
func drain(batches <-chan []FileEvent, batch []FileEvent) []FileEvent {
	for {
		select {
		case more, ok := <-batches:
			if !ok {
				return batch
			}
			batch = append(batch, more...)
		default:
			return batch
		}
	}
}

// Reindex runs one pass for batch. Failures are logged and returned; the
// next batch triggers a fresh pass either way.
func (r *Reindexer) Reindex(ctx context.Context, batch []FileEvent) error {
	if len(batch) == 0 {
		return nil
	}

	configChanged := false
	for _, ev := range batch {
		if ev.Operation == OpConfigChange {
			configChanged = true
			break
		}
	}

	slog.Info("watch_reindex",
		slog.Int("changes", len(batch)),
		slog.Bool("config_changed", configChanged))

	if configChanged && r.opts.OnConfigChange != nil {
		if err := r.opts.OnConfigChange(ctx); err != nil {
			slog.Error("watch_config_reload_failed", doterrors.LogAttrs(err)...)
			r.observe(nil, err)
			return err
		}
	}

	var report *index.Report
	err := doterrors.Retry(ctx, r.opts.Retry, func() error {
		coll, err := r.collect(ctx)
		if err != nil {
			return err
		}
		report, err = r.indexer.IndexAll(ctx, coll, index.Options{Prune: r.opts.Prune})
		return err
	})

	switch {
	case err == nil:
		slog.Info("watch_reindex_complete",
			slog.String("run_id", report.RunID),
			slog.Int("indexed", len(report.Succeeded)),
			slog.Int("skipped", len(report.Skipped)),
			slog.Int("removed", len(report.Removed)),
			slog.Int("failed", len(report.Failed)))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		slog.Info("watch_reindex_cancelled")
	default:
		slog.Error("watch_reindex_failed", doterrors.LogAttrs(err)...)
	}

	r.observe(report, err)
	return err
}

func (r *Reindexer) observe(report *index.Report, err error) {
	if r.opts.OnPass != nil {
		r.opts.OnPass(report, err)
	}
}
