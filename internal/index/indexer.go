package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
	"github.com/omarfoud/pdf-text-searcher/internal/store"
	"github.com/omarfoud/pdf-text-searcher/internal/telemetry"
	"github.com/omarfoud/pdf-text-searcher/internal/ui"
)

// Options controls one IndexAll run.
type Options struct {
	// Force rewrites documents even when their content hash is unchanged.
	Force bool
	// Prune removes stored documents that are not in the collection.
	Prune bool
}

// Indexer writes collections into a store. One run at a time per Indexer,
// and, when a lock file is configured, one per index across processes.
type Indexer struct {
	store    store.Store
	renderer ui.Renderer
	metrics  *telemetry.Metrics
	lockPath string
	workers  int
	retry    doterrors.RetryConfig

	running sync.Mutex
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithRenderer sets the progress renderer.
func WithRenderer(r ui.Renderer) Option {
	return func(ix *Indexer) {
		ix.renderer = r
	}
}

// WithMetrics sets Prometheus collectors.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(ix *Indexer) {
		ix.metrics = m
	}
}

// WithLockFile enables the cross-process writer lock at path.
func WithLockFile(path string) Option {
	return func(ix *Indexer) {
		ix.lockPath = path
	}
}

// WithWorkers bounds concurrent text extraction (0 = NumCPU).
func WithWorkers(n int) Option {
	return func(ix *Indexer) {
		ix.workers = n
	}
}

// WithRetry sets the retry policy for store writes.
func WithRetry(cfg doterrors.RetryConfig) Option {
	return func(ix *Indexer) {
		ix.retry = cfg
	}
}

// New creates an Indexer writing to st.
func New(st store.Store, opts ...Option) (*Indexer, error) {
	if st == nil {
		return nil, fmt.Errorf("index store is required")
	}
	ix := &Indexer{
		store: st,
		retry: doterrors.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(ix)
	}
	if ix.renderer == nil {
		ix.renderer = ui.NopRenderer{}
	}
	if ix.workers <= 0 {
		ix.workers = runtime.NumCPU()
	}
	return ix, nil
}

// extraction is the text of one source, or why it could not be read.
type extraction struct {
	text string
	err  error
}

// IndexAll indexes every source in coll. Per-document failures are
// collected in the report and never stop the run. Cancellation is honored
// between documents: the returned report covers everything committed so far
// and the error is ctx.Err().
func (ix *Indexer) IndexAll(ctx context.Context, coll Collection, opts Options) (*Report, error) {
	if !ix.running.TryLock() {
		return nil, busyError("an index run is already in progress")
	}
	defer ix.running.Unlock()

	if ix.lockPath != "" {
		lock := flock.New(ix.lockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, doterrors.New(doterrors.ErrCodeFilePermission,
				"failed to acquire index lock", err).WithDetail("path", ix.lockPath)
		}
		if !locked {
			return nil, busyError("another process is indexing").WithDetail("path", ix.lockPath)
		}
		defer func() { _ = lock.Unlock() }()
	}

	report := newReport(uuid.NewString(), len(coll))
	start := time.Now()
	logger := slog.With(slog.String("run_id", report.RunID))
	logger.Info("index_started",
		slog.Int("documents", len(coll)),
		slog.Bool("force", opts.Force),
		slog.Bool("prune", opts.Prune))

	ix.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageIndexing, Total: len(coll)})

	indexStart := time.Now()
	err := ix.indexSources(ctx, coll, opts, report, logger)
	indexDuration := time.Since(indexStart)

	var pruneDuration time.Duration
	if err == nil && opts.Prune {
		pruneStart := time.Now()
		err = ix.prune(ctx, coll, report, logger)
		pruneDuration = time.Since(pruneStart)
	}

	report.Duration = time.Since(start)
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		report.Cancelled = true
		err = ctxErr
	}

	ix.finish(ctx, report, err, ui.StageTimings{Index: indexDuration, Prune: pruneDuration}, logger)
	return report, err
}

// indexSources extracts text on a bounded worker pool and writes documents
// on the calling goroutine in collection order.
func (ix *Indexer) indexSources(ctx context.Context, coll Collection, opts Options, report *Report, logger *slog.Logger) error {
	if len(coll) == 0 {
		return nil
	}

	extractCtx, stopExtraction := context.WithCancel(ctx)
	defer stopExtraction()

	ready := make([]chan extraction, len(coll))
	for i := range ready {
		ready[i] = make(chan extraction, 1)
	}

	// window bounds how far extraction may run ahead of the writer.
	window := make(chan struct{}, ix.workers*2)

	g, gctx := errgroup.WithContext(extractCtx)
	g.SetLimit(ix.workers)

	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		for i, src := range coll {
			select {
			case window <- struct{}{}:
			case <-gctx.Done():
				return
			}
			g.Go(func() error {
				text, err := src.Text(gctx)
				ready[i] <- extraction{text: text, err: err}
				return nil
			})
		}
	}()

	defer func() {
		stopExtraction()
		<-producerDone
		_ = g.Wait()
	}()

	seen := make(map[string]struct{}, len(coll))
	for i, src := range coll {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var ex extraction
		select {
		case ex = <-ready[i]:
		case <-ctx.Done():
			return ctx.Err()
		}
		<-window
		if ex.err != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		id := src.ID()
		if _, dup := seen[id]; dup {
			ix.fail(report, id, src.Name(), doterrors.InvalidArgument(
				fmt.Sprintf("duplicate source id %s", id)), logger)
		} else {
			seen[id] = struct{}{}
			ix.indexOne(ctx, src, ex, opts, report, logger)
		}

		ix.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:       ui.StageIndexing,
			Current:     i + 1,
			Total:       len(coll),
			CurrentFile: src.Name(),
		})
	}
	return nil
}

// indexOne writes a single document. The write runs to completion even if
// ctx is cancelled meanwhile, so a document is never half processed.
func (ix *Indexer) indexOne(ctx context.Context, src Source, ex extraction, opts Options, report *Report, logger *slog.Logger) {
	id := src.ID()
	if ex.err != nil {
		ix.fail(report, id, src.Name(), extractionFailed(id, ex.err), logger)
		return
	}

	writeCtx := context.WithoutCancel(ctx)

	if !opts.Force {
		stored, ok, err := ix.store.ContentHash(writeCtx, id)
		if err != nil {
			ix.fail(report, id, src.Name(), err, logger)
			return
		}
		if ok && stored == store.HashContent(ex.text) {
			report.Skipped = append(report.Skipped, id)
			return
		}
	}

	err := doterrors.Retry(writeCtx, ix.retry, func() error {
		return ix.store.UpsertDocument(writeCtx, id, src.Name(), ex.text)
	})
	if err != nil {
		ix.fail(report, id, src.Name(), err, logger)
		return
	}
	report.Succeeded = append(report.Succeeded, id)
}

func (ix *Indexer) fail(report *Report, id, name string, err error, logger *slog.Logger) {
	report.Failed[id] = err
	warn := doterrors.HasCode(err, doterrors.ErrCodeExtractionEmpty)
	ix.renderer.AddError(ui.ErrorEvent{File: name, Err: err, IsWarn: warn})

	attrs := append([]any{slog.String("doc_id", id)}, doterrors.LogAttrs(err)...)
	logger.Warn("document_failed", attrs...)
}

// prune removes stored documents whose source left the collection.
func (ix *Indexer) prune(ctx context.Context, coll Collection, report *Report, logger *slog.Logger) error {
	stored, err := ix.store.ListDocuments(ctx)
	if err != nil {
		return err
	}

	current := make(map[string]struct{}, len(coll))
	for _, src := range coll {
		current[src.ID()] = struct{}{}
	}

	var orphans []string
	for _, doc := range stored {
		if _, ok := current[doc.ID]; !ok {
			orphans = append(orphans, doc.ID)
		}
	}
	if len(orphans) == 0 {
		return nil
	}

	ix.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StagePruning, Total: len(orphans)})
	for i, id := range orphans {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := ix.store.RemoveDocument(context.WithoutCancel(ctx), id); err != nil {
			return err
		}
		report.Removed = append(report.Removed, id)
		ix.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:       ui.StagePruning,
			Current:     i + 1,
			Total:       len(orphans),
			CurrentFile: id,
		})
	}
	logger.Info("documents_pruned", slog.Int("count", len(orphans)))
	return nil
}

func (ix *Indexer) finish(ctx context.Context, report *Report, err error, timings ui.StageTimings, logger *slog.Logger) {
	warnings := 0
	for _, ferr := range report.Failed {
		if doterrors.HasCode(ferr, doterrors.ErrCodeExtractionEmpty) {
			warnings++
		}
	}

	ix.renderer.Complete(ui.CompletionStats{
		Documents: len(report.Succeeded),
		Skipped:   len(report.Skipped),
		Removed:   len(report.Removed),
		Errors:    len(report.Failed) - warnings,
		Warnings:  warnings,
		Duration:  report.Duration,
		Stages:    timings,
		Analyzer:  ix.store.Normalizer().Name(),
		Cancelled: report.Cancelled,
	})

	ix.metrics.ObserveIndexRun(telemetry.IndexRun{
		Indexed:   len(report.Succeeded),
		Skipped:   len(report.Skipped),
		Removed:   len(report.Removed),
		Failed:    len(report.Failed),
		Duration:  report.Duration,
		Cancelled: report.Cancelled,
		Err:       err,
	})
	if n, countErr := ix.store.DocumentCount(context.WithoutCancel(ctx)); countErr == nil {
		ix.metrics.SetIndexedDocuments(n)
	}

	attrs := []any{
		slog.Int("succeeded", len(report.Succeeded)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("removed", len(report.Removed)),
		slog.Int("failed", len(report.Failed)),
		slog.Duration("duration", report.Duration),
	}
	switch {
	case report.Cancelled:
		logger.Warn("index_cancelled", append(attrs, slog.Int("processed", report.Processed()))...)
	case err != nil:
		logger.Error("index_failed", append(attrs, slog.String("error", err.Error()))...)
	default:
		logger.Info("index_complete", attrs...)
	}
}

func busyError(msg string) *doterrors.DocError {
	return doterrors.New(doterrors.ErrCodeIndexBusy, msg, nil).
		WithSuggestion("wait for the running index to finish")
}

func extractionFailed(id string, cause error) error {
	if _, ok := doterrors.As(cause); ok {
		return cause
	}
	return doterrors.New(doterrors.ErrCodeExtractionFailed,
		fmt.Sprintf("failed to extract text from %s", id), cause).WithDetail("doc_id", id)
}
