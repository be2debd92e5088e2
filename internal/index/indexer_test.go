package index

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
	"github.com/omarfoud/pdf-text-searcher/internal/normalize"
	"github.com/omarfoud/pdf-text-searcher/internal/store"
	"github.com/omarfoud/pdf-text-searcher/internal/telemetry"
	"github.com/omarfoud/pdf-text-searcher/internal/ui"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open("", normalize.MustNew(normalize.StemmerPorter), store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fastRetry() doterrors.RetryConfig {
	return doterrors.RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	}
}

func exampleCollection() Collection {
	return Collection{
		TextSource{DocID: "doc1", Body: "The running runners ran races"},
		TextSource{DocID: "doc2", Body: "Cats chase running mice"},
	}
}

// failingSource cannot produce text.
type failingSource struct {
	id  string
	err error
}

func (s failingSource) ID() string   { return s.id }
func (s failingSource) Name() string { return s.id + ".pdf" }
func (s failingSource) Text(context.Context) (string, error) {
	return "", s.err
}

// blockingSource holds extraction until release is closed.
type blockingSource struct {
	id      string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSource) ID() string   { return s.id }
func (s *blockingSource) Name() string { return s.id }
func (s *blockingSource) Text(ctx context.Context) (string, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return "held document", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// recordingRenderer captures renderer events.
type recordingRenderer struct {
	ui.NopRenderer
	mu         sync.Mutex
	progress   []ui.ProgressEvent
	errs       []ui.ErrorEvent
	completed  []ui.CompletionStats
	onProgress func(ui.ProgressEvent)
}

func (r *recordingRenderer) UpdateProgress(ev ui.ProgressEvent) {
	r.mu.Lock()
	r.progress = append(r.progress, ev)
	hook := r.onProgress
	r.mu.Unlock()
	if hook != nil {
		hook(ev)
	}
}

func (r *recordingRenderer) AddError(ev ui.ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, ev)
}

func (r *recordingRenderer) Complete(stats ui.CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, stats)
}

// flakyStore fails upserts of one document a fixed number of times.
type flakyStore struct {
	store.Store
	failID   string
	failures int
	err      error
	calls    int
}

func (s *flakyStore) UpsertDocument(ctx context.Context, id, name, text string) error {
	if id == s.failID {
		s.calls++
		if s.failures < 0 || s.calls <= s.failures {
			return s.err
		}
	}
	return s.Store.UpsertDocument(ctx, id, name, text)
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestIndexAll_ExampleCollection(t *testing.T) {
	// Given: the two example documents
	ctx := context.Background()
	st := newTestStore(t)
	ix, err := New(st)
	require.NoError(t, err)

	// When: indexing them
	report, err := ix.IndexAll(ctx, exampleCollection(), Options{})

	// Then: both are written and searchable by their shared stem
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{"doc1", "doc2"}, report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Processed())
	assert.False(t, report.Cancelled)

	postings, err := st.LookupTerm(ctx, "run")
	require.NoError(t, err)
	assert.Len(t, postings, 2)
}

func TestIndexAll_PartialFailure(t *testing.T) {
	// Given: five sources where the third cannot be read
	ctx := context.Background()
	st := newTestStore(t)
	ix, err := New(st, WithWorkers(2))
	require.NoError(t, err)

	coll := Collection{
		TextSource{DocID: "a", Body: "apples and pears"},
		TextSource{DocID: "b", Body: "bananas"},
		failingSource{id: "c", err: errors.New("corrupt xref table")},
		TextSource{DocID: "d", Body: "dates"},
		TextSource{DocID: "e", Body: "elderberries"},
	}

	// When: indexing
	report, err := ix.IndexAll(ctx, coll, Options{})

	// Then: the run succeeds with one recorded failure
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d", "e"}, report.Succeeded)
	assert.Equal(t, []string{"c"}, report.FailedIDs())
	assert.True(t, doterrors.HasCode(report.Failed["c"], doterrors.ErrCodeExtractionFailed))
	assert.ErrorContains(t, report.Failed["c"], "corrupt xref table")

	n, err := st.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestIndexAll_ExtractionErrorKeepsItsCode(t *testing.T) {
	ctx := context.Background()
	ix, err := New(newTestStore(t))
	require.NoError(t, err)

	tooLarge := doterrors.New(doterrors.ErrCodeFileTooLarge, "file too large", nil)
	report, err := ix.IndexAll(ctx, Collection{failingSource{id: "big", err: tooLarge}}, Options{})

	require.NoError(t, err)
	assert.True(t, doterrors.HasCode(report.Failed["big"], doterrors.ErrCodeFileTooLarge))
}

func TestIndexAll_SkipsUnchangedDocuments(t *testing.T) {
	// Given: an indexed collection
	ctx := context.Background()
	st := newTestStore(t)
	ix, err := New(st)
	require.NoError(t, err)
	_, err = ix.IndexAll(ctx, exampleCollection(), Options{})
	require.NoError(t, err)

	// When: indexing again with one document changed
	coll := Collection{
		TextSource{DocID: "doc1", Body: "The running runners ran races"},
		TextSource{DocID: "doc2", Body: "Dogs chase running cats"},
	}
	report, err := ix.IndexAll(ctx, coll, Options{})

	// Then: only the changed document is rewritten
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1"}, report.Skipped)
	assert.Equal(t, []string{"doc2"}, report.Succeeded)

	doc, _, err := st.GetDocument(ctx, "doc2")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Dogs chase running cats", doc.RawText)
}

func TestIndexAll_ForceRewritesEverything(t *testing.T) {
	ctx := context.Background()
	ix, err := New(newTestStore(t))
	require.NoError(t, err)
	_, err = ix.IndexAll(ctx, exampleCollection(), Options{})
	require.NoError(t, err)

	report, err := ix.IndexAll(ctx, exampleCollection(), Options{Force: true})

	require.NoError(t, err)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, []string{"doc1", "doc2"}, report.Succeeded)
}

func TestIndexAll_Prune(t *testing.T) {
	// Given: an index holding a document that has since disappeared
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.UpsertDocument(ctx, "gone", "gone.txt", "stale words"))
	ix, err := New(st)
	require.NoError(t, err)

	// When: indexing the current collection with pruning
	report, err := ix.IndexAll(ctx, exampleCollection(), Options{Prune: true})

	// Then: the orphan is removed
	require.NoError(t, err)
	assert.Equal(t, []string{"gone"}, report.Removed)
	hash, ok, err := st.ContentHash(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, hash)
}

func TestIndexAll_WithoutPruneKeepsOrphans(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.UpsertDocument(ctx, "kept", "", "old words"))
	ix, err := New(st)
	require.NoError(t, err)

	report, err := ix.IndexAll(ctx, exampleCollection(), Options{})

	require.NoError(t, err)
	assert.Empty(t, report.Removed)
	n, err := st.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestIndexAll_EmptyDocumentIsWarning(t *testing.T) {
	// Given: a source with no indexable text
	ctx := context.Background()
	st := newTestStore(t)
	rec := &recordingRenderer{}
	ix, err := New(st, WithRenderer(rec))
	require.NoError(t, err)

	// When: indexing it
	report, err := ix.IndexAll(ctx, Collection{TextSource{DocID: "scan", Body: "  ... ---  "}}, Options{})

	// Then: it is reported as a warning but stays stored
	require.NoError(t, err)
	assert.True(t, doterrors.HasCode(report.Failed["scan"], doterrors.ErrCodeExtractionEmpty))
	_, ok, err := st.ContentHash(ctx, "scan")
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, rec.errs, 1)
	assert.True(t, rec.errs[0].IsWarn)
	require.Len(t, rec.completed, 1)
	assert.Equal(t, 1, rec.completed[0].Warnings)
	assert.Equal(t, 0, rec.completed[0].Errors)
}

func TestIndexAll_DuplicateIDs(t *testing.T) {
	ctx := context.Background()
	ix, err := New(newTestStore(t))
	require.NoError(t, err)

	coll := Collection{
		TextSource{DocID: "x", Body: "first"},
		TextSource{DocID: "x", Body: "second"},
	}
	report, err := ix.IndexAll(ctx, coll, Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, report.Succeeded)
	assert.True(t, doterrors.HasCode(report.Failed["x"], doterrors.ErrCodeInvalidArgument))
}

func TestIndexAll_ProgressPerDocument(t *testing.T) {
	// Given: a recording renderer
	ctx := context.Background()
	rec := &recordingRenderer{}
	ix, err := New(newTestStore(t), WithRenderer(rec))
	require.NoError(t, err)

	// When: indexing three documents
	coll := Collection{
		TextSource{DocID: "1", DocName: "one.txt", Body: "one"},
		TextSource{DocID: "2", DocName: "two.txt", Body: "two"},
		TextSource{DocID: "3", DocName: "three.txt", Body: "three"},
	}
	_, err = ix.IndexAll(ctx, coll, Options{})
	require.NoError(t, err)

	// Then: one opening event plus one event per document, in order
	require.Len(t, rec.progress, 4)
	assert.Equal(t, ui.ProgressEvent{Stage: ui.StageIndexing, Total: 3}, rec.progress[0])
	for i, name := range []string{"one.txt", "two.txt", "three.txt"} {
		ev := rec.progress[i+1]
		assert.Equal(t, i+1, ev.Current)
		assert.Equal(t, 3, ev.Total)
		assert.Equal(t, name, ev.CurrentFile)
	}
	require.Len(t, rec.completed, 1)
	assert.Equal(t, 3, rec.completed[0].Documents)
	assert.Equal(t, "doctext_en_porter", rec.completed[0].Analyzer)
}

func TestIndexAll_CancelBetweenDocuments(t *testing.T) {
	// Given: a run that is cancelled once two documents are written
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := newTestStore(t)
	rec := &recordingRenderer{onProgress: func(ev ui.ProgressEvent) {
		if ev.Current == 2 {
			cancel()
		}
	}}
	ix, err := New(st, WithRenderer(rec), WithWorkers(1))
	require.NoError(t, err)

	var coll Collection
	for i := 0; i < 5; i++ {
		coll = append(coll, TextSource{DocID: fmt.Sprintf("d%d", i), Body: fmt.Sprintf("document number %d", i)})
	}

	// When: indexing
	report, err := ix.IndexAll(ctx, coll, Options{Prune: true})

	// Then: committed documents stay, the rest are untouched
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.True(t, report.Cancelled)
	assert.Equal(t, []string{"d0", "d1"}, report.Succeeded)
	assert.Empty(t, report.Removed)

	n, err := st.DocumentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, rec.completed, 1)
	assert.True(t, rec.completed[0].Cancelled)
}

func TestIndexAll_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := newTestStore(t)
	ix, err := New(st)
	require.NoError(t, err)

	report, err := ix.IndexAll(ctx, exampleCollection(), Options{})

	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, report.Cancelled)
	assert.Empty(t, report.Succeeded)
}

func TestIndexAll_RetriesTransientWriteFailure(t *testing.T) {
	// Given: a store whose first write of doc2 fails transiently
	ctx := context.Background()
	fs := &flakyStore{
		Store:    newTestStore(t),
		failID:   "doc2",
		failures: 1,
		err:      doterrors.StoreWriteError("upsert", errors.New("database is locked")),
	}
	ix, err := New(fs, WithRetry(fastRetry()))
	require.NoError(t, err)

	// When: indexing
	report, err := ix.IndexAll(ctx, exampleCollection(), Options{})

	// Then: the retry succeeds
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1", "doc2"}, report.Succeeded)
	assert.Equal(t, 2, fs.calls)
}

func TestIndexAll_PersistentWriteFailure(t *testing.T) {
	ctx := context.Background()
	fs := &flakyStore{
		Store:    newTestStore(t),
		failID:   "doc1",
		failures: -1,
		err:      doterrors.StoreWriteError("upsert", errors.New("disk I/O error")),
	}
	ix, err := New(fs, WithRetry(fastRetry()))
	require.NoError(t, err)

	report, err := ix.IndexAll(ctx, exampleCollection(), Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{"doc2"}, report.Succeeded)
	assert.True(t, doterrors.HasCode(report.Failed["doc1"], doterrors.ErrCodeStoreWrite))
	assert.Equal(t, 3, fs.calls)
}

func TestIndexAll_BusyWhileRunning(t *testing.T) {
	// Given: a run blocked inside extraction
	st := newTestStore(t)
	ix, err := New(st)
	require.NoError(t, err)
	src := &blockingSource{id: "held", started: make(chan struct{}), release: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := ix.IndexAll(context.Background(), Collection{src}, Options{})
		done <- err
	}()
	<-src.started

	// When: a second run starts
	_, err = ix.IndexAll(context.Background(), exampleCollection(), Options{})

	// Then: it is rejected as busy
	assert.True(t, doterrors.HasCode(err, doterrors.ErrCodeIndexBusy))

	close(src.release)
	require.NoError(t, <-done)
}

func TestIndexAll_BusyAcrossProcesses(t *testing.T) {
	// Given: the lock file is held elsewhere
	lockPath := filepath.Join(t.TempDir(), "index.lock")
	other := flock.New(lockPath)
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = other.Unlock() }()

	ix, err := New(newTestStore(t), WithLockFile(lockPath))
	require.NoError(t, err)

	// When: indexing
	_, err = ix.IndexAll(context.Background(), exampleCollection(), Options{})

	// Then: the run is refused
	assert.True(t, doterrors.HasCode(err, doterrors.ErrCodeIndexBusy))
	assert.True(t, doterrors.IsRetryable(err))

	// And after release it proceeds
	require.NoError(t, other.Unlock())
	_, err = ix.IndexAll(context.Background(), exampleCollection(), Options{})
	assert.NoError(t, err)
}

func TestIndexAll_RecordsMetrics(t *testing.T) {
	ctx := context.Background()
	m := telemetry.NewMetrics()
	ix, err := New(newTestStore(t), WithMetrics(m))
	require.NoError(t, err)

	coll := append(exampleCollection(), failingSource{id: "bad", err: errors.New("boom")})
	_, err = ix.IndexAll(ctx, coll, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsProcessedTotal.WithLabelValues("indexed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocsProcessedTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexRunsTotal.WithLabelValues("complete")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IndexedDocuments))
}

func TestIndexAll_EmptyCollection(t *testing.T) {
	ix, err := New(newTestStore(t))
	require.NoError(t, err)

	report, err := ix.IndexAll(context.Background(), nil, Options{})

	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0, report.Processed())
}
