package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// HybridWatcher watches a tree with fsnotify, falling back to polling when
// fsnotify cannot be initialized. Events are filtered, debounced and
// delivered in batches.
type HybridWatcher struct {
	fsWatcher      *fsnotify.Watcher
	pollWatcher    *PollingWatcher
	useFsnotify    bool
	debouncer      *Debouncer
	events         chan []FileEvent
	errors         chan error
	stopCh         chan struct{}
	rootPath       string
	opts           Options
	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

// NewHybridWatcher creates a watcher, preferring fsnotify.
func NewHybridWatcher(opts Options) (*HybridWatcher, error) {
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		h.fsWatcher = fsw
		h.useFsnotify = true
	} else {
		slog.Warn("fsnotify_unavailable",
			slog.String("error", err.Error()),
			slog.Duration("poll_interval", opts.PollInterval))
		h.pollWatcher = NewPollingWatcher(opts.PollInterval, h.ignoreDir)
	}

	return h, nil
}

// Start watches path until Stop or ctx cancellation.
func (h *HybridWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("stat watch root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root %s is not a directory", absPath)
	}

	h.mu.Lock()
	h.rootPath = absPath
	h.mu.Unlock()

	go h.forwardDebouncedEvents(ctx)

	if h.useFsnotify {
		return h.startFsnotify(ctx)
	}
	return h.startPolling(ctx)
}

func (h *HybridWatcher) startFsnotify(ctx context.Context) error {
	if err := h.addRecursive(h.rootPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

func (h *HybridWatcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case event, ok := <-h.pollWatcher.Events():
				if !ok {
					return
				}
				h.dispatch(event, true)
			case err, ok := <-h.pollWatcher.Errors():
				if !ok {
					return
				}
				h.emitError(err)
			}
		}
	}()

	return h.pollWatcher.Start(ctx, h.rootPath)
}

// handleFsnotifyEvent converts an fsnotify event and dispatches it.
func (h *HybridWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(h.rootPath, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	isDir := false
	exists := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
		exists = true
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir && !h.ignoreDir(rel) {
			// Files may land in the new directory before its watch is
			// registered; walking it picks them up.
			if err := h.addRecursive(event.Name); err != nil {
				h.emitError(err)
			}
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	h.dispatch(FileEvent{Path: rel, Operation: op, IsDir: isDir, Timestamp: time.Now()}, exists)
}

// dispatch filters an event and hands it to the debouncer. exists is false
// when the path is already gone; such events skip the user filter because a
// vanished directory cannot be told apart from a vanished file.
func (h *HybridWatcher) dispatch(ev FileEvent, exists bool) {
	if ev.Path == "" || ev.Path == "." || h.builtinIgnored(ev.Path) {
		return
	}

	if ev.Path == h.opts.ConfigFile {
		ev.Operation = OpConfigChange
		ev.IsDir = false
		h.debouncer.Add(ev)
		return
	}

	if ev.IsDir && ev.Operation != OpDelete && ev.Operation != OpRename {
		return
	}

	if exists && h.opts.Ignore != nil && h.opts.Ignore(ev.Path, ev.IsDir) {
		return
	}

	h.debouncer.Add(ev)
}

// builtinIgnored drops VCS metadata and the index directory.
func (h *HybridWatcher) builtinIgnored(rel string) bool {
	for _, dir := range []string{".git", h.opts.IndexDir} {
		if rel == dir || strings.HasPrefix(rel, dir+"/") {
			return true
		}
	}
	return false
}

// ignoreDir reports whether a directory is pruned from watching.
func (h *HybridWatcher) ignoreDir(rel string) bool {
	if h.builtinIgnored(rel) {
		return true
	}
	return h.opts.Ignore != nil && h.opts.Ignore(rel, true)
}

func (h *HybridWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case batch, ok := <-h.debouncer.Output():
			if !ok {
				return
			}
			if len(batch) > 0 {
				h.emitEvents(batch)
			}
		}
	}
}

// addRecursive registers dir and its non-ignored subdirectories. Files
// already present below a directory other than the root are reported as
// created, since they appeared before the watch existed.
func (h *HybridWatcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}

		rel, _ := filepath.Rel(h.rootPath, p)
		rel = filepath.ToSlash(rel)

		if !d.IsDir() {
			if dir != h.rootPath {
				h.dispatch(FileEvent{Path: rel, Operation: OpCreate, Timestamp: time.Now()}, true)
			}
			return nil
		}
		if rel != "." && h.ignoreDir(rel) {
			return filepath.SkipDir
		}
		return h.fsWatcher.Add(p)
	})
}

func (h *HybridWatcher) emitEvents(batch []FileEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}

	select {
	case h.events <- batch:
	default:
		count := h.droppedBatches.Add(1)
		slog.Warn("watch_batch_dropped",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count))
	}
}

// DroppedBatches returns the number of batches dropped on a full buffer.
func (h *HybridWatcher) DroppedBatches() uint64 {
	return h.droppedBatches.Load()
}

func (h *HybridWatcher) emitError(err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}

	select {
	case h.errors <- err:
	default:
	}
}

// Stop releases the watcher and closes both channels.
// Safe to call multiple times.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}

	h.stopped = true
	close(h.stopCh)
	h.debouncer.Stop()

	if h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.pollWatcher != nil {
		_ = h.pollWatcher.Stop()
	}

	close(h.events)
	close(h.errors)
	return nil
}

// Events returns the channel of debounced batches.
func (h *HybridWatcher) Events() <-chan []FileEvent {
	return h.events
}

// Errors returns the channel of non-fatal errors.
func (h *HybridWatcher) Errors() <-chan error {
	return h.errors
}

// IsHealthy reports whether the watcher is still running.
func (h *HybridWatcher) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.stopped
}

// WatcherType returns "fsnotify" or "polling".
func (h *HybridWatcher) WatcherType() string {
	if h.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

// RootPath returns the absolute root being watched.
func (h *HybridWatcher) RootPath() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rootPath
}
