package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// PollingWatcher detects changes by comparing periodic snapshots of the
// tree. It is the fallback when fsnotify is unavailable.
type PollingWatcher struct {
	interval  time.Duration
	skipDir   func(relPath string) bool
	fileState map[string]fileSnapshot
	events    chan FileEvent
	errors    chan error
	stopCh    chan struct{}
	mu        sync.Mutex
	stopped   bool
	rootPath  string
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// NewPollingWatcher creates a polling watcher. skipDir, when non-nil, prunes
// directories from every snapshot walk.
func NewPollingWatcher(interval time.Duration, skipDir func(relPath string) bool) *PollingWatcher {
	return &PollingWatcher{
		interval:  interval,
		skipDir:   skipDir,
		fileState: make(map[string]fileSnapshot),
		events:    make(chan FileEvent, 100),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}
}

// Start takes a baseline snapshot and polls until Stop or ctx cancellation.
func (p *PollingWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}

	p.mu.Lock()
	p.rootPath = absPath
	state, err := p.snapshot()
	if err == nil {
		p.fileState = state
	}
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				select {
				case p.errors <- err:
				default:
				}
			}
		}
	}
}

// Stop stops polling and closes the channels. Safe to call multiple times.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the channel of errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}

// snapshot walks the tree. Must be called with lock held.
func (p *PollingWatcher) snapshot() (map[string]fileSnapshot, error) {
	state := make(map[string]fileSnapshot)
	err := filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == p.rootPath {
				return err
			}
			return nil
		}

		rel, err := filepath.Rel(p.rootPath, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() && p.skipDir != nil && p.skipDir(rel) {
			return filepath.SkipDir
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		state[rel] = fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
			isDir:   d.IsDir(),
		}
		return nil
	})
	return state, err
}

// detectChanges diffs a fresh snapshot against the previous one.
func (p *PollingWatcher) detectChanges() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	current, err := p.snapshot()
	if err != nil {
		return fmt.Errorf("walk directory for changes: %w", err)
	}

	now := time.Now()
	for rel, snap := range current {
		prev, existed := p.fileState[rel]
		switch {
		case !existed:
			p.emitEvent(FileEvent{Path: rel, Operation: OpCreate, IsDir: snap.isDir, Timestamp: now})
		case !snap.isDir && (prev.modTime != snap.modTime || prev.size != snap.size):
			p.emitEvent(FileEvent{Path: rel, Operation: OpModify, Timestamp: now})
		}
	}
	for rel, snap := range p.fileState {
		if _, ok := current[rel]; !ok {
			p.emitEvent(FileEvent{Path: rel, Operation: OpDelete, IsDir: snap.isDir, Timestamp: now})
		}
	}

	p.fileState = current
	return nil
}

// emitEvent sends without blocking. Must be called with lock held.
func (p *PollingWatcher) emitEvent(event FileEvent) {
	if p.stopped {
		return
	}

	select {
	case p.events <- event:
	default:
		slog.Warn("polling_buffer_full",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()))
	}
}
