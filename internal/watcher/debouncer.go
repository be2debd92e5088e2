package watcher

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces bursts of events per path and emits them as one batch
// once no new event has arrived for the window. Sequences for one path
// collapse as follows:
//   - CREATE then MODIFY is CREATE
//   - CREATE then DELETE is dropped
//   - MODIFY then DELETE is DELETE
//   - DELETE then CREATE is MODIFY
//
// Anything else keeps the latest operation.
type Debouncer struct {
	window  time.Duration
	pending map[string]FileEvent
	mu      sync.Mutex
	output  chan []FileEvent
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]FileEvent),
		output:  make(chan []FileEvent, 10),
	}
}

// Add queues an event, merging it with any pending event for the same path.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if prev, ok := d.pending[event.Path]; ok {
		merged, keep := coalesce(prev, event)
		if keep {
			d.pending[event.Path] = merged
		} else {
			delete(d.pending, event.Path)
		}
	} else {
		d.pending[event.Path] = event
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// coalesce merges next into prev. keep is false when the two cancel out.
func coalesce(prev, next FileEvent) (merged FileEvent, keep bool) {
	switch {
	case prev.Operation == OpCreate && next.Operation == OpModify:
		prev.Timestamp = next.Timestamp
		return prev, true
	case prev.Operation == OpCreate && next.Operation == OpDelete:
		return FileEvent{}, false
	case prev.Operation == OpDelete && next.Operation == OpCreate:
		next.Operation = OpModify
		return next, true
	default:
		return next, true
	}
}

// flush emits the pending batch ordered by path.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]FileEvent, 0, len(d.pending))
	for _, ev := range d.pending {
		batch = append(batch, ev)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	d.pending = make(map[string]FileEvent)

	select {
	case d.output <- batch:
	default:
		slog.Warn("debouncer_output_full",
			slog.Int("batch_size", len(batch)))
	}
}

// Output returns the channel of debounced batches.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop discards pending events and closes the output channel.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
