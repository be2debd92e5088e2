package watcher

import (
	"context"
	"time"
)

// Operation is the kind of change observed on a path.
type Operation int

const (
	// OpCreate indicates a new file or directory was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file or directory was deleted.
	OpDelete
	// OpRename indicates a file or directory was renamed away.
	OpRename
	// OpConfigChange indicates the project config file changed. Exclusions
	// and extensions may differ afterwards, so the whole source tree is
	// reconciled.
	OpConfigChange
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one observed change.
type FileEvent struct {
	// Path is slash-separated and relative to the watched root, the same
	// form the scanner uses for document IDs.
	Path string

	// OldPath is the previous path for rename events.
	OldPath string

	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Watcher is a recursive file system watcher emitting single events.
type Watcher interface {
	// Start watches path recursively until Stop or ctx cancellation.
	Start(ctx context.Context, path string) error

	// Stop releases resources. Safe to call multiple times.
	Stop() error

	// Events is closed when the watcher stops.
	Events() <-chan FileEvent

	// Errors carries non-fatal errors; the watcher keeps running.
	Errors() <-chan error
}

// IgnoreFunc reports whether changes under relPath should be dropped.
type IgnoreFunc func(relPath string, isDir bool) bool

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is how long a path must be quiet before its event is
	// emitted. Default: 200ms
	DebounceWindow time.Duration

	// PollInterval is the scan interval of the polling fallback.
	// Default: 5s
	PollInterval time.Duration

	// EventBufferSize is the capacity of the batch channel. Default: 1000
	EventBufferSize int

	// Ignore filters paths that can never become documents. Nil keeps
	// everything except the built-in ignores.
	Ignore IgnoreFunc

	// IndexDir is the index directory relative to the root. Changes under
	// it are always dropped so index writes never trigger reindexing.
	// Default: .doctext
	IndexDir string

	// ConfigFile is the project config file name at the root.
	// Default: .doctext.yaml
	ConfigFile string
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
		IndexDir:        ".doctext",
		ConfigFile:      ".doctext.yaml",
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if o.IndexDir == "" {
		o.IndexDir = defaults.IndexDir
	}
	if o.ConfigFile == "" {
		o.ConfigFile = defaults.ConfigFile
	}
	return o
}
