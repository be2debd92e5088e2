// Package ui provides terminal output for indexing progress, index status
// and search results.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage represents an indexing stage.
type Stage int

const (
	// StageScanning is source discovery.
	StageScanning Stage = iota
	// StageIndexing is text extraction and document writes.
	StageIndexing
	// StagePruning removes documents whose source disappeared.
	StagePruning
	// StageComplete indicates indexing is complete.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "Scanning"
	case StageIndexing:
		return "Indexing"
	case StagePruning:
		return "Pruning"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage label for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageScanning:
		return "SCAN"
	case StageIndexing:
		return "INDEX"
	case StagePruning:
		return "PRUNE"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent represents a progress update: document Current of Total.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent represents a per-document failure.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// StageTimings tracks duration for each indexing stage.
type StageTimings struct {
	Scan  time.Duration
	Index time.Duration
	Prune time.Duration
}

// CompletionStats contains final indexing statistics.
type CompletionStats struct {
	Documents int // Written in this run
	Skipped   int // Unchanged since the last run
	Removed   int
	Errors    int
	Warnings  int
	Duration  time.Duration
	Stages    StageTimings
	Analyzer  string
	Cancelled bool
}

// Renderer defines the interface for progress display.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates progress display.
	UpdateProgress(event ProgressEvent)

	// AddError adds an error to display.
	AddError(event ErrorEvent)

	// Complete marks rendering as complete with summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// NopRenderer discards all events.
type NopRenderer struct{}

func (NopRenderer) Start(context.Context) error  { return nil }
func (NopRenderer) UpdateProgress(ProgressEvent) {}
func (NopRenderer) AddError(ErrorEvent)          {}
func (NopRenderer) Complete(CompletionStats)     {}
func (NopRenderer) Stop() error                  { return nil }

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	SourceDir  string // Shown in the TUI header
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithSourceDir sets the directory shown in the header.
func WithSourceDir(dir string) ConfigOption {
	return func(c *Config) {
		c.SourceDir = dir
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns a TUI renderer for interactive terminals and a plain
// text renderer for CI, pipes, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
