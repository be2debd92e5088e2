package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer provides rich terminal UI using bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *indexingModel
	tracker *ProgressTracker
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer.
// Returns an error if the output is not a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newIndexingModel(tracker, cfg.SourceDir)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	opts := []tea.ProgramOption{tea.WithContext(runCtx), tea.WithAltScreen()}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()

	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage != r.tracker.Stats().Stage {
		r.tracker.SetStage(event.Stage, event.Total)
	}
	r.tracker.Update(event.Current, event.CurrentFile)

	if r.program != nil {
		r.program.Send(progressUpdateMsg(event))
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.AddError(event)

	if r.program != nil {
		r.program.Send(errorMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.SetStage(StageComplete, 0)

	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Quit()

		// An unresponsive program must not hang Ctrl+C.
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
		}
	}
	if r.cancel != nil {
		r.cancel()
	}

	return nil
}

type progressUpdateMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats
type tickMsg time.Time

// indexingModel is the bubbletea model for indexing progress.
type indexingModel struct {
	tracker     *ProgressTracker
	width       int
	height      int
	quitting    bool
	complete    bool
	stats       CompletionStats
	spinner     spinner.Model
	progressBar progress.Model
	styles      Styles
	sourceDir   string
}

func newIndexingModel(tracker *ProgressTracker, sourceDir string) *indexingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	p := progress.New(
		progress.WithSolidFill(ColorLime),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return &indexingModel{
		tracker:     tracker,
		spinner:     s,
		progressBar: p,
		styles:      DefaultStyles(),
		width:       80,
		height:      24,
		sourceDir:   sourceDir,
	}
}

// Init implements tea.Model.
func (m *indexingModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *indexingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progressBar.Width = max(msg.Width-20, 20)

	case progressUpdateMsg, errorMsg:
		// State lives in the tracker; the next tick redraws.
		return m, nil

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *indexingModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	contentWidth := max(m.width-4, 40)
	stats := m.tracker.Stats()

	sections := []string{
		m.renderStages(stats.Stage),
		m.renderDivider(contentWidth),
		m.renderProgress(stats),
		m.renderSpeed(stats),
	}
	if stats.CurrentFile != "" {
		sections = append(sections,
			m.renderDivider(contentWidth),
			m.styles.Dim.Render(truncateFilePath(stats.CurrentFile, contentWidth-2)))
	}

	title := "doctext indexer"
	if m.sourceDir != "" {
		title = fmt.Sprintf("doctext indexer • %s", m.sourceDir)
	}
	panel := m.wrapInPanel(title, strings.Join(sections, "\n"), contentWidth)

	return panel + "\n" + m.renderStatusBar(stats)
}

func (m *indexingModel) renderStages(current Stage) string {
	stages := []struct {
		stage Stage
		name  string
	}{
		{StageScanning, "Scan"},
		{StageIndexing, "Index"},
		{StagePruning, "Prune"},
	}

	parts := make([]string, 0, len(stages))
	for _, s := range stages {
		var icon string
		var style lipgloss.Style

		switch {
		case s.stage < current:
			icon = "●"
			style = m.styles.Success
		case s.stage == current:
			icon = m.spinner.View()
			style = m.styles.Active
		default:
			icon = "○"
			style = m.styles.Dim
		}
		parts = append(parts, style.Render(icon+" "+s.name))
	}

	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

func (m *indexingModel) renderProgress(stats ProgressStats) string {
	if stats.Total == 0 {
		return fmt.Sprintf("%s %s...\n%s",
			m.spinner.View(),
			stats.Stage.String(),
			m.styles.Dim.Render("Preparing..."))
	}

	bar := m.progressBar.ViewAs(stats.Progress)
	pct := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", stats.Progress*100))
	count := m.styles.Label.Render(fmt.Sprintf("%d / %d documents", stats.Current, stats.Total))

	return fmt.Sprintf("%s  %s\n%s", bar, pct, count)
}

func (m *indexingModel) renderSpeed(stats ProgressStats) string {
	parts := []string{m.styles.Speed.Render(fmt.Sprintf("Speed: %.1f docs/s", stats.DocsPerSec))}
	if stats.ETA > 0 {
		parts = append(parts, m.styles.Label.Render("ETA: "+formatDuration(stats.ETA)))
	}
	return strings.Join(parts, m.styles.Dim.Render("  •  "))
}

func (m *indexingModel) renderDivider(width int) string {
	return m.styles.Border.Render(strings.Repeat("─", width))
}

func (m *indexingModel) wrapInPanel(title, content string, width int) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(title),
		m.styles.Panel.Width(width).Render(content),
	)
}

func (m *indexingModel) renderStatusBar(stats ProgressStats) string {
	var parts []string
	if stats.WarnCount > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", stats.WarnCount)))
	}
	if stats.ErrorCount > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", stats.ErrorCount)))
	}
	if len(parts) == 0 {
		return m.styles.Dim.Render("q to quit")
	}

	separator := m.styles.Dim.Render("  │  ")
	return strings.Join(parts, separator) + separator + m.styles.Dim.Render("q to quit")
}

func (m *indexingModel) renderComplete() string {
	contentWidth := max(m.width-4, 40)

	header := m.styles.Success.Render("✓ Indexing Complete")
	if m.stats.Cancelled {
		header = m.styles.Warning.Render("⚠ Indexing Cancelled")
	}

	row := func(label string, value string) string {
		return fmt.Sprintf("%-10s %s", m.styles.Label.Render(label), m.styles.Active.Render(value))
	}
	lines := []string{
		header,
		"",
		row("Indexed:", fmt.Sprintf("%d", m.stats.Documents)),
		row("Unchanged:", fmt.Sprintf("%d", m.stats.Skipped)),
		row("Removed:", fmt.Sprintf("%d", m.stats.Removed)),
		row("Duration:", formatDuration(m.stats.Duration)),
	}

	if m.stats.Errors > 0 || m.stats.Warnings > 0 {
		lines = append(lines, "")
		if m.stats.Errors > 0 {
			lines = append(lines, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", m.stats.Errors)))
		}
		if m.stats.Warnings > 0 {
			lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", m.stats.Warnings)))
		}
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorLime)).
		Padding(1, 2).
		Width(contentWidth)

	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}

// truncateFilePath shortens path to maxLen, keeping the file name.
func truncateFilePath(path string, maxLen int) string {
	if path == "" || len(path) <= maxLen {
		return path
	}

	parts := strings.Split(path, "/")
	if len(parts) == 1 {
		if maxLen < 4 {
			return "..."
		}
		return "..." + path[len(path)-maxLen+3:]
	}

	filename := parts[len(parts)-1]
	if len(filename)+4 > maxLen {
		if maxLen < 4 {
			return "..."
		}
		return "..." + filename[len(filename)-maxLen+3:]
	}

	remaining := maxLen - len(filename) - 4 // ".../"
	if remaining <= 0 {
		return ".../" + filename
	}

	prefix := strings.Join(parts[:len(parts)-1], "/")
	return "..." + prefix[len(prefix)-remaining:] + "/" + filename
}

var _ Renderer = (*TUIRenderer)(nil)
var _ Renderer = (*PlainRenderer)(nil)
var _ Renderer = NopRenderer{}
