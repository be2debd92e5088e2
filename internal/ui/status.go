package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo contains index health information.
type StatusInfo struct {
	SourceDir      string    `json:"source_dir"`
	IndexPath      string    `json:"index_path"`
	Documents      int       `json:"documents"`
	EmptyDocuments int       `json:"empty_documents"`
	Terms          int       `json:"terms"`
	TotalTokens    int64     `json:"total_tokens"`
	AvgLength      float64   `json:"average_length"`
	LastIndexed    time.Time `json:"last_indexed"`
	SizeBytes      int64     `json:"size_bytes"`
	Analyzer       string    `json:"analyzer"`
	WatcherStatus  string    `json:"watcher_status,omitempty"` // "running", "stopped", "n/a"
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Status: "+info.SourceDir))

	_, _ = fmt.Fprintf(r.out, "  Documents:    %d", info.Documents)
	if info.EmptyDocuments > 0 {
		_, _ = fmt.Fprintf(r.out, " (%s)", r.styles.Warning.Render(fmt.Sprintf("%d without text", info.EmptyDocuments)))
	}
	_, _ = fmt.Fprintln(r.out)
	_, _ = fmt.Fprintf(r.out, "  Terms:        %d\n", info.Terms)
	_, _ = fmt.Fprintf(r.out, "  Tokens:       %d (avg %.1f per document)\n", info.TotalTokens, info.AvgLength)
	if !info.LastIndexed.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Last indexed: %s\n", formatTime(info.LastIndexed))
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Storage:")
	_, _ = fmt.Fprintf(r.out, "    Path:     %s\n", info.IndexPath)
	_, _ = fmt.Fprintf(r.out, "    Size:     %s\n", FormatBytes(info.SizeBytes))
	_, _ = fmt.Fprintf(r.out, "    Analyzer: %s\n", info.Analyzer)

	if info.WatcherStatus != "" && info.WatcherStatus != "n/a" {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintf(r.out, "  Watcher: %s\n", r.renderStatus(info.WatcherStatus))
	}

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready", "running":
		return r.styles.Success.Render(status)
	case "offline", "stopped":
		return r.styles.Warning.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

// formatTime formats a time relative to now.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
