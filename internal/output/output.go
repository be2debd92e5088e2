// Package output prints the one-line status messages of CLI commands.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/omarfoud/pdf-text-searcher/internal/ui"
)

// Writer prints status lines, colored when attached to a terminal.
type Writer struct {
	out    io.Writer
	styles ui.Styles
}

// New creates a Writer. Color is used only when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	noColor := !ui.IsTTY(out) || ui.DetectNoColor()
	return &Writer{out: out, styles: ui.GetStyles(noColor)}
}

// Status prints msg behind icon, or indented when icon is empty.
// Write errors are ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon == "" {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
}

// Statusf is Status with formatting.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Successf prints a success line.
func (w *Writer) Successf(format string, args ...any) {
	w.Status(w.styles.Success.Render("✓"), fmt.Sprintf(format, args...))
}

// Warningf prints a warning line.
func (w *Writer) Warningf(format string, args ...any) {
	w.Status(w.styles.Warning.Render("!"), fmt.Sprintf(format, args...))
}

// Errorf prints an error line.
func (w *Writer) Errorf(format string, args ...any) {
	w.Status(w.styles.Error.Render("✗"), fmt.Sprintf(format, args...))
}

// Code prints content indented between blank lines.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
