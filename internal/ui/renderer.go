// Package ui renders job progress for the CLI. The runner only emits
// (processed, failed, total, message) tuples; how they look is decided
// here.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Renderer consumes progress updates from a running job.
type Renderer interface {
	// Progress reports the current counters and a short status message.
	Progress(processed, failed, total int64, message string)

	// Done finalizes the display.
	Done(message string)
}

// NewRenderer picks a styled renderer on a TTY and a plain line
// renderer otherwise, so piped output stays clean.
func NewRenderer(w io.Writer) Renderer {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return NewStyledRenderer(w)
	}
	return NewPlainRenderer(w)
}

// PlainRenderer prints one line per update. Suitable for logs and
// non-interactive runs.
type PlainRenderer struct {
	w io.Writer
}

// NewPlainRenderer creates the line renderer.
func NewPlainRenderer(w io.Writer) *PlainRenderer {
	return &PlainRenderer{w: w}
}

// Progress prints counters and the message on one line.
func (r *PlainRenderer) Progress(processed, failed, total int64, message string) {
	if total > 0 {
		fmt.Fprintf(r.w, "%d/%d processed, %d failed  %s\n", processed, total, failed, message)
		return
	}
	fmt.Fprintf(r.w, "%d processed, %d failed  %s\n", processed, failed, message)
}

// Done prints the final message.
func (r *PlainRenderer) Done(message string) {
	fmt.Fprintln(r.w, message)
}

const barWidth = 30

var (
	barFillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

// StyledRenderer draws an in-place progress bar on a TTY.
type StyledRenderer struct {
	w io.Writer
}

// NewStyledRenderer creates the TTY renderer.
func NewStyledRenderer(w io.Writer) *StyledRenderer {
	return &StyledRenderer{w: w}
}

// Progress redraws the bar in place.
func (r *StyledRenderer) Progress(processed, failed, total int64, message string) {
	line := renderBar(processed, failed, total, message)
	fmt.Fprintf(r.w, "\r\x1b[2K%s", line)
}

// Done clears the bar and prints the final message.
func (r *StyledRenderer) Done(message string) {
	fmt.Fprintf(r.w, "\r\x1b[2K%s\n", doneStyle.Render(message))
}

func renderBar(processed, failed, total int64, message string) string {
	completed := processed + failed
	filled := 0
	if total > 0 {
		filled = int(completed * barWidth / total)
		if filled > barWidth {
			filled = barWidth
		}
	}
	bar := barFillStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))

	out := fmt.Sprintf("%s %d/%d", bar, completed, total)
	if failed > 0 {
		out += " " + failStyle.Render(fmt.Sprintf("(%d failed)", failed))
	}
	if message != "" {
		out += "  " + message
	}
	return out
}
