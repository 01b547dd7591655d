// Package tui holds the terminal niceties of the CLI: markdown rendering,
// TTY detection and the banner.
package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// defaultWidth is used when the terminal size is unknown.
const defaultWidth = 80

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Width returns the column count of f, or defaultWidth.
func Width(f *os.File) int {
	if f == nil {
		return defaultWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// NewRenderer returns a function that renders actor lines as markdown
// wrapped to width. The style follows the terminal background.
func NewRenderer(width int) (func(string) (string, error), error) {
	if width <= 0 {
		width = defaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

// RendererFor returns a renderer when out is a terminal and nil otherwise,
// so piped output stays plain text.
func RendererFor(out *os.File) func(string) (string, error) {
	if !IsTerminal(out) {
		return nil
	}
	r, err := NewRenderer(Width(out))
	if err != nil {
		return nil
	}
	return r
}
