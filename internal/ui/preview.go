package ui

import (
	"os"

	"github.com/charmbracelet/glamour"
)

// IsInteractive checks if stdout is a terminal.
func IsInteractive() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// RenderMarkdown renders Markdown for the terminal. Without a terminal the
// "notty" style keeps output free of escape sequences.
func RenderMarkdown(md string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	style := glamour.WithStandardStyle("notty")
	if IsInteractive() {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
