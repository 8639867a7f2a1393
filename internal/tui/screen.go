// Package tui draws a running process in the terminal with bubbletea. Pages
// produce Screens; Layout wraps the active page's Screen in the app chrome;
// Model hosts the result and forwards key presses back into the process.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Screen is the view type of terminal pages. Render and Keys may be nil.
type Screen struct {
	Render func(width, height int) string
	// Keys handles a key press and reports whether it was consumed.
	Keys func(msg tea.KeyMsg) bool
	// Busy asks the host to keep animating while something loads.
	Busy bool
}

// Text is a Screen that draws fixed content.
func Text(s string) Screen {
	return Screen{Render: func(width, height int) string {
		return lipgloss.NewStyle().MaxWidth(width).MaxHeight(height).Render(s)
	}}
}

// View draws s in a width x height box.
func (s Screen) View(width, height int) string {
	if s.Render == nil || width <= 0 || height <= 0 {
		return ""
	}
	return s.Render(width, height)
}

// HandleKey offers msg to s.
func (s Screen) HandleKey(msg tea.KeyMsg) bool {
	return s.Keys != nil && s.Keys(msg)
}
