package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/page"
)

var (
	ColorBlue   = lipgloss.Color("39")
	ColorGray   = lipgloss.Color("244")
	ColorRed    = lipgloss.Color("196")
	ColorOrange = lipgloss.Color("208")
	ColorGreen  = lipgloss.Color("42")
	ColorWhite  = lipgloss.Color("252")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	breadcrumbStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorGray)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBlue).
			Padding(0, 1)

	toastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func actionColor(c page.Color) lipgloss.Color {
	switch c {
	case page.ColorPrimary:
		return ColorBlue
	case page.ColorDanger:
		return ColorRed
	case page.ColorMuted:
		return ColorGray
	default:
		return ColorWhite
	}
}

func toastColor(k component.ToastKind) lipgloss.Color {
	switch k {
	case component.ToastSuccess:
		return ColorGreen
	case component.ToastWarning:
		return ColorOrange
	case component.ToastError:
		return ColorRed
	default:
		return ColorBlue
	}
}
