package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/trellis/internal/app"
	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/page"
)

const (
	narrowWidth       = 80
	sidebarMediumSize = 30
	sidebarLargeSize  = 44
	maxModalWidth     = 64
)

var layoutKeys = DefaultKeyMap()

// Layout draws an app frame. It is meant as the Layout of an app.Shell whose
// pages produce Screens.
func Layout[R any](f app.Frame[R, Screen]) Screen {
	return Screen{
		Render: func(width, height int) string { return renderFrame(f, width, height) },
		Keys:   func(msg tea.KeyMsg) bool { return frameKeys(f, msg) },
		Busy:   !f.HasBody || f.Phase == page.Initializing || f.Body.Busy,
	}
}

// modalOf returns the modal on top: the app-level one wins over the page's.
func modalOf[R any](f app.Frame[R, Screen]) (m *page.Modal, appLevel bool) {
	if f.Modal != nil {
		return f.Modal, true
	}
	return f.Chrome.Modal, false
}

func send[R any](f app.Frame[R, Screen], msg component.Msg) {
	if msg != nil && f.Dispatch != nil {
		f.Dispatch(msg)
	}
}

func frameKeys[R any](f app.Frame[R, Screen], msg tea.KeyMsg) bool {
	if m, appLevel := modalOf(f); m != nil {
		modalKeys(f, m, appLevel, msg)
		return true
	}

	if f.HasBody && f.Body.HandleKey(msg) {
		return true
	}
	for _, a := range f.Chrome.Actions {
		if a.Key != "" && a.Msg != nil && msg.String() == a.Key {
			send(f, a.Msg)
			return true
		}
	}

	switch {
	case key.Matches(msg, layoutKeys.Up):
		crumbs := f.Chrome.Breadcrumbs
		for i := len(crumbs) - 2; i >= 0; i-- {
			if crumbs[i].OnSelect != nil {
				send(f, crumbs[i].OnSelect)
				return true
			}
		}
	case key.Matches(msg, layoutKeys.Dismiss):
		if len(f.Toasts) > 0 {
			send(f, app.DismissToast{Index: 0})
			return true
		}
		for _, group := range [][]page.Alert{f.Chrome.Alerts.Errors, f.Chrome.Alerts.Warnings, f.Chrome.Alerts.Info} {
			for _, a := range group {
				if a.Dismiss != nil {
					send(f, a.Dismiss)
					return true
				}
			}
		}
	}
	return false
}

// modalKeys handles keys while a modal is up. Modals swallow every key.
// Buttons are chosen by number. App-level modals have no owner to close
// them, so choosing a button also hides them.
func modalKeys[R any](f app.Frame[R, Screen], m *page.Modal, appLevel bool, msg tea.KeyMsg) {
	closeMsg := m.OnClose
	if appLevel && closeMsg == nil {
		closeMsg = app.HideModal{}
	}

	if key.Matches(msg, layoutKeys.Escape) {
		send(f, closeMsg)
		return
	}
	s := msg.String()
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return
	}
	i := int(s[0] - '1')
	if i >= len(m.Buttons) {
		return
	}
	send(f, m.Buttons[i].Msg)
	if appLevel {
		send(f, app.HideModal{})
	}
}

func renderFrame[R any](f app.Frame[R, Screen], width, height int) string {
	if m, _ := modalOf(f); m != nil {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, renderModal(m, width))
	}

	var sections []string
	if crumbs := renderBreadcrumbs(f.Chrome.Breadcrumbs, width); crumbs != "" {
		sections = append(sections, crumbs)
	}
	sections = append(sections, renderTitle(f, width))
	if !f.Chrome.Alerts.Empty() {
		sections = append(sections, renderAlerts(f.Chrome.Alerts, width))
	}

	var toasts string
	if len(f.Toasts) > 0 {
		toasts = renderToasts(f.Toasts, width)
	}

	used := 0
	for _, s := range sections {
		used += lipgloss.Height(s)
	}
	if toasts != "" {
		used += lipgloss.Height(toasts)
	}
	bodyHeight := max(height-used, 1)

	sections = append(sections, renderBody(f, width, bodyHeight))
	if toasts != "" {
		sections = append(sections, toasts)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderBreadcrumbs(crumbs page.Breadcrumbs, width int) string {
	if len(crumbs) == 0 {
		return ""
	}
	parts := make([]string, len(crumbs))
	for i, c := range crumbs {
		parts[i] = c.Text
	}
	return breadcrumbStyle.MaxWidth(width).Render(strings.Join(parts, " › "))
}

func renderTitle[R any](f app.Frame[R, Screen], width int) string {
	title := f.Chrome.Metadata.Title
	if f.HasBody && f.Phase == page.Initializing {
		frame := spinnerFrames[time.Now().UnixMilli()/spinnerInterval.Milliseconds()%int64(len(spinnerFrames))]
		title += " " + frame
	}
	left := titleStyle.Render(title)

	var actions []string
	for _, a := range f.Chrome.Actions {
		label := a.Text
		if a.Key != "" {
			label = fmt.Sprintf("[%s] %s", a.Key, a.Text)
		}
		actions = append(actions, lipgloss.NewStyle().Foreground(actionColor(a.Color)).Render(label))
	}
	right := strings.Join(actions, "  ")

	spacer := width - lipgloss.Width(left) - lipgloss.Width(right)
	if right == "" || spacer < 1 {
		return lipgloss.NewStyle().MaxWidth(width).Render(left)
	}
	return left + strings.Repeat(" ", spacer) + right
}

func renderAlerts(a page.Alerts, width int) string {
	var lines []string
	add := func(list []page.Alert, mark string, color lipgloss.Color) {
		style := lipgloss.NewStyle().Foreground(color).MaxWidth(width)
		for _, alert := range list {
			lines = append(lines, style.Render(mark+" "+alert.Text))
		}
	}
	add(a.Errors, "✗", ColorRed)
	add(a.Warnings, "!", ColorOrange)
	add(a.Info, "i", ColorBlue)
	return strings.Join(lines, "\n")
}

func renderBody[R any](f app.Frame[R, Screen], width, height int) string {
	if !f.HasBody {
		return renderLoadingPlaceholder(f.Chrome.Metadata.Title, width, height)
	}

	bodyWidth := width
	var sidebar string
	if sb := f.Chrome.Sidebar; sb != nil && sb.View != nil {
		hide := width < narrowWidth && sb.EmptyOnNarrow != nil && sb.EmptyOnNarrow(f.PageState)
		if !hide {
			size := sidebarMediumSize
			if sb.Size == page.SidebarLarge {
				size = sidebarLargeSize
			}
			size = min(size, width/2)
			inner := sb.View(f.PageState, f.Dispatch).View(size-2, height-2)
			sidebar = sectionStyle.Width(size - 2).Height(height - 2).Render(inner)
			bodyWidth = width - lipgloss.Width(sidebar)
		}
	}

	body := lipgloss.NewStyle().
		Width(bodyWidth).
		Height(height).
		MaxHeight(height).
		Render(f.Body.View(bodyWidth, height))
	if sidebar == "" {
		return body
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, body, sidebar)
}

func renderToasts(toasts []app.Toast, width int) string {
	boxes := make([]string, 0, len(toasts))
	for _, t := range toasts {
		text := lipgloss.NewStyle().Bold(true).Render(t.Title)
		if t.Body != "" {
			text += " " + t.Body
		}
		boxes = append(boxes, toastStyle.BorderForeground(toastColor(t.Kind)).Render(text))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Bottom, boxes...)
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, row)
}

func renderModal(m *page.Modal, width int) string {
	w := min(width-8, maxModalWidth)
	if w < 20 {
		w = max(width-2, 1)
	}

	parts := []string{titleStyle.Render(m.Title)}
	if m.Body != "" {
		parts = append(parts, "", lipgloss.NewStyle().Width(w-4).Render(m.Body))
	}
	if len(m.Buttons) > 0 {
		buttons := make([]string, len(m.Buttons))
		for i, b := range m.Buttons {
			buttons[i] = lipgloss.NewStyle().Foreground(actionColor(b.Color)).Render(fmt.Sprintf("[%d] %s", i+1, b.Text))
		}
		parts = append(parts, "", strings.Join(buttons, "  "))
	}
	parts = append(parts, helpStyle.Render("esc: close"))

	return modalStyle.Width(w - 2).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
