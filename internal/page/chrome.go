package page

import (
	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/state"
)

// Metadata describes the page as a whole.
type Metadata struct {
	Title string `json:"title"`
}

// Alert is a message shown above the page body.
type Alert struct {
	Text    string
	Dismiss component.Msg
}

// Alerts groups alerts by severity.
type Alerts struct {
	Info     []Alert
	Warnings []Alert
	Errors   []Alert
}

// Empty reports whether there is nothing to show.
func (a Alerts) Empty() bool {
	return len(a.Info) == 0 && len(a.Warnings) == 0 && len(a.Errors) == 0
}

// Breadcrumb is one step of the page trail. OnSelect may be nil for the
// current page.
type Breadcrumb struct {
	Text     string
	OnSelect component.Msg
}

type Breadcrumbs []Breadcrumb

// Color hints how a button or action is drawn.
type Color string

const (
	ColorDefault Color = ""
	ColorPrimary Color = "primary"
	ColorDanger  Color = "danger"
	ColorMuted   Color = "muted"
)

// Button is a modal button.
type Button struct {
	Text  string
	Color Color
	Msg   component.Msg
}

// Modal is a dialog drawn over the page.
type Modal struct {
	Title   string
	Body    string
	Buttons []Button
	OnClose component.Msg
}

// Action is a contextual command offered next to the page title.
type Action struct {
	Text  string
	Key   string
	Color Color
	Msg   component.Msg
}

type Actions []Action

// SidebarSize is the preferred width class of a sidebar.
type SidebarSize string

const (
	SidebarMedium SidebarSize = "medium"
	SidebarLarge  SidebarSize = "large"
)

// Sidebar is an extra pane rendered next to the page body.
type Sidebar[V any] struct {
	Size          SidebarSize
	View          func(s *state.Record, dispatch component.Dispatch) V
	EmptyOnNarrow func(s *state.Record) bool
}

// Optional projections. A page implements whichever it needs.
type (
	AlertsProvider interface {
		Alerts(s *state.Record) Alerts
	}
	BreadcrumbsProvider interface {
		Breadcrumbs(s *state.Record) Breadcrumbs
	}
	ModalProvider interface {
		Modal(s *state.Record) *Modal
	}
	ActionsProvider interface {
		Actions(s *state.Record) Actions
	}
	SidebarProvider[V any] interface {
		Sidebar() Sidebar[V]
	}
)

func mapAlertList(list []Alert, fn func(component.Msg) component.Msg) []Alert {
	if len(list) == 0 {
		return nil
	}
	out := make([]Alert, len(list))
	for i, a := range list {
		out[i] = Alert{Text: a.Text, Dismiss: mapMsg(a.Dismiss, fn)}
	}
	return out
}

// MapAlerts remaps the dismiss messages of every alert.
func MapAlerts(a Alerts, fn func(component.Msg) component.Msg) Alerts {
	return Alerts{
		Info:     mapAlertList(a.Info, fn),
		Warnings: mapAlertList(a.Warnings, fn),
		Errors:   mapAlertList(a.Errors, fn),
	}
}

// MapBreadcrumbs remaps breadcrumb messages.
func MapBreadcrumbs(b Breadcrumbs, fn func(component.Msg) component.Msg) Breadcrumbs {
	if len(b) == 0 {
		return nil
	}
	out := make(Breadcrumbs, len(b))
	for i, c := range b {
		out[i] = Breadcrumb{Text: c.Text, OnSelect: mapMsg(c.OnSelect, fn)}
	}
	return out
}

// MapModal remaps the close and button messages of m.
func MapModal(m *Modal, fn func(component.Msg) component.Msg) *Modal {
	if m == nil {
		return nil
	}
	out := &Modal{Title: m.Title, Body: m.Body, OnClose: mapMsg(m.OnClose, fn)}
	for _, b := range m.Buttons {
		out.Buttons = append(out.Buttons, Button{Text: b.Text, Color: b.Color, Msg: mapMsg(b.Msg, fn)})
	}
	return out
}

// MapActions remaps action messages.
func MapActions(a Actions, fn func(component.Msg) component.Msg) Actions {
	if len(a) == 0 {
		return nil
	}
	out := make(Actions, len(a))
	for i, act := range a {
		act.Msg = mapMsg(act.Msg, fn)
		out[i] = act
	}
	return out
}

func mapMsg(msg component.Msg, fn func(component.Msg) component.Msg) component.Msg {
	if msg == nil {
		return nil
	}
	return component.MapMsg(msg, fn)
}
