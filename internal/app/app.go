// Package app holds the root component contract and Shell, a root component
// that switches between pages as routes come in.
package app

import (
	"time"

	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/page"
	"github.com/tinytelemetry/trellis/internal/router"
	"github.com/tinytelemetry/trellis/internal/state"
)

// Component is the root of a running process.
type Component[R, V any] interface {
	component.Component[struct{}, V]
	Router() router.Router[R]
}

// Messages handled by Shell.
type (
	// PageMsg carries a message for the page bound to key Page.
	PageMsg struct {
		Page string
		Msg  component.Msg
	}

	// DismissToast removes the toast at Index.
	DismissToast struct{ Index int }

	// ShowModal opens an app-level modal above the page.
	ShowModal struct{ Modal page.Modal }

	// HideModal closes the app-level modal.
	HideModal struct{}

	pageReady struct{ Nav int }

	dismissLapsedToasts struct{}
)

func (PageMsg) Tag() string             { return "page" }
func (DismissToast) Tag() string        { return "dismissToast" }
func (ShowModal) Tag() string           { return "showModal" }
func (HideModal) Tag() string           { return "hideModal" }
func (pageReady) Tag() string           { return "pageReady" }
func (dismissLapsedToasts) Tag() string { return "dismissLapsedToasts" }

// Toast is a notification on screen.
type Toast struct {
	Kind  component.ToastKind `json:"kind"`
	Title string              `json:"title"`
	Body  string              `json:"body,omitempty"`
	At    time.Time           `json:"at"`
}

// Frame is everything a layout needs to draw one screen.
type Frame[R, V any] struct {
	Route    R
	HasRoute bool
	Page     string
	Phase    page.Phase

	// Body is the active page's view; HasBody is false before the first page
	// is ready.
	Body      V
	HasBody   bool
	Chrome    page.Chrome[V]
	PageState *state.Record

	Toasts   []Toast
	Modal    *page.Modal
	Dispatch component.Dispatch
}
