// Package page extends the component contract with page chrome and composes
// pages into an app state.
package page

import (
	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/state"
)

// Params is what a page receives on route entry.
type Params[RP any] struct {
	RoutePath   string
	RouteParams RP
	Shared      *state.Record
}

// Component is a component with page metadata. The other chrome projections
// are optional interfaces.
type Component[RP, V any] interface {
	component.Component[Params[RP], V]
	Metadata(s *state.Record) Metadata
}

// InitParams places a page into an app state.
type InitParams[RP any] struct {
	State        *state.Record
	PagePath     state.Path
	MetadataPath state.Path
	Params       Params[RP]
	MapMsg       func(component.Msg) component.Msg
}

// InitPage runs c.Init and stores the page at PagePath. The page metadata is
// written to MetadataPath before InitPage returns, and again whenever the
// init effect lands.
func InitPage[RP, V any](c Component[RP, V], p InitParams[RP]) (*state.Record, component.Effect) {
	pageState, initEffect := c.Init(p.Params)
	if pageState == nil {
		pageState = state.New()
	}
	sync := syncMetadata(c, p.PagePath, p.MetadataPath)
	s, _ := sync(p.State.Set(p.PagePath, pageState))
	return s, component.LiftEffect(initEffect, p.PagePath, p.MapMsg, sync)
}

// UpdateParams routes one message to a page stored in an app state.
type UpdateParams struct {
	State        *state.Record
	PagePath     state.Path
	MetadataPath state.Path
	Msg          component.Msg
	MapMsg       func(component.Msg) component.Msg
}

// UpdatePage forwards a local message to the page at PagePath and keeps the
// stored metadata in sync. Global messages are never forwarded.
func UpdatePage[RP, V any](c Component[RP, V], p UpdateParams) (*state.Record, component.Effect) {
	if component.IsGlobal(p.Msg) {
		return p.State, nil
	}
	return component.UpdateChild(component.ChildParams{
		State:       p.State,
		ChildPath:   p.PagePath,
		ChildUpdate: c.Update,
		ChildMsg:    p.Msg,
		MapChildMsg: p.MapMsg,
		After:       syncMetadata(c, p.PagePath, p.MetadataPath),
	})
}

func syncMetadata[RP, V any](c Component[RP, V], pagePath, metadataPath state.Path) component.AfterFunc {
	return func(s *state.Record) (*state.Record, component.Effect) {
		if len(metadataPath) == 0 {
			return s, nil
		}
		pageState, ok := s.Record(pagePath)
		if !ok {
			return s, nil
		}
		md := c.Metadata(pageState)
		if cur, ok := state.Value[Metadata](s, metadataPath); ok && cur == md {
			return s, nil
		}
		return s.Set(metadataPath, md), nil
	}
}

// Chrome is every projection of a page evaluated against its state, with
// messages already mapped into the parent's message space.
type Chrome[V any] struct {
	Metadata    Metadata
	Alerts      Alerts
	Breadcrumbs Breadcrumbs
	Modal       *Modal
	Actions     Actions
	Sidebar     *Sidebar[V]
}

// Project evaluates the chrome of c against its page state.
func Project[RP, V any](c Component[RP, V], s *state.Record, mapMsg func(component.Msg) component.Msg) Chrome[V] {
	ch := Chrome[V]{Metadata: c.Metadata(s)}
	if p, ok := c.(AlertsProvider); ok {
		ch.Alerts = MapAlerts(p.Alerts(s), mapMsg)
	}
	if p, ok := c.(BreadcrumbsProvider); ok {
		ch.Breadcrumbs = MapBreadcrumbs(p.Breadcrumbs(s), mapMsg)
	}
	if p, ok := c.(ModalProvider); ok {
		ch.Modal = MapModal(p.Modal(s), mapMsg)
	}
	if p, ok := c.(ActionsProvider); ok {
		ch.Actions = MapActions(p.Actions(s), mapMsg)
	}
	if p, ok := c.(SidebarProvider[V]); ok {
		sb := p.Sidebar()
		view := sb.View
		if view != nil {
			sb.View = func(s *state.Record, dispatch component.Dispatch) V {
				return view(s, component.MapDispatch(dispatch, mapMsg))
			}
		}
		ch.Sidebar = &sb
	}
	return ch
}
