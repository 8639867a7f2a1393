package app

import (
	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/page"
	"github.com/tinytelemetry/trellis/internal/state"
)

var (
	pagesKey             = state.At("pages")
	metadataPath         = state.At("metadata")
	incomingMetadataPath = state.At("incomingMetadata")
	sharedPath           = state.At("shared")
)

func pagePath(key string) state.Path {
	return pagesKey.Append(key)
}

// Binding is a page registered under a key, with its route parameter type
// erased so pages of different parameter types can sit in one Shell.
type Binding[R, V any] struct {
	key      string
	init     func(s *state.Record, route R, routePath string, md state.Path) (*state.Record, component.Effect)
	update   func(s *state.Record, msg component.Msg, md state.Path) (*state.Record, component.Effect)
	view     func(s *state.Record, dispatch component.Dispatch) V
	chrome   func(s *state.Record) page.Chrome[V]
	metadata func(s *state.Record) (page.Metadata, bool)
}

// Key is the page key, also the name of its state slot.
func (b Binding[R, V]) Key() string { return b.key }

// Bind registers c under key. params extracts the page's route parameters
// from a route.
func Bind[RP, R, V any](key string, c page.Component[RP, V], params func(R) RP) Binding[R, V] {
	path := pagePath(key)
	mapMsg := func(m component.Msg) component.Msg { return PageMsg{Page: key, Msg: m} }

	return Binding[R, V]{
		key: key,
		init: func(s *state.Record, route R, routePath string, md state.Path) (*state.Record, component.Effect) {
			shared, _ := s.Record(sharedPath)
			return page.InitPage(c, page.InitParams[RP]{
				State:        s,
				PagePath:     path,
				MetadataPath: md,
				Params: page.Params[RP]{
					RoutePath:   routePath,
					RouteParams: params(route),
					Shared:      shared,
				},
				MapMsg: mapMsg,
			})
		},
		update: func(s *state.Record, msg component.Msg, md state.Path) (*state.Record, component.Effect) {
			return page.UpdatePage(c, page.UpdateParams{
				State:        s,
				PagePath:     path,
				MetadataPath: md,
				Msg:          msg,
				MapMsg:       mapMsg,
			})
		},
		view: func(s *state.Record, dispatch component.Dispatch) V {
			ps, _ := s.Record(path)
			return c.View(ps, component.MapDispatch(dispatch, mapMsg))
		},
		chrome: func(s *state.Record) page.Chrome[V] {
			ps, _ := s.Record(path)
			return page.Project(c, ps, mapMsg)
		},
		metadata: func(s *state.Record) (page.Metadata, bool) {
			ps, ok := s.Record(path)
			if !ok {
				return page.Metadata{}, false
			}
			return c.Metadata(ps), true
		},
	}
}
