package main

import (
	"fmt"

	"github.com/tinytelemetry/trellis/internal/app"
	"github.com/tinytelemetry/trellis/internal/page"
	"github.com/tinytelemetry/trellis/internal/state"
	"github.com/tinytelemetry/trellis/internal/tui"
)

// newShell binds the catalog pages to the app router.
func newShell(c *Catalog, cfg appConfig) (*app.Shell[Route, tui.Screen], error) {
	notFound := notFoundRoute("")
	sh, err := app.New(app.Config[Route, tui.Screen]{
		Router: appRouter(),
		Pages: []app.Binding[Route, tui.Screen]{
			app.Bind(pageItems, page.Component[string, tui.Screen](newItemsPage(c)), func(r Route) string { return r.Query }),
			app.Bind(pageItem, page.Component[string, tui.Screen](&itemPage{catalog: c}), func(r Route) string { return r.ID }),
			app.Bind(pageNotFound, page.Component[string, tui.Screen](notFoundPage{}), func(r Route) string { return r.Path }),
		},
		KeyOf:    routeKey,
		Layout:   tui.Layout[Route],
		Guard:    guardRoute,
		NotFound: &notFound,
		Shared: func() *state.Record {
			return state.Wrap(map[string]any{"app": "trellis", "version": version})
		},
		LoadingTitle:  "Loading",
		ToastDuration: cfg.ToastDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("trellis: build shell: %w", err)
	}
	return sh, nil
}
