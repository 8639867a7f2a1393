package main

import (
	"net/url"
	"strings"

	"github.com/tinytelemetry/trellis/internal/router"
	"github.com/tinytelemetry/trellis/internal/state"
)

const (
	pageItems    = "items"
	pageItem     = "item"
	pageNotFound = "notFound"
)

// Route is a screen of the demo app.
type Route struct {
	Name  string
	ID    string
	Query string
	// Path is the URL a not-found route stands in for.
	Path string
}

func itemsRoute(query string) Route { return Route{Name: pageItems, Query: query} }

func itemRoute(id string) Route { return Route{Name: pageItem, ID: id} }

func notFoundRoute(path string) Route { return Route{Name: pageNotFound, Path: path} }

func routeKey(r Route) string { return r.Name }

func routeToURL(r Route) string {
	switch r.Name {
	case pageItems:
		if r.Query == "" {
			return "/items"
		}
		return "/items?" + url.Values{"q": {r.Query}}.Encode()
	case pageItem:
		return "/items/" + url.PathEscape(r.ID)
	default:
		if r.Path == "" {
			return "/404"
		}
		return "/404?" + url.Values{"path": {r.Path}}.Encode()
	}
}

func appRouter() router.Router[Route] {
	return router.Router[Route]{
		Routes: []router.Definition[Route]{
			{Path: "/", MakeRoute: func(router.Match) Route { return itemsRoute("") }},
			{Path: "/items", MakeRoute: func(m router.Match) Route { return itemsRoute(m.Query["q"]) }},
			{Path: "/items/:id", MakeRoute: func(m router.Match) Route { return itemRoute(m.Params["id"]) }},
			{Path: "/404", MakeRoute: func(m router.Match) Route { return notFoundRoute(m.Query["path"]) }},
		},
		RouteToURL: routeToURL,
		NotFound:   func(m router.Match) Route { return notFoundRoute(m.Path) },
	}
}

// guardRoute keeps reserved item ids, which start with an underscore, out of
// reach.
func guardRoute(_ *state.Record, r Route) (Route, bool) {
	if r.Name == pageItem && strings.HasPrefix(r.ID, "_") {
		return notFoundRoute(routeToURL(r)), false
	}
	return Route{}, true
}
