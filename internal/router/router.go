// Package router maps URLs to typed routes and feeds matched navigations into
// a running process as incoming-route messages.
package router

// Match is what a route pattern extracted from a URL.
type Match struct {
	Path   string
	Params map[string]string
	// Query keeps the last value given for each key.
	Query map[string]string
}

// Definition binds a path pattern, in gin syntax, to a route constructor.
type Definition[R any] struct {
	Path      string
	MakeRoute func(m Match) R
}

// Router is the route table of an app.
type Router[R any] struct {
	Routes     []Definition[R]
	RouteToURL func(route R) string

	// NotFound, when set, builds the route for URLs no pattern matches.
	NotFound func(m Match) R
}
