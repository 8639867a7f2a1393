package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/trellis/internal/component"
)

var ErrNoRouteToURL = errors.New("router: RouteToURL is nil")

var releaseMode sync.Once

type matchKey struct{}

type result[R any] struct {
	route R
	ok    bool
}

// Manager resolves URLs against a Router and keeps a History in step with
// navigation messages.
type Manager[R any] struct {
	router   Router[R]
	history  History
	engine   *gin.Engine
	dispatch component.Dispatch
}

// NewManager registers every route pattern. Patterns gin rejects, such as
// two parameters with different names at the same position, are reported as
// an error. dispatch receives the incoming routes of Open, Back and Forward.
func NewManager[R any](r Router[R], history History, dispatch component.Dispatch) (m *Manager[R], err error) {
	if r.RouteToURL == nil {
		return nil, ErrNoRouteToURL
	}
	if history == nil {
		history = NewMemoryHistory("/")
	}

	releaseMode.Do(func() { gin.SetMode(gin.ReleaseMode) })
	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	defer func() {
		if rec := recover(); rec != nil {
			m = nil
			err = fmt.Errorf("router: register routes: %v", rec)
		}
	}()
	for _, def := range r.Routes {
		if def.MakeRoute == nil {
			return nil, fmt.Errorf("router: route %q has no MakeRoute", def.Path)
		}
		build := def.MakeRoute
		engine.GET(def.Path, func(c *gin.Context) { resolveInto(c, build) })
	}
	if r.NotFound != nil {
		engine.NoRoute(func(c *gin.Context) { resolveInto(c, r.NotFound) })
	}

	return &Manager[R]{
		router:   r,
		history:  history,
		engine:   engine,
		dispatch: dispatch,
	}, nil
}

func resolveInto[R any](c *gin.Context, build func(Match) R) {
	res, _ := c.Request.Context().Value(matchKey{}).(*result[R])
	if res == nil {
		return
	}
	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}
	query := make(map[string]string)
	for k, vs := range c.Request.URL.Query() {
		if len(vs) > 0 {
			query[k] = vs[len(vs)-1]
		}
	}
	res.route = build(Match{Path: c.Request.URL.Path, Params: params, Query: query})
	res.ok = true
}

// Resolve matches rawURL without touching the history.
func (m *Manager[R]) Resolve(rawURL string) (R, bool) {
	var res result[R]
	u, err := url.Parse(rawURL)
	if err != nil {
		return res.route, false
	}
	if u.Path == "" {
		u.Path = "/"
	}
	ctx := context.WithValue(context.Background(), matchKey{}, &res)
	req := (&http.Request{Method: http.MethodGet, URL: u, Header: http.Header{}}).WithContext(ctx)
	m.engine.ServeHTTP(&discardWriter{}, req)
	return res.route, res.ok
}

// Location is the current history entry.
func (m *Manager[R]) Location() string {
	return m.history.Location()
}

// Navigate performs the history side of a navigation message and returns the
// incoming-route message to apply, or nil when the URL matches nothing.
// handled is false for messages that are not navigation messages.
func (m *Manager[R]) Navigate(msg component.Msg) (incoming component.Msg, handled bool) {
	if component.Classify(msg) != component.ClassNavigation {
		return nil, false
	}

	var target string
	replace := false
	switch nav := msg.(type) {
	case component.NewURL:
		target = nav.URL
	case component.ReplaceURL:
		target, replace = nav.URL, true
	case component.NewRoute[R]:
		target = m.router.RouteToURL(nav.Route)
	case component.ReplaceRoute[R]:
		target, replace = m.router.RouteToURL(nav.Route), true
	default:
		log.Printf("router: navigation message %T does not carry this router's route type", msg)
		return nil, true
	}

	if replace {
		m.history.Replace(target)
	} else {
		m.history.Push(target)
	}
	return m.incoming(target), true
}

func (m *Manager[R]) incoming(target string) component.Msg {
	route, ok := m.Resolve(target)
	if !ok {
		return nil
	}
	return component.IncomingRoute[R]{Route: route}
}

// Open records url in the history and dispatches its route. It reports
// whether the URL matched.
func (m *Manager[R]) Open(rawURL string, replace bool) bool {
	if replace {
		m.history.Replace(rawURL)
	} else {
		m.history.Push(rawURL)
	}
	return m.emit(rawURL)
}

// Back moves the history cursor back and dispatches that entry's route
// without pushing a new entry.
func (m *Manager[R]) Back() bool {
	target, ok := m.history.Back()
	if !ok {
		return false
	}
	return m.emit(target)
}

// Forward is the inverse of Back.
func (m *Manager[R]) Forward() bool {
	target, ok := m.history.Forward()
	if !ok {
		return false
	}
	return m.emit(target)
}

func (m *Manager[R]) emit(target string) bool {
	msg := m.incoming(target)
	if msg == nil {
		return false
	}
	if m.dispatch != nil {
		m.dispatch(msg)
	}
	return true
}

type discardWriter struct {
	header http.Header
}

func (w *discardWriter) Header() http.Header {
	if w.header == nil {
		w.header = http.Header{}
	}
	return w.header
}

func (w *discardWriter) Write(b []byte) (int, error) { return len(b), nil }

func (w *discardWriter) WriteHeader(int) {}
