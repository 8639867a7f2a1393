package router

import (
	"reflect"
	"testing"

	"github.com/tinytelemetry/trellis/internal/component"
)

type route struct {
	Name string
	ID   string
	Tab  string
}

func testRouter() Router[route] {
	return Router[route]{
		Routes: []Definition[route]{
			{Path: "/", MakeRoute: func(Match) route { return route{Name: "home"} }},
			{Path: "/items", MakeRoute: func(m Match) route { return route{Name: "items", Tab: m.Query["tab"]} }},
			{Path: "/items/:id", MakeRoute: func(m Match) route { return route{Name: "item", ID: m.Params["id"]} }},
			{Path: "/items/:id/edit", MakeRoute: func(m Match) route { return route{Name: "edit", ID: m.Params["id"]} }},
		},
		RouteToURL: func(r route) string {
			switch r.Name {
			case "items":
				return "/items"
			case "item":
				return "/items/" + r.ID
			case "edit":
				return "/items/" + r.ID + "/edit"
			}
			return "/"
		},
	}
}

type recorder struct {
	msgs []component.Msg
}

func (r *recorder) dispatch(m component.Msg) component.Settled {
	r.msgs = append(r.msgs, m)
	return component.Done()
}

func newTestManager(t *testing.T, r Router[route]) (*Manager[route], *MemoryHistory, *recorder) {
	t.Helper()
	h := NewMemoryHistory("/")
	rec := &recorder{}
	m, err := NewManager(r, h, rec.dispatch)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, h, rec
}

func TestResolve(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestManager(t, testRouter())
	cases := []struct {
		url    string
		want   route
		wantOK bool
	}{
		{"/", route{Name: "home"}, true},
		{"", route{Name: "home"}, true},
		{"/items?tab=a&tab=b", route{Name: "items", Tab: "b"}, true},
		{"/items/42", route{Name: "item", ID: "42"}, true},
		{"/items/42/edit", route{Name: "edit", ID: "42"}, true},
		{"/items/42/", route{}, false},
		{"/nowhere", route{}, false},
	}
	for _, tc := range cases {
		got, ok := m.Resolve(tc.url)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("Resolve(%q) = (%+v, %v), want (%+v, %v)", tc.url, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestResolve_NotFoundRoute(t *testing.T) {
	t.Parallel()

	r := testRouter()
	r.NotFound = func(m Match) route { return route{Name: "notFound", ID: m.Path} }
	m, _, _ := newTestManager(t, r)

	got, ok := m.Resolve("/nowhere")
	if !ok || got.Name != "notFound" || got.ID != "/nowhere" {
		t.Fatalf("Resolve(/nowhere) = (%+v, %v), want notFound route", got, ok)
	}
}

func TestNavigate_PushesAndReturnsOneIncomingRoute(t *testing.T) {
	t.Parallel()

	m, h, rec := newTestManager(t, testRouter())

	incoming, handled := m.Navigate(component.NewURL{URL: "/items/1"})
	if !handled {
		t.Fatal("NewURL not handled")
	}
	in, ok := incoming.(component.IncomingRoute[route])
	if !ok || in.Route != (route{Name: "item", ID: "1"}) {
		t.Fatalf("incoming = %#v, want item 1", incoming)
	}

	incoming, _ = m.Navigate(component.ReplaceRoute[route]{Route: route{Name: "edit", ID: "1"}})
	if in := incoming.(component.IncomingRoute[route]); in.Route.Name != "edit" {
		t.Fatalf("incoming route = %+v, want edit", in.Route)
	}

	if got, want := h.Entries(), []string{"/", "/items/1/edit"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	if len(rec.msgs) != 0 {
		t.Fatalf("Navigate dispatched %d messages itself, want 0", len(rec.msgs))
	}
}

func TestNavigate_IgnoresOtherMessages(t *testing.T) {
	t.Parallel()

	m, h, _ := newTestManager(t, testRouter())
	for _, msg := range []component.Msg{component.Reload{}, component.Toast{}, component.IncomingRoute[route]{}} {
		if _, handled := m.Navigate(msg); handled {
			t.Fatalf("Navigate handled %s", msg.Tag())
		}
	}
	if got := len(h.Entries()); got != 1 {
		t.Fatalf("history length = %d, want 1", got)
	}
}

func TestNavigate_UnmatchedURLYieldsNothing(t *testing.T) {
	t.Parallel()

	m, h, _ := newTestManager(t, testRouter())
	incoming, handled := m.Navigate(component.NewURL{URL: "/missing"})
	if !handled || incoming != nil {
		t.Fatalf("Navigate(/missing) = (%v, %v), want (nil, true)", incoming, handled)
	}
	if got := h.Location(); got != "/missing" {
		t.Fatalf("location = %q, want /missing", got)
	}
}

func TestOpenBackForward(t *testing.T) {
	t.Parallel()

	m, h, rec := newTestManager(t, testRouter())

	if !m.Open("/", true) {
		t.Fatal("Open(/) did not match")
	}
	m.Open("/items", false)
	m.Open("/items/3", false)

	if !m.Back() {
		t.Fatal("Back failed")
	}
	if !m.Forward() {
		t.Fatal("Forward failed")
	}
	if m.Forward() {
		t.Fatal("Forward past the end succeeded")
	}

	if got, want := h.Entries(), []string{"/", "/items", "/items/3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("history = %v, want %v", got, want)
	}

	var names []string
	for _, msg := range rec.msgs {
		names = append(names, msg.(component.IncomingRoute[route]).Route.Name)
	}
	if want := []string{"home", "items", "item", "items", "item"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("dispatched routes = %v, want %v", names, want)
	}
}

func TestNewManager_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewManager(Router[route]{}, nil, nil); err == nil {
		t.Fatal("missing RouteToURL accepted")
	}

	r := testRouter()
	r.Routes = append(r.Routes, Definition[route]{
		Path:      "/items/:other",
		MakeRoute: func(Match) route { return route{} },
	})
	if _, err := NewManager(r, nil, nil); err == nil {
		t.Fatal("conflicting wildcard accepted")
	}
}

func TestMemoryHistory_PushTruncatesForward(t *testing.T) {
	t.Parallel()

	h := NewMemoryHistory("/a")
	h.Push("/b")
	h.Push("/c")
	h.Back()
	h.Back()
	h.Push("/d")

	if got, want := h.Entries(), []string{"/a", "/d"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	if _, ok := h.Forward(); ok {
		t.Fatal("Forward after push succeeded")
	}
}
