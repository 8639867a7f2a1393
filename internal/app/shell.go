package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/page"
	"github.com/tinytelemetry/trellis/internal/router"
	"github.com/tinytelemetry/trellis/internal/state"
)

// DefaultToastDuration is how long a toast stays up when Config leaves it
// unset.
const DefaultToastDuration = 5 * time.Second

var (
	routePath       = state.At("route")
	incomingPath    = state.At("incoming")
	pageKeyPath     = state.At("pageKey")
	incomingKeyPath = state.At("incomingKey")
	navPath         = state.At("nav")
	phasePath       = state.At("phase")
	visitedPath     = state.At("visited")
	toastsPath      = state.At("toasts")
	modalPath       = state.At("modal")
)

// Config configures a Shell.
type Config[R, V any] struct {
	Router router.Router[R]
	Pages  []Binding[R, V]

	// KeyOf names the page that serves a route.
	KeyOf func(route R) string

	// Layout draws a frame. It is the Shell's view.
	Layout func(f Frame[R, V]) V

	// Guard may reject a route before its page is entered; the process is
	// then sent to redirect with a replace-route message.
	Guard func(shared *state.Record, route R) (redirect R, allow bool)

	// NotFound is where routes without a bound page are sent.
	NotFound *R

	Shared        func() *state.Record
	LoadingTitle  string
	ToastDuration time.Duration
	Now           func() time.Time
}

// Shell is a root component that mounts one page at a time.
type Shell[R, V any] struct {
	cfg      Config[R, V]
	bindings map[string]Binding[R, V]
}

// New validates cfg and builds a Shell.
func New[R, V any](cfg Config[R, V]) (*Shell[R, V], error) {
	if cfg.KeyOf == nil {
		return nil, errors.New("app: KeyOf is nil")
	}
	if cfg.Layout == nil {
		return nil, errors.New("app: Layout is nil")
	}
	if cfg.ToastDuration <= 0 {
		cfg.ToastDuration = DefaultToastDuration
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.LoadingTitle == "" {
		cfg.LoadingTitle = "Loading..."
	}

	bindings := make(map[string]Binding[R, V], len(cfg.Pages))
	for _, b := range cfg.Pages {
		if b.key == "" {
			return nil, errors.New("app: page bound without a key")
		}
		if _, dup := bindings[b.key]; dup {
			return nil, fmt.Errorf("app: page %q bound twice", b.key)
		}
		bindings[b.key] = b
	}
	return &Shell[R, V]{cfg: cfg, bindings: bindings}, nil
}

func (sh *Shell[R, V]) Router() router.Router[R] {
	return sh.cfg.Router
}

func (sh *Shell[R, V]) Init(struct{}) (*state.Record, component.Effect) {
	shared := state.New()
	if sh.cfg.Shared != nil {
		shared = sh.cfg.Shared()
	}
	s := state.New().
		Set(sharedPath, shared).
		Set(pagesKey, state.New()).
		Set(visitedPath, state.New()).
		Set(navPath, 0).
		Set(phasePath, page.Uninitialized).
		Set(metadataPath, page.Metadata{Title: sh.cfg.LoadingTitle})
	return s, nil
}

func (sh *Shell[R, V]) Update(s *state.Record, msg component.Msg) (*state.Record, component.Effect) {
	switch m := msg.(type) {
	case component.IncomingRoute[R]:
		return sh.enter(s, m.Route)
	case pageReady:
		return sh.ready(s, m.Nav), nil
	case PageMsg:
		return sh.updatePage(s, m)
	case component.Toast:
		return sh.addToast(s, m)
	case DismissToast:
		return sh.dismissToast(s, m.Index), nil
	case dismissLapsedToasts:
		return sh.dismissLapsed(s), nil
	case component.Reload:
		return sh.reload(s)
	case ShowModal:
		modal := m.Modal
		return s.Set(modalPath, &modal), nil
	case HideModal:
		return s.Delete(modalPath), nil
	}

	if component.Classify(msg) == component.ClassNavigation {
		// History and routing were handled before this update ran.
		return s, nil
	}
	log.Printf("app: unhandled message %q", msg.Tag())
	return s, nil
}

func (sh *Shell[R, V]) enter(s *state.Record, route R) (*state.Record, component.Effect) {
	if sh.cfg.Guard != nil {
		shared, _ := s.Record(sharedPath)
		if redirect, allow := sh.cfg.Guard(shared, route); !allow {
			return s, component.DispatchEffect(component.ReplaceRoute[R]{Route: redirect})
		}
	}

	key := sh.cfg.KeyOf(route)
	b, ok := sh.bindings[key]
	if !ok {
		if sh.cfg.NotFound != nil && sh.cfg.KeyOf(*sh.cfg.NotFound) != key {
			return s, component.DispatchEffect(component.ReplaceRoute[R]{Route: *sh.cfg.NotFound})
		}
		log.Printf("app: no page bound for %q", key)
		return s, nil
	}

	nav, _ := state.Value[int](s, navPath)
	nav++
	phase, err := PhaseOf(s).Next(page.EventEnter)
	if err != nil {
		log.Printf("app: enter %q: %v", key, err)
	}

	active, _ := state.Value[string](s, pageKeyPath)
	if prev, ok := state.Value[string](s, incomingKeyPath); ok && prev != key && prev != active {
		s = s.Delete(pagePath(prev))
	}

	s = s.Set(incomingPath, route).
		Set(incomingKeyPath, key).
		Set(navPath, nav).
		Set(phasePath, phase).
		Set(visitedPath.Append(key), true)

	s, initEffect := b.init(s, route, sh.cfg.Router.RouteToURL(route), sh.metadataTarget(s, key))
	if initEffect == nil {
		return sh.ready(s, nav), nil
	}
	guarded := func(ctx context.Context, cur *state.Record, dispatch component.Dispatch) *state.Record {
		if n, _ := state.Value[int](cur, navPath); n != nav {
			return nil
		}
		return initEffect(ctx, cur, dispatch)
	}
	return s, component.Sequence(guarded, component.DispatchEffect(pageReady{Nav: nav}))
}

// ready promotes the incoming page once its init has landed. A ready signal
// from a navigation that has since been superseded is ignored.
func (sh *Shell[R, V]) ready(s *state.Record, nav int) *state.Record {
	if cur, _ := state.Value[int](s, navPath); cur != nav {
		return s
	}
	key, ok := state.Value[string](s, incomingKeyPath)
	if !ok {
		return s
	}
	route, _ := s.Get(incomingPath)

	if old, ok := state.Value[string](s, pageKeyPath); ok && old != key {
		s = s.Delete(pagePath(old))
	}

	phase, err := PhaseOf(s).Next(page.EventResolve)
	if err != nil {
		log.Printf("app: ready %q: %v", key, err)
		phase = page.Ready
	}
	s = s.Set(routePath, route).
		Set(pageKeyPath, key).
		Set(phasePath, phase).
		Delete(incomingPath).
		Delete(incomingKeyPath)

	s = s.Delete(incomingMetadataPath)
	if md, ok := sh.bindings[key].metadata(s); ok {
		s = s.Set(metadataPath, md)
	}
	return s
}

// metadataTarget is where the page bound to key writes its metadata. While
// another page is still on screen, the title stays that page's until the
// incoming one is ready.
func (sh *Shell[R, V]) metadataTarget(s *state.Record, key string) state.Path {
	if incoming, _ := state.Value[string](s, incomingKeyPath); incoming != key {
		return metadataPath
	}
	if active, ok := state.Value[string](s, pageKeyPath); ok && active != key && s.Has(pagePath(active)) {
		return incomingMetadataPath
	}
	return metadataPath
}

// promoteMetadata wraps an effect that writes to incomingMetadata. If the page
// became active while the effect ran, the metadata it wrote is moved to the
// title.
func promoteMetadata(e component.Effect, key string) component.Effect {
	return func(ctx context.Context, cur *state.Record, dispatch component.Dispatch) *state.Record {
		next := e(ctx, cur, dispatch)
		if next == nil {
			return nil
		}
		if active, _ := state.Value[string](next, pageKeyPath); active != key {
			return next
		}
		md, ok := next.Get(incomingMetadataPath)
		if !ok {
			return next
		}
		return next.Set(metadataPath, md).Delete(incomingMetadataPath)
	}
}

func (sh *Shell[R, V]) updatePage(s *state.Record, m PageMsg) (*state.Record, component.Effect) {
	b, ok := sh.bindings[m.Page]
	if !ok {
		log.Printf("app: message %q for unknown page %q", tagOf(m.Msg), m.Page)
		return s, nil
	}
	if !s.Has(pagePath(m.Page)) {
		// Messages for a page that has been torn down are dropped.
		return s, nil
	}

	phase := PhaseOf(s)
	if next, err := phase.Next(page.EventMessage); err == nil {
		phase = next
	}
	md := sh.metadataTarget(s, m.Page)
	s, effect := b.update(s, m.Msg, md)
	if effect != nil && slices.Equal(md, incomingMetadataPath) {
		effect = promoteMetadata(effect, m.Page)
	}
	if next, err := phase.Next(page.EventSettle); err == nil {
		phase = next
	}
	return s.Set(phasePath, phase), effect
}

func (sh *Shell[R, V]) reload(s *state.Record) (*state.Record, component.Effect) {
	route, ok := state.Value[R](s, routePath)
	if !ok {
		return s, nil
	}
	return s, component.DispatchEffect(component.IncomingRoute[R]{Route: route})
}

func (sh *Shell[R, V]) addToast(s *state.Record, m component.Toast) (*state.Record, component.Effect) {
	cur := Toasts(s)
	next := make([]Toast, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, Toast{Kind: m.Kind, Title: m.Title, Body: m.Body, At: sh.cfg.Now()})
	return s.Set(toastsPath, next), component.DelayedDispatch(sh.cfg.ToastDuration+time.Millisecond, dismissLapsedToasts{})
}

func (sh *Shell[R, V]) dismissToast(s *state.Record, index int) *state.Record {
	cur := Toasts(s)
	if index < 0 || index >= len(cur) {
		return s
	}
	next := make([]Toast, 0, len(cur)-1)
	next = append(next, cur[:index]...)
	next = append(next, cur[index+1:]...)
	return s.Set(toastsPath, next)
}

func (sh *Shell[R, V]) dismissLapsed(s *state.Record) *state.Record {
	cur := Toasts(s)
	now := sh.cfg.Now()
	var next []Toast
	for _, t := range cur {
		if now.Sub(t.At) < sh.cfg.ToastDuration {
			next = append(next, t)
		}
	}
	if len(next) == len(cur) {
		return s
	}
	return s.Set(toastsPath, next)
}

func (sh *Shell[R, V]) View(s *state.Record, dispatch component.Dispatch) V {
	f := Frame[R, V]{
		Phase:    PhaseOf(s),
		Toasts:   Toasts(s),
		Dispatch: dispatch,
	}
	f.Modal, _ = state.Value[*page.Modal](s, modalPath)
	f.Route, f.HasRoute = state.Value[R](s, routePath)

	key, ok := state.Value[string](s, pageKeyPath)
	if b, bound := sh.bindings[key]; ok && bound && s.Has(pagePath(key)) {
		f.Page = key
		f.Body = b.view(s, dispatch)
		f.HasBody = true
		f.Chrome = b.chrome(s)
		f.PageState, _ = s.Record(pagePath(key))
	}
	if md, ok := state.Value[page.Metadata](s, metadataPath); ok {
		f.Chrome.Metadata = md
	}
	return sh.cfg.Layout(f)
}

// Toasts returns the toasts currently in s.
func Toasts(s *state.Record) []Toast {
	t, _ := state.Value[[]Toast](s, toastsPath)
	return t
}

// Metadata returns the metadata of the current page.
func Metadata(s *state.Record) page.Metadata {
	md, _ := state.Value[page.Metadata](s, metadataPath)
	return md
}

// ActiveRoute returns the route of the page on screen.
func ActiveRoute[R any](s *state.Record) (R, bool) {
	return state.Value[R](s, routePath)
}

// PhaseOf returns the lifecycle phase of the current navigation.
func PhaseOf(s *state.Record) page.Phase {
	p, _ := state.Value[page.Phase](s, phasePath)
	return p
}

// PagePhase returns the phase of the page bound to key.
func PagePhase(s *state.Record, key string) page.Phase {
	if k, _ := state.Value[string](s, incomingKeyPath); k == key {
		return page.Initializing
	}
	if k, _ := state.Value[string](s, pageKeyPath); k == key && s.Has(pagePath(key)) {
		if s.Has(incomingKeyPath) {
			// Still on screen while another page initializes.
			return page.Ready
		}
		return PhaseOf(s)
	}
	if s.Has(visitedPath.Append(key)) {
		return page.TornDown
	}
	return page.Uninitialized
}

func tagOf(msg component.Msg) string {
	if msg == nil {
		return ""
	}
	return msg.Tag()
}
