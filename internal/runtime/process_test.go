package runtime

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/trellis/internal/app"
	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/page"
	"github.com/tinytelemetry/trellis/internal/router"
	"github.com/tinytelemetry/trellis/internal/state"
)

var (
	logPath   = state.At("log")
	valuePath = state.At("value")
)

// stepMsg appends "sync:<Name>" when applied. With Async set its effect
// waits for Delay and Gate, then dispatches doneMsg.
type stepMsg struct {
	Name  string
	Async bool
	Delay time.Duration
	Gate  chan struct{}
}

type doneMsg struct{ Name string }

// setMsg's effect stores Value, after Gate closes when Gate is set.
type setMsg struct {
	Value string
	Gate  chan struct{}
}

func (stepMsg) Tag() string { return "step" }
func (doneMsg) Tag() string { return "done" }
func (setMsg) Tag() string  { return "set" }

func appendLog(s *state.Record, entry string) *state.Record {
	return s.Update(logPath, func(v any, _ bool) any {
		l, _ := v.([]string)
		return append(slices.Clone(l), entry)
	})
}

func logOf(s *state.Record) []string {
	l, _ := state.Value[[]string](s, logPath)
	return l
}

type testApp struct {
	component.Funcs[struct{}, string]
	router router.Router[string]
}

func (a testApp) Router() router.Router[string] { return a.router }

func newTestApp() testApp {
	return testApp{
		Funcs: component.Funcs[struct{}, string]{
			UpdateFn: updateTest,
			ViewFn: func(s *state.Record, _ component.Dispatch) string {
				return strings.Join(logOf(s), ",")
			},
		},
		router: router.Router[string]{
			Routes: []router.Definition[string]{
				{Path: "/", MakeRoute: func(router.Match) string { return "home" }},
				{Path: "/items/:id", MakeRoute: func(m router.Match) string { return "item:" + m.Params["id"] }},
			},
			RouteToURL: func(r string) string {
				if id, ok := strings.CutPrefix(r, "item:"); ok {
					return "/items/" + id
				}
				return "/"
			},
		},
	}
}

func updateTest(s *state.Record, msg component.Msg) (*state.Record, component.Effect) {
	switch m := msg.(type) {
	case component.IncomingRoute[string]:
		return appendLog(s, "route:"+m.Route), nil
	case stepMsg:
		s = appendLog(s, "sync:"+m.Name)
		if !m.Async {
			return s, nil
		}
		return s, func(ctx context.Context, _ *state.Record, dispatch component.Dispatch) *state.Record {
			if m.Delay > 0 {
				select {
				case <-time.After(m.Delay):
				case <-ctx.Done():
					return nil
				}
			}
			if m.Gate != nil {
				select {
				case <-m.Gate:
				case <-ctx.Done():
					return nil
				}
			}
			dispatch(doneMsg{Name: m.Name})
			return nil
		}
	case doneMsg:
		return appendLog(s, "effect:"+m.Name), nil
	case setMsg:
		return s, func(ctx context.Context, cur *state.Record, _ component.Dispatch) *state.Record {
			if m.Gate != nil {
				select {
				case <-m.Gate:
				case <-ctx.Done():
					return nil
				}
			}
			return cur.Set(valuePath, m.Value)
		}
	}
	return s, nil
}

func start(t *testing.T, url string, opts Options) *Process[string] {
	t.Helper()
	opts.InitialURL = url
	if opts.Logger == nil {
		opts.Logger = log.New(&bytes.Buffer{}, "", 0)
	}
	p, err := Start[string, string](context.Background(), newTestApp(), nil, opts)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(p.Stop)
	return p
}

func wait(t *testing.T, ch component.Settled) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("effects did not settle")
	}
}

func TestStartRoutesInitialURLOnce(t *testing.T) {
	t.Parallel()

	var renders []string
	render := Render(func(s *state.Record, _ component.Dispatch) string {
		return strings.Join(logOf(s), ",")
	}, func(v string) { renders = append(renders, v) })

	p, err := Start[string, string](context.Background(), newTestApp(), render, Options{
		InitialURL: "/items/7",
		Logger:     log.New(&bytes.Buffer{}, "", 0),
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop()

	if got := logOf(p.State()); !slices.Equal(got, []string{"route:item:7"}) {
		t.Fatalf("log = %v, want [route:item:7]", got)
	}
	if want := []string{"", "route:item:7"}; !slices.Equal(renders, want) {
		t.Fatalf("renders = %q, want %q", renders, want)
	}
	if got := p.Location(); got != "/items/7" {
		t.Fatalf("Location() = %q, want /items/7", got)
	}
}

func TestStartRegistersMsgSubscribersFirst(t *testing.T) {
	t.Parallel()

	var tags []string
	p := start(t, "/items/2", Options{
		MsgSubscribers: []MsgSubscriber{func(msg component.Msg) { tags = append(tags, msg.Tag()) }},
	})
	p.Dispatch(stepMsg{Name: "a"})

	if want := []string{component.TagIncomingRoute, "step"}; !slices.Equal(tags, want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
}

func TestStartRejectsBadRouter(t *testing.T) {
	t.Parallel()

	a := newTestApp()
	a.router.RouteToURL = nil
	if _, err := Start[string, string](context.Background(), a, nil, Options{}); err == nil {
		t.Fatal("Start() error = nil, want error")
	}
}

func TestNavigationEmitsOneIncomingRoute(t *testing.T) {
	t.Parallel()

	p := start(t, "/", Options{})
	var tags []string
	p.SubscribeMsg(func(msg component.Msg) { tags = append(tags, msg.Tag()) })

	wait(t, p.Navigate("/items/3"))
	if want := []string{component.TagNewURL, component.TagIncomingRoute}; !slices.Equal(tags, want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}

	tags = nil
	wait(t, p.Dispatch(component.ReplaceRoute[string]{Route: "item:4"}))
	if want := []string{component.TagReplaceRoute, component.TagIncomingRoute}; !slices.Equal(tags, want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	if got := p.Location(); got != "/items/4" {
		t.Fatalf("Location() = %q, want /items/4", got)
	}

	tags = nil
	wait(t, p.Navigate("/nowhere"))
	if want := []string{component.TagNewURL}; !slices.Equal(tags, want) {
		t.Fatalf("unmatched tags = %v, want %v", tags, want)
	}

	want := []string{"route:home", "route:item:3", "route:item:4"}
	if got := logOf(p.State()); !slices.Equal(got, want) {
		t.Fatalf("log = %v, want %v", got, want)
	}
}

func TestBackAndForward(t *testing.T) {
	t.Parallel()

	p := start(t, "/", Options{})
	p.Navigate("/items/1")
	p.Navigate("/items/2")

	if !p.Back() {
		t.Fatal("Back() = false, want true")
	}
	if got := p.Location(); got != "/items/1" {
		t.Fatalf("Location() after Back = %q, want /items/1", got)
	}
	if !p.Forward() {
		t.Fatal("Forward() = false, want true")
	}
	if p.Forward() {
		t.Fatal("Forward() at the end = true, want false")
	}

	want := []string{"route:home", "route:item:1", "route:item:2", "route:item:1", "route:item:2"}
	if got := logOf(p.State()); !slices.Equal(got, want) {
		t.Fatalf("log = %v, want %v", got, want)
	}
}

func TestMsgSubscribersSeeMessagesBeforeUpdate(t *testing.T) {
	t.Parallel()

	p := start(t, "/", Options{})
	var order []string
	p.SubscribeMsg(func(msg component.Msg) {
		order = append(order, fmt.Sprintf("first:%s:%d", msg.Tag(), len(logOf(p.State()))))
	})
	unsub := p.SubscribeMsg(func(msg component.Msg) { order = append(order, "second:"+msg.Tag()) })

	p.Dispatch(stepMsg{Name: "a"})
	unsub()
	p.Dispatch(stepMsg{Name: "b"})

	want := []string{"first:step:1", "second:step", "first:step:2"}
	if !slices.Equal(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestEffectsRunInDispatchOrder(t *testing.T) {
	t.Parallel()

	p := start(t, "/", Options{})
	var last component.Settled
	for i := 1; i <= 5; i++ {
		// Earlier effects take longer; completion order must still follow
		// dispatch order.
		last = p.Dispatch(stepMsg{
			Name:  fmt.Sprint(i),
			Async: true,
			Delay: time.Duration(6-i) * 5 * time.Millisecond,
		})
	}
	wait(t, last)

	var effects []string
	for _, e := range logOf(p.State()) {
		if strings.HasPrefix(e, "effect:") {
			effects = append(effects, e)
		}
	}
	want := []string{"effect:1", "effect:2", "effect:3", "effect:4", "effect:5"}
	if !slices.Equal(effects, want) {
		t.Fatalf("effects = %v, want %v", effects, want)
	}
}

func TestSyncPartLandsWhileEffectPending(t *testing.T) {
	t.Parallel()

	p := start(t, "/", Options{})
	gate := make(chan struct{})

	p.Dispatch(stepMsg{Name: "A"})
	settledB := p.Dispatch(stepMsg{Name: "B", Async: true, Gate: gate})
	settledC := p.Dispatch(stepMsg{Name: "C", Async: true})

	want := []string{"route:home", "sync:A", "sync:B", "sync:C"}
	if got := logOf(p.State()); !slices.Equal(got, want) {
		t.Fatalf("log before B settles = %v, want %v", got, want)
	}
	select {
	case <-settledB:
		t.Fatal("B settled before its gate opened")
	default:
	}

	close(gate)
	wait(t, settledC)
	select {
	case <-settledB:
	default:
		t.Fatal("C settled before B")
	}

	want = append(want, "effect:B", "effect:C")
	if got := logOf(p.State()); !slices.Equal(got, want) {
		t.Fatalf("log = %v, want %v", got, want)
	}
}

func TestEffectResultReplacesState(t *testing.T) {
	t.Parallel()

	p := start(t, "/", Options{})
	var seen []string
	p.SubscribeState(func(s *state.Record, _ component.Dispatch) {
		if v, ok := state.Value[string](s, valuePath); ok {
			seen = append(seen, v)
		}
	})

	wait(t, p.Dispatch(setMsg{Value: "x"}))
	wait(t, p.Idle())

	if got, _ := state.Value[string](p.State(), valuePath); got != "x" {
		t.Fatalf("value = %q, want x", got)
	}
	if !slices.Equal(seen, []string{"x"}) {
		t.Fatalf("subscriber saw %v, want [x]", seen)
	}
}

func TestEffectResultKeepsDispatchesAppliedMeanwhile(t *testing.T) {
	t.Parallel()

	p := start(t, "/", Options{})
	gate := make(chan struct{})
	p.Dispatch(setMsg{Value: "x", Gate: gate})
	p.Dispatch(stepMsg{Name: "a"})
	p.Dispatch(stepMsg{Name: "b"})
	close(gate)
	wait(t, p.Idle())

	if got, _ := state.Value[string](p.State(), valuePath); got != "x" {
		t.Fatalf("value = %q, want x", got)
	}
	want := []string{"route:home", "sync:a", "sync:b"}
	if got := logOf(p.State()); !slices.Equal(got, want) {
		t.Fatalf("log = %v, want %v", got, want)
	}
}

func TestEffectResultsInterleavedWithDispatches(t *testing.T) {
	t.Parallel()

	p := start(t, "/", Options{})
	const n = 500
	for i := range n {
		p.Dispatch(setMsg{Value: fmt.Sprint(i)})
		p.Dispatch(stepMsg{Name: fmt.Sprint(i)})
	}
	wait(t, p.Idle())

	syncs := 0
	for _, e := range logOf(p.State()) {
		if strings.HasPrefix(e, "sync:") {
			syncs++
		}
	}
	if syncs != n {
		t.Fatalf("sync entries = %d, want %d", syncs, n)
	}
	if got, _ := state.Value[string](p.State(), valuePath); got != fmt.Sprint(n-1) {
		t.Fatalf("value = %q, want %d", got, n-1)
	}
}

func TestConcurrentDispatchersSerialize(t *testing.T) {
	t.Parallel()

	p := start(t, "/", Options{})
	var g errgroup.Group
	for w := range 4 {
		g.Go(func() error {
			for i := range 25 {
				p.Dispatch(stepMsg{Name: fmt.Sprintf("%d-%d", w, i), Async: i%5 == 0})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("dispatchers: %v", err)
	}
	wait(t, p.Idle())

	var syncs, effects int
	for _, e := range logOf(p.State()) {
		switch {
		case strings.HasPrefix(e, "sync:"):
			syncs++
		case strings.HasPrefix(e, "effect:"):
			effects++
		}
	}
	if syncs != 100 {
		t.Fatalf("sync entries = %d, want 100", syncs)
	}
	if effects != 20 {
		t.Fatalf("effect entries = %d, want 20", effects)
	}
}

func TestStopClosesPendingSettled(t *testing.T) {
	t.Parallel()

	p := start(t, "/", Options{})
	blocked := p.Dispatch(stepMsg{Name: "blocked", Async: true, Gate: make(chan struct{})})
	queued := p.Dispatch(stepMsg{Name: "queued", Async: true})

	p.Stop()
	wait(t, blocked)
	wait(t, queued)

	before := p.State()
	wait(t, p.Dispatch(stepMsg{Name: "late"}))
	if p.State() != before {
		t.Fatal("dispatch after Stop changed state")
	}
	for _, e := range logOf(p.State()) {
		if strings.HasPrefix(e, "effect:") {
			t.Fatalf("log has %q after Stop, want no effects", e)
		}
	}
	p.Stop()
}

func TestDebugLogsMessagesAndSnapshots(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := start(t, "/", Options{Debug: true, Logger: log.New(&buf, "", 0)})
	p.Dispatch(stepMsg{Name: "a"})
	p.Stop()

	out := buf.String()
	for _, want := range []string{
		"runtime: dispatch @incomingRoute",
		"runtime: dispatch step",
		`runtime: state {"log":["route:home","sync:a"]}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("debug log missing %q:\n%s", want, out)
		}
	}
}

type pingMsg struct{}

func (pingMsg) Tag() string { return "ping" }

type notePage struct {
	mu   sync.Mutex
	seen []string
}

func (n *notePage) Init(page.Params[struct{}]) (*state.Record, component.Effect) {
	return state.New(), nil
}

func (n *notePage) Update(s *state.Record, msg component.Msg) (*state.Record, component.Effect) {
	n.mu.Lock()
	n.seen = append(n.seen, msg.Tag())
	n.mu.Unlock()
	return s, nil
}

func (n *notePage) View(*state.Record, component.Dispatch) string { return "notes" }

func (n *notePage) Metadata(*state.Record) page.Metadata { return page.Metadata{Title: "Notes"} }

func TestShellInterceptsToasts(t *testing.T) {
	t.Parallel()

	notes := &notePage{}
	rt := newTestApp().router
	sh, err := app.New(app.Config[string, string]{
		Router: rt,
		Pages: []app.Binding[string, string]{
			app.Bind("notes", page.Component[struct{}, string](notes), func(string) struct{} { return struct{}{} }),
		},
		KeyOf:         func(string) string { return "notes" },
		Layout:        func(f app.Frame[string, string]) string { return f.Chrome.Metadata.Title + ":" + f.Body },
		ToastDuration: time.Minute,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	var mu sync.Mutex
	var screen string
	render := Render(sh.View, func(v string) {
		mu.Lock()
		screen = v
		mu.Unlock()
	})
	p, err := Start[string, string](context.Background(), sh, render, Options{Logger: log.New(&bytes.Buffer{}, "", 0)})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop()

	p.Dispatch(component.Toast{Kind: component.ToastInfo, Title: "Saved"})
	p.Dispatch(app.PageMsg{Page: "notes", Msg: pingMsg{}})

	if got := app.Toasts(p.State()); len(got) != 1 || got[0].Title != "Saved" {
		t.Fatalf("toasts = %+v, want one titled Saved", got)
	}
	notes.mu.Lock()
	seen := slices.Clone(notes.seen)
	notes.mu.Unlock()
	if !slices.Equal(seen, []string{"ping"}) {
		t.Fatalf("page saw %v, want [ping]", seen)
	}
	mu.Lock()
	defer mu.Unlock()
	if screen != "Notes:notes" {
		t.Fatalf("screen = %q, want Notes:notes", screen)
	}
}
