// Package runtime runs an app: it holds the current state, applies
// dispatched messages, sequences deferred effects and notifies subscribers.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tinytelemetry/trellis/internal/app"
	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/router"
	"github.com/tinytelemetry/trellis/internal/state"
)

// StateSubscriber is called after every state replacement. It runs while the
// dispatch lock is held and must not call Dispatch or unsubscribe
// synchronously.
type StateSubscriber func(s *state.Record, dispatch component.Dispatch)

// MsgSubscriber is called for every dispatched message, before it is
// applied. The same restrictions as StateSubscriber apply.
type MsgSubscriber func(msg component.Msg)

// Options configures Start.
type Options struct {
	// InitialURL is routed once at start. Defaults to "/".
	InitialURL string

	// History defaults to an in-memory history.
	History router.History

	// MsgSubscribers are registered before the initial route is dispatched.
	MsgSubscribers []MsgSubscriber

	// Debug logs every message and every state snapshot.
	Debug  bool
	Logger *log.Logger
}

type job struct {
	effect component.Effect
	done   chan struct{}
}

type stateSub struct{ fn StateSubscriber }

type msgSub struct{ fn MsgSubscriber }

// Process is one running app.
type Process[R any] struct {
	mu        sync.Mutex
	current   atomic.Pointer[state.Record]
	update    component.UpdateFunc
	router    *router.Manager[R]
	dispatch  component.Dispatch
	stateSubs []*stateSub
	msgSubs   []*msgSub

	queue   []job
	tail    chan struct{}
	wake    chan struct{}
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	exited chan struct{}

	debug  bool
	logger *log.Logger
}

// Start initializes a, renders the initial state, starts the effect worker
// and routes opts.InitialURL. render may be nil.
func Start[R, V any](ctx context.Context, a app.Component[R, V], render StateSubscriber, opts Options) (*Process[R], error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.InitialURL == "" {
		opts.InitialURL = "/"
	}
	if opts.History == nil {
		opts.History = router.NewMemoryHistory(opts.InitialURL)
	}

	initial, initEffect := a.Init(struct{}{})
	if initial == nil {
		initial = state.New()
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Process[R]{
		update: a.Update,
		tail:   make(chan struct{}),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		exited: make(chan struct{}),
		debug:  opts.Debug,
		logger: opts.Logger,
	}
	close(p.tail)
	p.dispatch = p.Dispatch
	p.current.Store(initial)

	mgr, err := router.NewManager(a.Router(), opts.History, p.dispatch)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("runtime: start: %w", err)
	}
	p.router = mgr

	p.mu.Lock()
	for _, fn := range opts.MsgSubscribers {
		p.msgSubs = append(p.msgSubs, &msgSub{fn: fn})
	}
	if render != nil {
		p.stateSubs = append(p.stateSubs, &stateSub{fn: render})
	}
	p.replace(initial)
	if initEffect != nil {
		p.enqueue(initEffect)
	}
	p.mu.Unlock()

	go p.work()

	p.router.Open(opts.InitialURL, true)
	return p, nil
}

// Render adapts a view and a mount function into a StateSubscriber.
func Render[V any](view func(s *state.Record, dispatch component.Dispatch) V, mount func(V)) StateSubscriber {
	return func(s *state.Record, dispatch component.Dispatch) {
		mount(view(s, dispatch))
	}
}

// Dispatch applies msg synchronously and queues its effect. The returned
// channel closes once every effect queued so far has run.
func (p *Process[R]) Dispatch(msg component.Msg) component.Settled {
	if msg == nil {
		return component.Done()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.ctx.Err() != nil {
		p.logger.Printf("runtime: dispatch %q after stop ignored", msg.Tag())
		return component.Done()
	}
	p.apply(msg)
	return p.tail
}

// apply runs with p.mu held.
func (p *Process[R]) apply(msg component.Msg) {
	if p.debug {
		p.logger.Printf("runtime: dispatch %s %+v", msg.Tag(), msg)
	}
	for _, sub := range p.msgSubs {
		sub.fn(msg)
	}

	if incoming, handled := p.router.Navigate(msg); handled && incoming != nil {
		p.apply(incoming)
	}

	cur := p.current.Load()
	next, effect := p.update(cur, msg)
	if next == nil {
		next = cur
	}
	p.replace(next)
	if effect != nil {
		p.enqueue(effect)
	}
}

// replace runs with p.mu held.
func (p *Process[R]) replace(s *state.Record) {
	p.current.Store(s)
	if p.debug {
		if data, err := json.Marshal(s); err != nil {
			p.logger.Printf("runtime: state snapshot: %v", err)
		} else {
			p.logger.Printf("runtime: state %s", data)
		}
	}
	for _, sub := range p.stateSubs {
		sub.fn(s, p.dispatch)
	}
}

// enqueue runs with p.mu held.
func (p *Process[R]) enqueue(e component.Effect) {
	done := make(chan struct{})
	p.queue = append(p.queue, job{effect: e, done: done})
	p.tail = done
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// work runs queued effects one at a time, in the order they were queued.
func (p *Process[R]) work() {
	defer close(p.exited)
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.mu.Unlock()
			select {
			case <-p.wake:
				continue
			case <-p.ctx.Done():
				return
			}
		}
		j := p.queue[0]
		p.queue[0] = job{}
		p.queue = p.queue[1:]
		base := p.current.Load()
		p.mu.Unlock()

		if p.ctx.Err() != nil {
			close(j.done)
			continue
		}

		if next := j.effect(p.ctx, base, p.dispatch); next != nil {
			p.mu.Lock()
			if !p.stopped {
				p.commit(base, next)
			}
			p.mu.Unlock()
		}
		close(j.done)
	}
}

// commit lands an effect result computed from base. Dispatches applied while
// the effect ran are kept: only what the effect changed relative to base is
// written over the current state. It runs with p.mu held.
func (p *Process[R]) commit(base, next *state.Record) {
	cur := p.current.Load()
	if cur != base {
		var conflicts []state.Path
		next, conflicts = state.Rebase(base, next, cur)
		if len(conflicts) > 0 && (p.debug || component.Development()) {
			p.logger.Printf("runtime: effect result overwrote fields changed while it ran: %v", conflicts)
		}
		if next == cur {
			return
		}
	}
	p.replace(next)
}

// State returns the current state.
func (p *Process[R]) State() *state.Record {
	return p.current.Load()
}

// Idle returns a channel that closes once every effect queued so far has run.
func (p *Process[R]) Idle() component.Settled {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tail
}

// SubscribeState registers fn after the existing state subscribers and
// returns a function that removes it.
func (p *Process[R]) SubscribeState(fn StateSubscriber) func() {
	sub := &stateSub{fn: fn}
	p.mu.Lock()
	p.stateSubs = append(p.stateSubs, sub)
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.stateSubs = slices.DeleteFunc(slices.Clone(p.stateSubs), func(s *stateSub) bool { return s == sub })
	}
}

// SubscribeMsg registers fn after the existing message subscribers and
// returns a function that removes it.
func (p *Process[R]) SubscribeMsg(fn MsgSubscriber) func() {
	sub := &msgSub{fn: fn}
	p.mu.Lock()
	p.msgSubs = append(p.msgSubs, sub)
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.msgSubs = slices.DeleteFunc(slices.Clone(p.msgSubs), func(s *msgSub) bool { return s == sub })
	}
}

// Navigate pushes url, as a NewURL message would.
func (p *Process[R]) Navigate(url string) component.Settled {
	return p.Dispatch(component.NewURL{URL: url})
}

// Back re-routes the previous history entry without pushing a new one.
func (p *Process[R]) Back() bool {
	return p.router.Back()
}

// Forward is the inverse of Back.
func (p *Process[R]) Forward() bool {
	return p.router.Forward()
}

// Location is the current history entry.
func (p *Process[R]) Location() string {
	return p.router.Location()
}

// Stop cancels the effect context and waits for the worker to finish the
// effect it is running. Effects still queued are dropped and their Settled
// channels closed. Later dispatches are ignored.
func (p *Process[R]) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	<-p.exited

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, j := range p.queue {
		close(j.done)
	}
	p.queue = nil
}
