// Package component defines the Init/Update/View contract, the message
// taxonomy, deferred effects and the helpers that compose child components
// into a parent's state tree.
package component

import (
	"context"

	"github.com/tinytelemetry/trellis/internal/state"
)

// Settled is closed once every effect queued up to and including a dispatch
// has finished.
type Settled <-chan struct{}

var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Done returns an already settled channel.
func Done() Settled { return closed }

// Dispatch delivers a message to the running process.
type Dispatch func(Msg) Settled

// Effect is the deferred part of an update. It runs after the synchronous
// part has landed, receives the state current at that moment, and returns a
// replacement state or nil for no change. ctx is cancelled only when the
// process stops.
//
// An effect must not wait on the Settled of a dispatch it makes itself; that
// channel closes only after the effect returns.
type Effect func(ctx context.Context, s *state.Record, dispatch Dispatch) *state.Record

// UpdateFunc applies one message to a state.
type UpdateFunc func(s *state.Record, msg Msg) (*state.Record, Effect)

// Component is the unit of composition.
type Component[P, V any] interface {
	Init(params P) (*state.Record, Effect)
	Update(s *state.Record, msg Msg) (*state.Record, Effect)
	View(s *state.Record, dispatch Dispatch) V
}

// Funcs adapts plain functions to Component.
type Funcs[P, V any] struct {
	InitFn   func(params P) (*state.Record, Effect)
	UpdateFn UpdateFunc
	ViewFn   func(s *state.Record, dispatch Dispatch) V
}

func (f Funcs[P, V]) Init(params P) (*state.Record, Effect) {
	if f.InitFn == nil {
		return state.New(), nil
	}
	return f.InitFn(params)
}

func (f Funcs[P, V]) Update(s *state.Record, msg Msg) (*state.Record, Effect) {
	if f.UpdateFn == nil {
		return s, nil
	}
	return f.UpdateFn(s, msg)
}

func (f Funcs[P, V]) View(s *state.Record, dispatch Dispatch) V {
	if f.ViewFn == nil {
		var zero V
		return zero
	}
	return f.ViewFn(s, dispatch)
}
