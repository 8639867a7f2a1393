package component

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/tinytelemetry/trellis/internal/state"
)

var development atomic.Bool

// SetDevelopment turns on logging of composition contract violations.
func SetDevelopment(on bool) {
	development.Store(on)
}

// Development reports whether SetDevelopment is on.
func Development() bool {
	return development.Load()
}

// MapMsg applies fn to local messages. Global messages pass through so the
// runtime recognizes them however deeply the sender is nested.
func MapMsg(msg Msg, fn func(Msg) Msg) Msg {
	if fn == nil || IsGlobal(msg) {
		return msg
	}
	return fn(msg)
}

// MapDispatch returns a Dispatch that remaps messages through fn before
// handing them to d.
func MapDispatch(d Dispatch, fn func(Msg) Msg) Dispatch {
	if fn == nil {
		return d
	}
	return func(msg Msg) Settled {
		return d(MapMsg(msg, fn))
	}
}

// AfterFunc is a second update pass over the parent state, run right after a
// child's state has been merged into it.
type AfterFunc func(s *state.Record) (*state.Record, Effect)

// ChildParams describes one child update threaded through a parent state.
type ChildParams struct {
	State       *state.Record
	ChildPath   state.Path
	ChildUpdate UpdateFunc
	ChildMsg    Msg
	MapChildMsg func(Msg) Msg

	// After is optional.
	After AfterFunc
}

// UpdateChild runs ChildUpdate on the Record at ChildPath and writes the
// result back. When there is no Record at ChildPath the parent state is
// returned as is.
func UpdateChild(p ChildParams) (*state.Record, Effect) {
	child, ok := p.State.Record(p.ChildPath)
	if !ok {
		if development.Load() {
			log.Printf("component: no child state at %q for message %q", p.ChildPath.String(), tagOf(p.ChildMsg))
		}
		return p.State, nil
	}

	next, childEffect := p.ChildUpdate(child, p.ChildMsg)
	if next == nil {
		next = child
	}
	s := p.State.Set(p.ChildPath, next)
	effect := LiftEffect(childEffect, p.ChildPath, p.MapChildMsg, p.After)

	if p.After == nil {
		return s, effect
	}
	s, afterEffect := p.After(s)
	return s, Sequence(effect, afterEffect)
}

// LiftEffect turns a child effect into one over the parent state. The lifted
// effect reads the child from whatever parent state it is given when it runs,
// dispatches through mapMsg, and returns the whole parent state. It returns
// nil when the child effect does, or when the child has since been removed.
// When after is set it is applied again to the merged state.
func LiftEffect(e Effect, path state.Path, mapMsg func(Msg) Msg, after AfterFunc) Effect {
	if e == nil {
		return nil
	}
	return func(ctx context.Context, ambient *state.Record, dispatch Dispatch) *state.Record {
		child, ok := ambient.Record(path)
		if !ok {
			return nil
		}
		next := Map(e, mapMsg)(ctx, child, dispatch)
		if next == nil {
			return nil
		}

		s := ambient.Set(path, next)
		if after != nil {
			var afterEffect Effect
			s, afterEffect = after(s)
			if afterEffect != nil {
				if again := afterEffect(ctx, s, dispatch); again != nil {
					s = again
				}
			}
		}
		if s == ambient {
			return nil
		}
		return s
	}
}

func tagOf(msg Msg) string {
	if msg == nil {
		return ""
	}
	return msg.Tag()
}
