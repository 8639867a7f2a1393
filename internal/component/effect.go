package component

import (
	"context"
	"sync"
	"time"

	"github.com/tinytelemetry/trellis/internal/state"
)

// DispatchEffect dispatches msgs in order once the effect runs.
func DispatchEffect(msgs ...Msg) Effect {
	if len(msgs) == 0 {
		return nil
	}
	return func(_ context.Context, _ *state.Record, dispatch Dispatch) *state.Record {
		for _, msg := range msgs {
			dispatch(msg)
		}
		return nil
	}
}

// DelayedDispatch dispatches msg after d. The effect itself returns at once,
// so the effect queue is not held up while the timer runs. Nothing is sent
// if the process stops first.
func DelayedDispatch(d time.Duration, msg Msg) Effect {
	return func(ctx context.Context, _ *state.Record, dispatch Dispatch) *state.Record {
		go func() {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
				dispatch(msg)
			}
		}()
		return nil
	}
}

// Debouncer collapses bursts of messages into the last one.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// Debounce returns a Debouncer that waits delay after the last call.
func Debounce(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Effect schedules msg, replacing any message still waiting.
func (db *Debouncer) Effect(msg Msg) Effect {
	return func(ctx context.Context, _ *state.Record, dispatch Dispatch) *state.Record {
		db.mu.Lock()
		defer db.mu.Unlock()
		if db.timer != nil {
			db.timer.Stop()
		}
		db.timer = time.AfterFunc(db.delay, func() {
			if ctx.Err() == nil {
				dispatch(msg)
			}
		})
		return nil
	}
}

// Sequence runs effects one after another. Each sees the state produced by
// the previous one. It returns nil when none of them changed anything.
func Sequence(effects ...Effect) Effect {
	var live []Effect
	for _, e := range effects {
		if e != nil {
			live = append(live, e)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return func(ctx context.Context, s *state.Record, dispatch Dispatch) *state.Record {
		var changed *state.Record
		for _, e := range live {
			if next := e(ctx, s, dispatch); next != nil {
				s = next
				changed = next
			}
		}
		return changed
	}
}

// Map remaps every message the effect dispatches.
func Map(e Effect, fn func(Msg) Msg) Effect {
	if e == nil {
		return nil
	}
	return func(ctx context.Context, s *state.Record, dispatch Dispatch) *state.Record {
		return e(ctx, s, MapDispatch(dispatch, fn))
	}
}
