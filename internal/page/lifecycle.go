package page

import (
	"errors"
	"fmt"
)

// Phase is where a page is in its lifecycle.
type Phase string

const (
	Uninitialized Phase = ""
	Initializing  Phase = "initializing"
	Ready         Phase = "ready"
	Updating      Phase = "updating"
	TornDown      Phase = "torn-down"
)

// Event moves a page between phases.
type Event string

const (
	EventEnter   Event = "enter"
	EventResolve Event = "resolve"
	EventMessage Event = "message"
	EventSettle  Event = "settle"
	EventLeave   Event = "leave"
)

var (
	ErrInvalidTransition = errors.New("page: invalid lifecycle transition")
	ErrNotMounted        = errors.New("page: not mounted")
)

// Mounted reports whether the page has state.
func (p Phase) Mounted() bool {
	return p == Initializing || p == Ready || p == Updating
}

// Next returns the phase after e.
func (p Phase) Next(e Event) (Phase, error) {
	switch e {
	case EventEnter:
		return Initializing, nil
	case EventLeave:
		if !p.Mounted() {
			return p, fmt.Errorf("%w: leave while %s", ErrNotMounted, p.label())
		}
		return TornDown, nil
	case EventMessage:
		switch p {
		case Ready:
			return Updating, nil
		case Initializing:
			return Initializing, nil
		case Updating:
			return Updating, nil
		}
		return p, fmt.Errorf("%w: message while %s", ErrNotMounted, p.label())
	case EventResolve:
		if p == Initializing {
			return Ready, nil
		}
	case EventSettle:
		switch p {
		case Updating:
			return Ready, nil
		case Initializing:
			return Initializing, nil
		}
	}
	return p, fmt.Errorf("%w: %s while %s", ErrInvalidTransition, e, p.label())
}

func (p Phase) label() string {
	if p == Uninitialized {
		return "uninitialized"
	}
	return string(p)
}
