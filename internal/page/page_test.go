package page

import (
	"context"
	"errors"
	"testing"

	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/state"
)

type initResponse struct{ Name string }

func (initResponse) Tag() string { return "initResponse" }

type rename struct{ Name string }

func (rename) Tag() string { return "rename" }

// profilePage loads its name asynchronously and titles itself after it.
type profilePage struct {
	updates []component.Msg
}

func (p *profilePage) Init(params Params[string]) (*state.Record, component.Effect) {
	s := state.Wrap(map[string]any{"id": params.RouteParams, "loading": true})
	return s, func(_ context.Context, _ *state.Record, dispatch component.Dispatch) *state.Record {
		dispatch(initResponse{Name: "user " + params.RouteParams})
		return nil
	}
}

func (p *profilePage) Update(s *state.Record, msg component.Msg) (*state.Record, component.Effect) {
	p.updates = append(p.updates, msg)
	switch m := msg.(type) {
	case initResponse:
		return s.Set(state.At("name"), m.Name).Set(state.At("loading"), false), nil
	case rename:
		return s, func(_ context.Context, cur *state.Record, _ component.Dispatch) *state.Record {
			return cur.Set(state.At("name"), m.Name)
		}
	}
	return s, nil
}

func (p *profilePage) View(s *state.Record, _ component.Dispatch) string {
	name, _ := state.Value[string](s, state.At("name"))
	return name
}

func (p *profilePage) Metadata(s *state.Record) Metadata {
	if loading, _ := state.Value[bool](s, state.At("loading")); loading {
		return Metadata{Title: "Loading..."}
	}
	name, _ := state.Value[string](s, state.At("name"))
	return Metadata{Title: name}
}

func (p *profilePage) Breadcrumbs(s *state.Record) Breadcrumbs {
	return Breadcrumbs{{Text: "Profiles", OnSelect: rename{Name: "x"}}, {Text: "Current"}}
}

func (p *profilePage) Modal(s *state.Record) *Modal {
	return &Modal{
		Title:   "Confirm",
		OnClose: rename{Name: "closed"},
		Buttons: []Button{{Text: "Toast", Msg: component.Toast{Title: "t"}}},
	}
}

var (
	pagePath     = state.At("pages", "profile")
	metadataPath = state.At("metadata")
)

func wrapMsg(m component.Msg) component.Msg { return component.Wrap("profile", m) }

func TestInitPage_MetadataBeforeInitResponse(t *testing.T) {
	t.Parallel()

	p := &profilePage{}
	s, effect := InitPage[string, string](p, InitParams[string]{
		State:        state.New(),
		PagePath:     pagePath,
		MetadataPath: metadataPath,
		Params:       Params[string]{RoutePath: "/profiles/7", RouteParams: "7"},
		MapMsg:       wrapMsg,
	})

	md, ok := state.Value[Metadata](s, metadataPath)
	if !ok {
		t.Fatal("metadata not written by InitPage")
	}
	if md.Title != "Loading..." {
		t.Fatalf("title = %q, want Loading...", md.Title)
	}
	if effect == nil {
		t.Fatal("init effect dropped")
	}

	var sent []component.Msg
	out := effect(context.Background(), s, func(m component.Msg) component.Settled {
		sent = append(sent, m)
		return component.Done()
	})
	if out != nil {
		t.Fatal("init effect returned a state though the page effect did not")
	}
	if len(sent) != 1 || sent[0].Tag() != "profile" {
		t.Fatalf("sent = %#v, want one profile-wrapped message", sent)
	}

	// Deliver the response the way the app would.
	inner := sent[0].(component.Tagged[component.Msg]).Value
	s, _ = UpdatePage[string, string](p, UpdateParams{
		State:        s,
		PagePath:     pagePath,
		MetadataPath: metadataPath,
		Msg:          inner,
		MapMsg:       wrapMsg,
	})
	md, _ = state.Value[Metadata](s, metadataPath)
	if md.Title != "user 7" {
		t.Fatalf("title = %q, want user 7", md.Title)
	}
}

func TestUpdatePage_GlobalMessagesNotForwarded(t *testing.T) {
	t.Parallel()

	p := &profilePage{}
	s, _ := InitPage[string, string](p, InitParams[string]{
		State: state.New(), PagePath: pagePath, MetadataPath: metadataPath,
		Params: Params[string]{RouteParams: "1"},
	})

	globals := []component.Msg{
		component.Toast{Kind: component.ToastInfo, Title: "saved"},
		component.Reload{},
		component.NewURL{URL: "/"},
		component.ReplaceRoute[string]{Route: "home"},
	}
	for _, g := range globals {
		got, effect := UpdatePage[string, string](p, UpdateParams{
			State: s, PagePath: pagePath, MetadataPath: metadataPath, Msg: g,
		})
		if got != s || effect != nil {
			t.Fatalf("UpdatePage(%s) changed state", g.Tag())
		}
	}
	if len(p.updates) != 0 {
		t.Fatalf("page saw %d global messages, want 0", len(p.updates))
	}
}

func TestUpdatePage_EffectResyncsMetadata(t *testing.T) {
	t.Parallel()

	p := &profilePage{}
	s, _ := InitPage[string, string](p, InitParams[string]{
		State: state.New(), PagePath: pagePath, MetadataPath: metadataPath,
		Params: Params[string]{RouteParams: "1"},
	})
	s, _ = UpdatePage[string, string](p, UpdateParams{
		State: s, PagePath: pagePath, MetadataPath: metadataPath, Msg: initResponse{Name: "a"},
	})
	s, effect := UpdatePage[string, string](p, UpdateParams{
		State: s, PagePath: pagePath, MetadataPath: metadataPath, Msg: rename{Name: "b"},
	})

	out := effect(context.Background(), s, func(component.Msg) component.Settled { return component.Done() })
	md, _ := state.Value[Metadata](out, metadataPath)
	if md.Title != "b" {
		t.Fatalf("title after effect = %q, want b", md.Title)
	}
}

func TestUpdatePage_MissingPageIsNoOp(t *testing.T) {
	t.Parallel()

	s := state.New()
	got, effect := UpdatePage[string, string](&profilePage{}, UpdateParams{
		State: s, PagePath: pagePath, MetadataPath: metadataPath, Msg: rename{Name: "x"},
	})
	if got != s || effect != nil {
		t.Fatal("update of a missing page changed state")
	}
}

func TestProject_MapsLocalMessagesOnly(t *testing.T) {
	t.Parallel()

	p := &profilePage{}
	pageState := state.Wrap(map[string]any{"name": "n"})
	ch := Project[string, string](p, pageState, wrapMsg)

	if ch.Metadata.Title != "n" {
		t.Fatalf("title = %q, want n", ch.Metadata.Title)
	}
	if len(ch.Breadcrumbs) != 2 {
		t.Fatalf("breadcrumbs = %d, want 2", len(ch.Breadcrumbs))
	}
	if ch.Breadcrumbs[0].OnSelect.Tag() != "profile" {
		t.Fatalf("breadcrumb msg tag = %q, want profile", ch.Breadcrumbs[0].OnSelect.Tag())
	}
	if ch.Breadcrumbs[1].OnSelect != nil {
		t.Fatal("nil breadcrumb message was mapped")
	}
	if ch.Modal == nil || ch.Modal.OnClose.Tag() != "profile" {
		t.Fatal("modal close message not mapped")
	}
	if _, ok := ch.Modal.Buttons[0].Msg.(component.Toast); !ok {
		t.Fatal("global modal message was wrapped")
	}
	if !ch.Alerts.Empty() || ch.Actions != nil || ch.Sidebar != nil {
		t.Fatal("unimplemented projections are not empty")
	}
}

func TestPhaseTransitions(t *testing.T) {
	t.Parallel()

	steps := []struct {
		event Event
		want  Phase
	}{
		{EventEnter, Initializing},
		{EventMessage, Initializing},
		{EventResolve, Ready},
		{EventMessage, Updating},
		{EventSettle, Ready},
		{EventEnter, Initializing},
		{EventResolve, Ready},
		{EventLeave, TornDown},
	}
	p := Uninitialized
	for _, step := range steps {
		next, err := p.Next(step.event)
		if err != nil {
			t.Fatalf("%s from %q: %v", step.event, p, err)
		}
		if next != step.want {
			t.Fatalf("%s from %q = %q, want %q", step.event, p, next, step.want)
		}
		p = next
	}

	if _, err := TornDown.Next(EventMessage); !errors.Is(err, ErrNotMounted) {
		t.Fatalf("message on torn-down page err = %v, want ErrNotMounted", err)
	}
	if _, err := Ready.Next(EventResolve); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("resolve on ready page err = %v, want ErrInvalidTransition", err)
	}
}
