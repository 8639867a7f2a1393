package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/page"
	"github.com/tinytelemetry/trellis/internal/state"
	"github.com/tinytelemetry/trellis/internal/tui"
)

const searchDebounce = 250 * time.Millisecond

var (
	queryPath    = state.At("query")
	focusedPath  = state.At("focused")
	loadingPath  = state.At("loading")
	listPath     = state.At("items")
	cursorPath   = state.At("cursor")
	errorPath    = state.At("error")
	idPath       = state.At("id")
	itemPath     = state.At("item")
	confirmPath  = state.At("confirm")
	deletingPath = state.At("deleting")
	missingPath  = state.At("path")
)

var (
	selectedStyle = lipgloss.NewStyle().Foreground(tui.ColorBlue).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(tui.ColorGray)
	labelStyle    = lipgloss.NewStyle().Foreground(tui.ColorGray).Width(10)
)

// Items page messages.
type (
	focusSearch struct{}
	blurSearch  struct{}
	typedKey    struct{ Key tea.KeyMsg }
	runSearch   struct{ Query string }
	searchDone  struct {
		Query string
		Items []Item
		Err   string
	}
	moveCursor  struct{ Delta int }
	createItem  struct{}
	itemCreated struct {
		Item Item
		Err  string
	}
)

func (focusSearch) Tag() string { return "focusSearch" }
func (blurSearch) Tag() string  { return "blurSearch" }
func (typedKey) Tag() string    { return "typedKey" }
func (runSearch) Tag() string   { return "runSearch" }
func (searchDone) Tag() string  { return "searchDone" }
func (moveCursor) Tag() string  { return "moveCursor" }
func (createItem) Tag() string  { return "createItem" }
func (itemCreated) Tag() string { return "itemCreated" }

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func searchInput(query string) textinput.Model {
	in := textinput.New()
	in.Prompt = "/ "
	in.Placeholder = "search items"
	in.SetValue(query)
	return in
}

// itemsPage lists and searches the catalog.
type itemsPage struct {
	catalog  *Catalog
	debounce *component.Debouncer
}

func newItemsPage(c *Catalog) *itemsPage {
	return &itemsPage{catalog: c, debounce: component.Debounce(searchDebounce)}
}

func (p *itemsPage) search(query string) component.Effect {
	return func(ctx context.Context, _ *state.Record, dispatch component.Dispatch) *state.Record {
		items, err := p.catalog.Search(ctx, query)
		dispatch(searchDone{Query: query, Items: items, Err: errText(err)})
		return nil
	}
}

func (p *itemsPage) Init(params page.Params[string]) (*state.Record, component.Effect) {
	s := state.New().
		Set(queryPath, params.RouteParams).
		Set(focusedPath, false).
		Set(loadingPath, true).
		Set(cursorPath, 0)
	return s, p.search(params.RouteParams)
}

func (p *itemsPage) Update(s *state.Record, msg component.Msg) (*state.Record, component.Effect) {
	switch m := msg.(type) {
	case focusSearch:
		return s.Set(focusedPath, true), nil
	case blurSearch:
		return s.Set(focusedPath, false), nil
	case typedKey:
		query, _ := state.Value[string](s, queryPath)
		in := searchInput(query)
		in.Focus()
		in, _ = in.Update(m.Key)
		if in.Value() == query {
			return s, nil
		}
		return s.Set(queryPath, in.Value()), p.debounce.Effect(runSearch{Query: in.Value()})
	case runSearch:
		return s.Set(loadingPath, true), p.search(m.Query)
	case searchDone:
		if query, _ := state.Value[string](s, queryPath); query != m.Query {
			// A newer search is on its way.
			return s, nil
		}
		cursor, _ := state.Value[int](s, cursorPath)
		return s.Set(loadingPath, false).
			Set(listPath, m.Items).
			Set(errorPath, m.Err).
			Set(cursorPath, clamp(cursor, len(m.Items))), nil
	case moveCursor:
		items, _ := state.Value[[]Item](s, listPath)
		cursor, _ := state.Value[int](s, cursorPath)
		return s.Set(cursorPath, clamp(cursor+m.Delta, len(items))), nil
	case createItem:
		return s, func(ctx context.Context, _ *state.Record, dispatch component.Dispatch) *state.Record {
			it, err := p.catalog.Create(ctx, "Untitled "+time.Now().Format("15:04:05"))
			dispatch(itemCreated{Item: it, Err: errText(err)})
			return nil
		}
	case itemCreated:
		if m.Err != "" {
			return s, component.DispatchEffect(component.Toast{Kind: component.ToastError, Title: "Create failed", Body: m.Err})
		}
		query, _ := state.Value[string](s, queryPath)
		return s.Set(loadingPath, true), component.Sequence(
			component.DispatchEffect(component.Toast{Kind: component.ToastSuccess, Title: "Created", Body: m.Item.Name}),
			p.search(query),
		)
	default:
		log.Printf("trellis: items page: unhandled message %q", msg.Tag())
	}
	return s, nil
}

func clamp(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	return min(cursor, n-1)
}

func (p *itemsPage) View(s *state.Record, dispatch component.Dispatch) tui.Screen {
	query, _ := state.Value[string](s, queryPath)
	focused, _ := state.Value[bool](s, focusedPath)
	loading, _ := state.Value[bool](s, loadingPath)
	items, _ := state.Value[[]Item](s, listPath)
	cursor, _ := state.Value[int](s, cursorPath)

	return tui.Screen{
		Busy: loading,
		Render: func(width, height int) string {
			in := searchInput(query)
			if focused {
				in.Focus()
			}
			in.Width = max(width-4, 1)
			lines := []string{in.View(), ""}
			if loading {
				lines = append(lines, mutedStyle.Render("searching..."))
			} else if len(items) == 0 {
				lines = append(lines, mutedStyle.Render("No items match."))
			}
			for i, it := range items {
				if len(lines) >= height {
					break
				}
				row := fmt.Sprintf("  %-4s %s", it.ID, it.Name)
				if len(it.Tags) > 0 {
					row += mutedStyle.Render("  " + strings.Join(it.Tags, ", "))
				}
				if i == cursor {
					row = selectedStyle.Render("›" + row[1:])
				}
				lines = append(lines, row)
			}
			return strings.Join(lines, "\n")
		},
		Keys: func(msg tea.KeyMsg) bool {
			if focused {
				switch msg.String() {
				case "esc", "enter":
					dispatch(blurSearch{})
				default:
					dispatch(typedKey{Key: msg})
				}
				return true
			}
			switch msg.String() {
			case "/":
				dispatch(focusSearch{})
			case "up", "k":
				dispatch(moveCursor{Delta: -1})
			case "down", "j":
				dispatch(moveCursor{Delta: 1})
			case "enter":
				if cursor >= len(items) {
					return false
				}
				dispatch(component.NewRoute[Route]{Route: itemRoute(items[cursor].ID)})
			default:
				return false
			}
			return true
		},
	}
}

func (p *itemsPage) Metadata(s *state.Record) page.Metadata {
	if query, _ := state.Value[string](s, queryPath); query != "" {
		return page.Metadata{Title: fmt.Sprintf("Items matching %q", query)}
	}
	return page.Metadata{Title: "Items"}
}

func (p *itemsPage) Breadcrumbs(*state.Record) page.Breadcrumbs {
	return page.Breadcrumbs{{Text: "Catalog"}, {Text: "Items"}}
}

func (p *itemsPage) Actions(*state.Record) page.Actions {
	return page.Actions{
		{Text: "New", Key: "n", Color: page.ColorPrimary, Msg: createItem{}},
		{Text: "Search", Key: "/", Msg: focusSearch{}},
	}
}

func (p *itemsPage) Alerts(s *state.Record) page.Alerts {
	if msg, _ := state.Value[string](s, errorPath); msg != "" {
		return page.Alerts{Errors: []page.Alert{{Text: msg}}}
	}
	return page.Alerts{}
}

func (p *itemsPage) Sidebar() page.Sidebar[tui.Screen] {
	return page.Sidebar[tui.Screen]{
		Size: page.SidebarMedium,
		View: func(s *state.Record, _ component.Dispatch) tui.Screen {
			items, _ := state.Value[[]Item](s, listPath)
			cursor, _ := state.Value[int](s, cursorPath)
			if cursor >= len(items) {
				return tui.Text(mutedStyle.Render("Nothing selected"))
			}
			it := items[cursor]
			return tui.Text(strings.Join([]string{
				selectedStyle.Render(it.Name),
				"",
				it.Description,
				"",
				mutedStyle.Render("enter to open"),
			}, "\n"))
		},
		EmptyOnNarrow: func(s *state.Record) bool {
			items, _ := state.Value[[]Item](s, listPath)
			return len(items) == 0
		},
	}
}

// Item page messages.
type (
	itemLoaded struct {
		ID      string
		Item    Item
		Err     string
		Missing bool
	}
	askDelete     struct{}
	cancelDelete  struct{}
	confirmDelete struct{}
	itemDeleted   struct {
		Name string
		Err  string
	}
)

func (itemLoaded) Tag() string    { return "itemLoaded" }
func (askDelete) Tag() string     { return "askDelete" }
func (cancelDelete) Tag() string  { return "cancelDelete" }
func (confirmDelete) Tag() string { return "confirmDelete" }
func (itemDeleted) Tag() string   { return "itemDeleted" }

// itemPage shows one item and deletes it after confirmation.
type itemPage struct {
	catalog *Catalog
}

func (p *itemPage) Init(params page.Params[string]) (*state.Record, component.Effect) {
	id := params.RouteParams
	s := state.New().Set(idPath, id).Set(loadingPath, true)
	return s, func(ctx context.Context, _ *state.Record, dispatch component.Dispatch) *state.Record {
		it, err := p.catalog.Get(ctx, id)
		dispatch(itemLoaded{ID: id, Item: it, Err: errText(err), Missing: errors.Is(err, ErrItemNotFound)})
		return nil
	}
}

func (p *itemPage) Update(s *state.Record, msg component.Msg) (*state.Record, component.Effect) {
	it, loaded := state.Value[Item](s, itemPath)

	switch m := msg.(type) {
	case itemLoaded:
		id, _ := state.Value[string](s, idPath)
		if m.ID != id {
			// Load of an item navigated away from.
			return s, nil
		}
		s = s.Set(loadingPath, false)
		if m.Missing {
			return s, component.DispatchEffect(component.ReplaceRoute[Route]{Route: notFoundRoute(routeToURL(itemRoute(id)))})
		}
		if m.Err != "" {
			return s.Set(errorPath, m.Err), nil
		}
		return s.Set(itemPath, m.Item), nil
	case askDelete:
		if !loaded {
			return s, nil
		}
		return s.Set(confirmPath, true), nil
	case cancelDelete:
		return s.Delete(confirmPath), nil
	case confirmDelete:
		if !loaded {
			return s, nil
		}
		s = s.Delete(confirmPath).Set(deletingPath, true)
		return s, func(ctx context.Context, _ *state.Record, dispatch component.Dispatch) *state.Record {
			err := p.catalog.Delete(ctx, it.ID)
			dispatch(itemDeleted{Name: it.Name, Err: errText(err)})
			return nil
		}
	case itemDeleted:
		s = s.Delete(deletingPath)
		if m.Err != "" {
			return s, component.DispatchEffect(component.Toast{Kind: component.ToastError, Title: "Delete failed", Body: m.Err})
		}
		return s, component.DispatchEffect(
			component.Toast{Kind: component.ToastSuccess, Title: "Deleted", Body: m.Name},
			component.NewRoute[Route]{Route: itemsRoute("")},
		)
	default:
		log.Printf("trellis: item page: unhandled message %q", msg.Tag())
	}
	return s, nil
}

func (p *itemPage) View(s *state.Record, _ component.Dispatch) tui.Screen {
	it, loaded := state.Value[Item](s, itemPath)
	deleting, _ := state.Value[bool](s, deletingPath)
	if !loaded {
		msg, _ := state.Value[string](s, errorPath)
		if msg == "" {
			msg = "Loading item..."
		}
		return tui.Screen{Busy: msg == "Loading item...", Render: func(int, int) string { return mutedStyle.Render(msg) }}
	}

	lines := []string{
		labelStyle.Render("id") + it.ID,
		labelStyle.Render("name") + it.Name,
		labelStyle.Render("tags") + strings.Join(it.Tags, ", "),
		labelStyle.Render("updated") + it.Updated.Format(time.RFC3339),
		"",
		it.Description,
	}
	if deleting {
		lines = append(lines, "", mutedStyle.Render("deleting..."))
	}
	return tui.Screen{Busy: deleting, Render: func(width, height int) string {
		return lipgloss.NewStyle().Width(width).MaxHeight(height).Render(strings.Join(lines, "\n"))
	}}
}

func (p *itemPage) Metadata(s *state.Record) page.Metadata {
	if it, ok := state.Value[Item](s, itemPath); ok {
		return page.Metadata{Title: it.Name}
	}
	return page.Metadata{Title: "Loading item"}
}

func (p *itemPage) Breadcrumbs(s *state.Record) page.Breadcrumbs {
	crumbs := page.Breadcrumbs{
		{Text: "Catalog"},
		{Text: "Items", OnSelect: component.NewRoute[Route]{Route: itemsRoute("")}},
	}
	if it, ok := state.Value[Item](s, itemPath); ok {
		crumbs = append(crumbs, page.Breadcrumb{Text: it.Name})
	}
	return crumbs
}

func (p *itemPage) Actions(s *state.Record) page.Actions {
	if !s.Has(itemPath) {
		return nil
	}
	return page.Actions{{Text: "Delete", Key: "d", Color: page.ColorDanger, Msg: askDelete{}}}
}

func (p *itemPage) Modal(s *state.Record) *page.Modal {
	confirm, _ := state.Value[bool](s, confirmPath)
	it, ok := state.Value[Item](s, itemPath)
	if !confirm || !ok {
		return nil
	}
	return &page.Modal{
		Title: fmt.Sprintf("Delete %s?", it.Name),
		Body:  "This cannot be undone.",
		Buttons: []page.Button{
			{Text: "Cancel", Color: page.ColorMuted, Msg: cancelDelete{}},
			{Text: "Delete", Color: page.ColorDanger, Msg: confirmDelete{}},
		},
		OnClose: cancelDelete{},
	}
}

// notFoundPage is where unmatched URLs and missing items end up.
type notFoundPage struct{}

func (notFoundPage) Init(params page.Params[string]) (*state.Record, component.Effect) {
	return state.New().Set(missingPath, params.RouteParams), nil
}

func (notFoundPage) Update(s *state.Record, msg component.Msg) (*state.Record, component.Effect) {
	log.Printf("trellis: not found page: unhandled message %q", msg.Tag())
	return s, nil
}

func (notFoundPage) View(s *state.Record, _ component.Dispatch) tui.Screen {
	path, _ := state.Value[string](s, missingPath)
	if path == "" {
		path = "this address"
	}
	return tui.Text(fmt.Sprintf("Nothing lives at %s.\n\n%s", path, mutedStyle.Render("enter: back to the catalog")))
}

func (notFoundPage) Metadata(*state.Record) page.Metadata {
	return page.Metadata{Title: "Not found"}
}

func (notFoundPage) Actions(*state.Record) page.Actions {
	return page.Actions{{Text: "Catalog", Key: "enter", Color: page.ColorPrimary, Msg: component.NewRoute[Route]{Route: itemsRoute("")}}}
}
