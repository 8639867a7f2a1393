package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrItemNotFound is returned for unknown item ids.
var ErrItemNotFound = errors.New("catalog: item not found")

// Item is a catalog entry.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags,omitempty"`
	Updated     time.Time `json:"updated"`
}

// Catalog is an in-memory item store. Every call waits latency first so the
// pages have something to load.
type Catalog struct {
	mu      sync.RWMutex
	items   map[string]Item
	nextID  int
	latency time.Duration
	now     func() time.Time
}

// NewCatalog creates a catalog seeded with a few items.
func NewCatalog(latency time.Duration) *Catalog {
	c := &Catalog{
		items:   make(map[string]Item),
		nextID:  1,
		latency: latency,
		now:     time.Now,
	}
	for _, seed := range []struct {
		name, desc string
		tags       []string
	}{
		{"Ingest gateway", "Accepts log batches over TCP and forwards them to storage.", []string{"service", "ingest"}},
		{"Query planner", "Turns dashboard filters into SQL.", []string{"service", "query"}},
		{"Retention job", "Deletes records older than the configured window.", []string{"job"}},
		{"Pattern miner", "Groups similar log lines into templates.", []string{"job", "analysis"}},
		{"Alert router", "Sends threshold breaches to on-call.", []string{"service", "alerts"}},
	} {
		c.insert(seed.name, seed.desc, seed.tags)
	}
	return c
}

func (c *Catalog) insert(name, desc string, tags []string) Item {
	it := Item{
		ID:          strconv.Itoa(c.nextID),
		Name:        name,
		Description: desc,
		Tags:        tags,
		Updated:     c.now().UTC(),
	}
	c.nextID++
	c.items[it.ID] = it
	return it
}

func (c *Catalog) wait(ctx context.Context) error {
	if c.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Search returns the items whose name, description or tags contain query,
// ordered by id.
func (c *Catalog) Search(ctx context.Context, query string) ([]Item, error) {
	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	q := strings.ToLower(strings.TrimSpace(query))

	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Item
	for _, it := range c.items {
		if q == "" || matches(it, q) {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b Item) int {
		ai, _ := strconv.Atoi(a.ID)
		bi, _ := strconv.Atoi(b.ID)
		return ai - bi
	})
	return out, nil
}

func matches(it Item, q string) bool {
	if strings.Contains(strings.ToLower(it.Name), q) || strings.Contains(strings.ToLower(it.Description), q) {
		return true
	}
	return slices.ContainsFunc(it.Tags, func(t string) bool { return strings.Contains(t, q) })
}

// Get returns one item.
func (c *Catalog) Get(ctx context.Context, id string) (Item, error) {
	if err := c.wait(ctx); err != nil {
		return Item{}, fmt.Errorf("catalog: get: %w", err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	if !ok {
		return Item{}, fmt.Errorf("catalog: get %q: %w", id, ErrItemNotFound)
	}
	return it, nil
}

// Create adds an item.
func (c *Catalog) Create(ctx context.Context, name string) (Item, error) {
	if strings.TrimSpace(name) == "" {
		return Item{}, errors.New("catalog: create: name is empty")
	}
	if err := c.wait(ctx); err != nil {
		return Item{}, fmt.Errorf("catalog: create: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insert(name, "", nil), nil
}

// Delete removes an item.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.wait(ctx); err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return fmt.Errorf("catalog: delete %q: %w", id, ErrItemNotFound)
	}
	delete(c.items, id)
	return nil
}
