package router

import "sync"

// History is a stack of visited URLs with a cursor.
type History interface {
	Push(url string)
	Replace(url string)
	Back() (string, bool)
	Forward() (string, bool)
	Location() string
}

// MemoryHistory keeps the history in process.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []string
	index   int
}

// NewMemoryHistory returns a history positioned at initial.
func NewMemoryHistory(initial string) *MemoryHistory {
	return &MemoryHistory{entries: []string{initial}}
}

// Push drops any forward entries and appends url.
func (h *MemoryHistory) Push(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		h.entries = []string{url}
		h.index = 0
		return
	}
	h.entries = append(h.entries[:h.index+1], url)
	h.index++
}

// Replace overwrites the current entry.
func (h *MemoryHistory) Replace(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		h.entries = []string{url}
		return
	}
	h.entries[h.index] = url
}

func (h *MemoryHistory) Back() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return "", false
	}
	h.index--
	return h.entries[h.index], true
}

func (h *MemoryHistory) Forward() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index+1 >= len(h.entries) {
		return "", false
	}
	h.index++
	return h.entries[h.index], true
}

func (h *MemoryHistory) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[h.index]
}

// Entries returns a copy of the stack, oldest first.
func (h *MemoryHistory) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}
