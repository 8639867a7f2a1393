package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

type frameMsg struct{ screen Screen }

// Bridge carries rendered Screens from the process to the bubbletea program.
// Mount never blocks: an undelivered frame is replaced by the newer one.
type Bridge struct {
	frames chan Screen
	done   chan struct{}
	once   sync.Once
}

// NewBridge creates an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{
		frames: make(chan Screen, 1),
		done:   make(chan struct{}),
	}
}

// Mount publishes s. It is the mount side of runtime.Render and is called
// with the dispatch lock held.
func (b *Bridge) Mount(s Screen) {
	for {
		select {
		case b.frames <- s:
			return
		case <-b.done:
			return
		default:
		}
		select {
		case <-b.frames:
		default:
		}
	}
}

// Close releases a program waiting for frames.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bridge) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-b.frames:
			return frameMsg{screen: s}
		case <-b.done:
			return nil
		}
	}
}
