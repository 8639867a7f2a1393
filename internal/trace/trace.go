// Package trace records what a running process dispatches: a bounded
// in-memory ring of recent messages, per-tag counts, and optionally a
// JSON-lines file of messages and state snapshots.
package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/state"
)

const (
	defaultFileMode = 0644
	defaultDirMode  = 0755

	// DefaultCapacity is the ring size used when Open is given none.
	DefaultCapacity = 256
)

// Kind says what an entry holds.
type Kind string

const (
	KindMsg   Kind = "msg"
	KindState Kind = "state"
)

// Entry is one recorded event.
type Entry struct {
	Seq   uint64          `json:"seq"`
	Kind  Kind            `json:"kind"`
	Tag   string          `json:"tag,omitempty"`
	At    time.Time       `json:"at"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Recorder is safe for concurrent use. RecordMsg and RecordState have the
// shapes of the runtime's message and state subscribers.
type Recorder struct {
	mu      sync.Mutex
	file    *os.File
	ring    []Entry
	head    int
	full    bool
	counts  map[string]int
	total   uint64
	nextSeq uint64
	now     func() time.Time
}

// Open creates a recorder keeping the last capacity messages in memory. With
// a non-empty path every entry is also appended to that file; an existing
// file is continued after its last complete line.
func Open(path string, capacity int) (*Recorder, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	r := &Recorder{
		ring:    make([]Entry, capacity),
		counts:  make(map[string]int),
		nextSeq: 1,
		now:     time.Now,
	}
	if strings.TrimSpace(path) == "" {
		return r, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
		return nil, fmt.Errorf("trace: mkdir: %w", err)
	}
	maxSeq, valid, err := scan(path)
	if err != nil {
		return nil, err
	}
	if err := truncate(path, valid); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, defaultFileMode)
	if err != nil {
		return nil, fmt.Errorf("trace: open: %w", err)
	}
	r.file = f
	r.nextSeq = maxSeq + 1
	return r, nil
}

// RecordMsg records a dispatched message.
func (r *Recorder) RecordMsg(msg component.Msg) {
	if msg == nil {
		return
	}
	data, err := json.Marshal(msg)

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entry(KindMsg, msg.Tag(), data, err)
	r.ring[r.head] = e
	r.head = (r.head + 1) % len(r.ring)
	if r.head == 0 {
		r.full = true
	}
	r.counts[e.Tag]++
	r.total++
	r.write(e)
}

// RecordState records a state snapshot. Snapshots go to the file only.
func (r *Recorder) RecordState(s *state.Record, _ component.Dispatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return
	}
	data, err := json.Marshal(s)
	r.write(r.entry(KindState, "", data, err))
}

// entry runs with r.mu held.
func (r *Recorder) entry(kind Kind, tag string, data []byte, err error) Entry {
	e := Entry{Seq: r.nextSeq, Kind: kind, Tag: tag, At: r.now().UTC()}
	r.nextSeq++
	if err != nil {
		e.Error = err.Error()
	} else {
		e.Data = data
	}
	return e
}

// write runs with r.mu held. A failing file is closed and recording carries
// on in memory.
func (r *Recorder) write(e Entry) {
	if r.file == nil {
		return
	}
	line, err := json.Marshal(e)
	if err == nil {
		line = append(line, '\n')
		_, err = r.file.Write(line)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "trace: write entry: %v\n", err)
		_ = r.file.Close()
		r.file = nil
	}
}

// Recent returns up to n of the latest messages, oldest first. n <= 0 means
// all that are kept.
func (r *Recorder) Recent(n int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.head
	if r.full {
		size = len(r.ring)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]Entry, 0, n)
	start := r.head - n
	if start < 0 {
		start += len(r.ring)
	}
	for i := range n {
		out = append(out, r.ring[(start+i)%len(r.ring)])
	}
	return out
}

// Counts returns the number of messages recorded per tag.
func (r *Recorder) Counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// Total is the number of messages recorded.
func (r *Recorder) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Close syncs and closes the trace file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Sync()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	r.file = nil
	return err
}

// ReadFile calls fn for each complete entry of a trace file, in order. A
// partially written trailing line ends the read.
func ReadFile(path string, fn func(Entry) error) error {
	if fn == nil {
		return errors.New("trace: read callback is nil")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("trace: open for read: %w", err)
	}
	defer f.Close()

	_, err = each(f, fn)
	return err
}

// each decodes entries from r and returns the byte length of the complete
// lines it accepted.
func each(r io.Reader, fn func(Entry) error) (int64, error) {
	reader := bufio.NewReader(r)
	var valid int64
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return valid, fmt.Errorf("trace: read: %w", err)
		}
		if len(line) == 0 || line[len(line)-1] != '\n' {
			return valid, nil
		}

		var e Entry
		if uerr := json.Unmarshal(line, &e); uerr != nil {
			// Stop at the first malformed line.
			return valid, nil
		}
		if ferr := fn(e); ferr != nil {
			return valid, ferr
		}
		valid += int64(len(line))

		if errors.Is(err, io.EOF) {
			return valid, nil
		}
	}
}

func scan(path string) (maxSeq uint64, valid int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("trace: open for scan: %w", err)
	}
	defer f.Close()

	valid, err = each(f, func(e Entry) error {
		maxSeq = max(maxSeq, e.Seq)
		return nil
	})
	return maxSeq, valid, err
}

func truncate(path string, size int64) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("trace: stat: %w", err)
	}
	if info.Size() == size {
		return nil
	}
	if err := os.Truncate(path, size); err != nil {
		return fmt.Errorf("trace: drop partial tail: %w", err)
	}
	return nil
}
