package state

import (
	"encoding/json"
	"slices"

	"github.com/benbjohnson/immutable"
)

// Record is a persistent map of named fields. Every write returns a new
// Record that shares unchanged structure with the old one; a Record is never
// modified after construction. A nil *Record reads as empty.
//
// Writes that change nothing return the receiver, so pointer equality means
// "no transition happened".
type Record struct {
	fields *immutable.Map[string, any]
}

// New returns an empty Record.
func New() *Record {
	return &Record{fields: immutable.NewMap[string, any](nil)}
}

// Wrap builds a Record from a plain map. Nested map[string]any values are
// wrapped recursively.
func Wrap(values map[string]any) *Record {
	b := immutable.NewMapBuilder[string, any](nil)
	for k, v := range values {
		if m, ok := v.(map[string]any); ok {
			v = Wrap(m)
		}
		b.Set(k, v)
	}
	return &Record{fields: b.Map()}
}

func (r *Record) lookup(key string) (any, bool) {
	if r == nil || r.fields == nil {
		return nil, false
	}
	return r.fields.Get(key)
}

func (r *Record) with(key string, v any) *Record {
	if r == nil || r.fields == nil {
		return &Record{fields: immutable.NewMap[string, any](nil).Set(key, v)}
	}
	return &Record{fields: r.fields.Set(key, v)}
}

// Len returns the number of top-level fields.
func (r *Record) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Keys returns the top-level field names in sorted order.
func (r *Record) Keys() []string {
	if r.Len() == 0 {
		return nil
	}
	keys := make([]string, 0, r.fields.Len())
	itr := r.fields.Iterator()
	for !itr.Done() {
		k, _, _ := itr.Next()
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Get returns the value at p. Missing paths, including paths that run through
// a non-Record value, report false. An empty path returns the receiver.
func (r *Record) Get(p Path) (any, bool) {
	if len(p) == 0 {
		return r, r != nil
	}
	cur := r
	for i, key := range p {
		v, ok := cur.lookup(key)
		if !ok {
			return nil, false
		}
		if i == len(p)-1 {
			return v, true
		}
		next, isRecord := v.(*Record)
		if !isRecord || next == nil {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// Has reports whether a value exists at p.
func (r *Record) Has(p Path) bool {
	_, ok := r.Get(p)
	return ok
}

// Record returns the nested Record at p, if there is one.
func (r *Record) Record(p Path) (*Record, bool) {
	return Value[*Record](r, p)
}

// Value reads p as a T. A value of another type reads as missing.
func Value[T any](r *Record, p Path) (T, bool) {
	var zero T
	v, ok := r.Get(p)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Set returns a Record with v stored at p. Missing intermediate levels are
// created. If an intermediate level holds a non-Record value, Set is a no-op
// and returns the receiver. Setting the empty path to a *Record returns that
// Record.
func (r *Record) Set(p Path, v any) *Record {
	if len(p) == 0 {
		if rec, ok := v.(*Record); ok {
			return rec
		}
		return r
	}
	if len(p) == 1 {
		if rec, ok := v.(*Record); ok {
			if cur, ok := r.lookup(p[0]); ok && cur == any(rec) {
				return r
			}
		}
		return r.with(p[0], v)
	}

	child := New()
	if cur, ok := r.lookup(p[0]); ok && cur != nil {
		rec, isRecord := cur.(*Record)
		if !isRecord {
			return r
		}
		if rec != nil {
			child = rec
		}
	}

	next := child.Set(p[1:], v)
	if next == child {
		return r
	}
	return r.with(p[0], next)
}

// Update replaces the value at p with fn(current, exists).
func (r *Record) Update(p Path, fn func(v any, ok bool) any) *Record {
	v, ok := r.Get(p)
	return r.Set(p, fn(v, ok))
}

// Delete returns a Record without the value at p. A missing path returns the
// receiver.
func (r *Record) Delete(p Path) *Record {
	if len(p) == 0 || !r.Has(p) {
		return r
	}
	if len(p) == 1 {
		return &Record{fields: r.fields.Delete(p[0])}
	}
	child, _ := r.Record(p[:1])
	return r.with(p[0], child.Delete(p[1:]))
}

// Map returns a deep plain copy with nested Records converted to maps.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	if r.Len() == 0 {
		return out
	}
	itr := r.fields.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		if rec, ok := v.(*Record); ok {
			v = rec.Map()
		}
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the Record as a JSON object.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}
