package state

import "strings"

// Path addresses a value nested inside a Record, one key per level.
type Path []string

// At builds a Path from keys.
func At(keys ...string) Path {
	return Path(keys)
}

// Append returns a new Path with keys added. The receiver is never aliased.
func (p Path) Append(keys ...string) Path {
	out := make(Path, 0, len(p)+len(keys))
	out = append(out, p...)
	return append(out, keys...)
}

func (p Path) String() string {
	return strings.Join(p, ".")
}
