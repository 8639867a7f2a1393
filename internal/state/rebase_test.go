package state

import (
	"slices"
	"testing"
)

func TestRebase_UnmovedReturnsNext(t *testing.T) {
	t.Parallel()

	base := Wrap(map[string]any{"a": 1})
	next := base.Set(At("a"), 2)
	got, conflicts := Rebase(base, next, base)
	if got != next || conflicts != nil {
		t.Fatalf("Rebase() = %p %v, want next with no conflicts", got, conflicts)
	}
}

func TestRebase_KeepsConcurrentWrites(t *testing.T) {
	t.Parallel()

	base := Wrap(map[string]any{
		"page": map[string]any{"title": "Items", "loading": true},
		"log":  []string{"a"},
	})
	next := base.Set(At("page", "loading"), false).Set(At("value"), "x")
	onto := base.Set(At("page", "title"), "Items (2)").Set(At("log"), []string{"a", "b"})

	got, conflicts := Rebase(base, next, onto)
	if len(conflicts) != 0 {
		t.Fatalf("conflicts = %v, want none", conflicts)
	}
	if v, _ := Value[bool](got, At("page", "loading")); v {
		t.Fatal("page.loading = true, want the effect's false")
	}
	if v, _ := Value[string](got, At("page", "title")); v != "Items (2)" {
		t.Fatalf("page.title = %q, want the concurrent write", v)
	}
	if v, _ := Value[[]string](got, At("log")); !slices.Equal(v, []string{"a", "b"}) {
		t.Fatalf("log = %v, want [a b]", v)
	}
	if v, _ := Value[string](got, At("value")); v != "x" {
		t.Fatalf("value = %q, want x", v)
	}
}

func TestRebase_ConflictsNextWins(t *testing.T) {
	t.Parallel()

	base := Wrap(map[string]any{"n": 1, "gone": true, "kept": true})
	next := base.Set(At("n"), 2).Delete(At("gone"))
	onto := base.Set(At("n"), 3).Set(At("gone"), false)

	got, conflicts := Rebase(base, next, onto)
	if v, _ := Value[int](got, At("n")); v != 2 {
		t.Fatalf("n = %d, want 2", v)
	}
	if got.Has(At("gone")) {
		t.Fatal("gone survived the effect's delete")
	}
	if !got.Has(At("kept")) {
		t.Fatal("kept was dropped")
	}
	var paths []string
	for _, p := range conflicts {
		paths = append(paths, p.String())
	}
	slices.Sort(paths)
	if !slices.Equal(paths, []string{"gone", "n"}) {
		t.Fatalf("conflicts = %v, want [gone n]", paths)
	}
}

func TestRebase_ReplacedSubtreeIsTakenWhole(t *testing.T) {
	t.Parallel()

	base := Wrap(map[string]any{"page": map[string]any{"id": "1"}})
	next := base.Set(At("page"), Wrap(map[string]any{"id": "2"}))
	onto := base.Delete(At("page"))

	got, _ := Rebase(base, next, onto)
	if v, _ := Value[string](got, At("page", "id")); v != "2" {
		t.Fatalf("page.id = %q, want 2", v)
	}
}
