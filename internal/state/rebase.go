package state

import "reflect"

// Rebase replays the changes that took base to next on top of onto, so that
// writes made to onto after base was read survive. Nested Records are merged
// field by field. Where both sides changed the same field, next wins and the
// field is reported in conflicts.
//
// When onto is base, Rebase returns next unchanged.
func Rebase(base, next, onto *Record) (merged *Record, conflicts []Path) {
	merged = rebase(base, next, onto, nil, &conflicts)
	return merged, conflicts
}

func rebase(base, next, onto *Record, at Path, conflicts *[]Path) *Record {
	if onto == base {
		return next
	}
	if next == base {
		return onto
	}

	out := onto
	if next.Len() > 0 {
		itr := next.fields.Iterator()
		for !itr.Done() {
			k, nv, _ := itr.Next()
			bv, inBase := base.lookup(k)
			if inBase && sameValue(bv, nv) {
				continue
			}
			ov, inOnto := onto.lookup(k)

			nr, nIsRec := nv.(*Record)
			br, bIsRec := bv.(*Record)
			orec, oIsRec := ov.(*Record)
			if inBase && inOnto && nIsRec && bIsRec && oIsRec {
				out = out.with(k, rebase(br, nr, orec, at.Append(k), conflicts))
				continue
			}

			if inOnto && !sameValue(ov, nv) && (!inBase || !sameValue(ov, bv)) {
				*conflicts = append(*conflicts, at.Append(k))
			}
			out = out.with(k, nv)
		}
	}

	if base.Len() > 0 {
		itr := base.fields.Iterator()
		for !itr.Done() {
			k, bv, _ := itr.Next()
			if _, kept := next.lookup(k); kept {
				continue
			}
			if ov, ok := onto.lookup(k); ok {
				if !sameValue(ov, bv) {
					*conflicts = append(*conflicts, at.Append(k))
				}
				out = out.Delete(Path{k})
			}
		}
	}
	return out
}

// sameValue reports whether a and b are the same stored value. Records and
// reference types compare by identity.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Len() == vb.Len() && (va.Len() == 0 || va.Pointer() == vb.Pointer())
	}
	if va.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
