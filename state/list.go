package state

// Entity is anything with a server-assigned identity.
type Entity interface {
	EntityID() int64
}

// Append adds e to the end of list. Duplicates are not detected: submitting
// the same create twice yields two entries.
func Append[T Entity](list []T, e T) []T {
	return append(list, e)
}

// ReplaceByID swaps the first entity whose identity matches e.
// found is false, and list is unchanged, when there is no match.
func ReplaceByID[T Entity](list []T, e T) (out []T, found bool) {
	for i := range list {
		if list[i].EntityID() == e.EntityID() {
			list[i] = e
			return list, true
		}
	}
	return list, false
}

// RemoveByID drops every entity with the given identity.
func RemoveByID[T Entity](list []T, id int64) []T {
	out := list[:0]
	for _, e := range list {
		if e.EntityID() != id {
			out = append(out, e)
		}
	}
	// Zero the tail so removed values are not kept alive by the backing array.
	var zero T
	for i := len(out); i < len(list); i++ {
		list[i] = zero
	}
	return out
}

// FindByID returns the first entity with the given identity.
func FindByID[T Entity](list []T, id int64) (T, bool) {
	for _, e := range list {
		if e.EntityID() == id {
			return e, true
		}
	}
	var zero T
	return zero, false
}

// Clone copies list so snapshots never alias slice state. Elements that
// implement Cloner are copied with their own Clone. A nil list stays nil, an
// empty list stays empty.
func Clone[T any](list []T) []T {
	if list == nil {
		return nil
	}
	out := make([]T, len(list))
	for i, v := range list {
		if c, ok := any(v).(Cloner[T]); ok {
			out[i] = c.Clone()
			continue
		}
		out[i] = v
	}
	return out
}
