package fakeapi

import "github.com/jrsteele09/go-budget-client/state"

// table is an in-memory collection with server-assigned ids. The caller
// holds Server.lock.
type table[T state.Entity] struct {
	rows   []T
	nextID int64
}

// insert assigns the next id through setID and appends the row.
func (t *table[T]) insert(row T, setID func(*T, int64)) T {
	t.nextID++
	setID(&row, t.nextID)
	t.rows = append(t.rows, row)
	return row
}

func (t *table[T]) get(id int64) (T, bool) {
	return state.FindByID(t.rows, id)
}

func (t *table[T]) put(row T) bool {
	var found bool
	t.rows, found = state.ReplaceByID(t.rows, row)
	return found
}

func (t *table[T]) remove(id int64) bool {
	if _, ok := t.get(id); !ok {
		return false
	}
	t.rows = state.RemoveByID(t.rows, id)
	return true
}

// filter returns a copy of the rows that keep reports true for. A nil keep
// returns every row. The result is never nil so it encodes as [].
func (t *table[T]) filter(keep func(T) bool) []T {
	out := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	return out
}
