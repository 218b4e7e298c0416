// In-memory secondary indexes, kept synchronized with table mutations
// through the TableObserver interface.

package docdb

import "sync"

// Index provides O(1) lookup of rows by a declared secondary key, unique or
// not. It is built from existing table data when created and updated on
// every committed mutation.
type Index[T Doc[T]] struct {
	name   string
	unique bool
	key    func(T) []string
	table  *Table[T]

	mu    sync.Mutex
	byKey map[string][]string
}

func newIndex[T Doc[T]](table *Table[T], name string, unique bool, key func(T) []string) *Index[T] {
	idx := &Index[T]{
		name:   name,
		unique: unique,
		key:    key,
		table:  table,
		byKey:  make(map[string][]string),
	}
	for _, row := range table.All() {
		idx.add(row)
	}
	table.AddObserver(idx)
	return idx
}

// Name returns the declared index name.
func (idx *Index[T]) Name() string { return idx.name }

// Unique reports whether the index enforces key uniqueness.
func (idx *Index[T]) Unique() bool { return idx.unique }

// KeyOf extracts the index key of a row.
func (idx *Index[T]) KeyOf(row T) []string { return idx.key(row) }

// LookupIDs returns the ids of the rows matching the key. It never touches
// the table, so it is safe to call while the table's write lock is held.
func (idx *Index[T]) LookupIDs(parts []string) []string {
	k := indexKey(parts)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return append([]string(nil), idx.byKey[k]...)
}

// Get resolves the matching rows through the table. Rows deleted between
// the id snapshot and the lookup are skipped.
func (idx *Index[T]) Get(parts []string) []T {
	ids := idx.LookupIDs(parts)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if row, ok := idx.table.Get(id); ok {
			out = append(out, row)
		}
	}
	return out
}

// Count returns the number of rows matching the key.
func (idx *Index[T]) Count(parts []string) int {
	k := indexKey(parts)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.byKey[k])
}

func (idx *Index[T]) add(row T) {
	k := indexKey(idx.key(row))
	idx.byKey[k] = append(idx.byKey[k], row.GetID())
}

func (idx *Index[T]) remove(row T) {
	k := indexKey(idx.key(row))
	ids := idx.byKey[k]
	id := row.GetID()
	for i, v := range ids {
		if v == id {
			idx.byKey[k] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(idx.byKey[k]) == 0 {
		delete(idx.byKey, k)
	}
}

// OnAppend implements [TableObserver].
func (idx *Index[T]) OnAppend(row T) {
	idx.mu.Lock()
	idx.add(row)
	idx.mu.Unlock()
}

// OnUpdate implements [TableObserver].
func (idx *Index[T]) OnUpdate(prev, curr T) {
	idx.mu.Lock()
	idx.remove(prev)
	idx.add(curr)
	idx.mu.Unlock()
}

// OnDelete implements [TableObserver].
func (idx *Index[T]) OnDelete(row T) {
	idx.mu.Lock()
	idx.remove(row)
	idx.mu.Unlock()
}
