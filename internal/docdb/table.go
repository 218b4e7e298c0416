package docdb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Doc is implemented by every stored document type.
//
// Clone must return a deep copy; the table only ever hands out clones so
// callers cannot mutate cached rows. SetID and Stamp are the only mutation
// hooks the driver uses, both before a row is committed.
type Doc[T any] interface {
	Clone() T
	GetID() string
	GetName() string
	SetID(id string)
	Stamp(now time.Time, insert bool)
}

// TableObserver receives committed row mutations. Secondary indexes
// implement it to stay synchronized with the table.
type TableObserver[T any] interface {
	OnAppend(row T)
	OnUpdate(prev, curr T)
	OnDelete(row T)
}

// Table stores the rows of one document store in a JSONL file with full
// in-memory caching. It is safe for concurrent use.
type Table[T Doc[T]] struct {
	path string

	mu        sync.RWMutex
	rows      []T
	pos       map[string]int
	observers []TableObserver[T]
}

// OpenTable loads (or creates) the JSONL file at path.
func OpenTable[T Doc[T]](path string) (*Table[T], error) {
	t := &Table[T]{path: path}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table[T]) load() error {
	t.rows = nil
	t.pos = make(map[string]int)

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			// First open creates the file so the store physically exists.
			if f, err = os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY, 0o644); err != nil {
				return storeErr("load", "create "+t.path, err)
			}
			return f.Close()
		}
		return storeErr("load", "open "+t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return storeErr("load", "unmarshal row in "+t.path, err)
		}
		t.pos[row.GetID()] = len(t.rows)
		t.rows = append(t.rows, row)
	}
	if err := scanner.Err(); err != nil {
		return storeErr("load", "read "+t.path, err)
	}
	return nil
}

// AddObserver registers an observer for committed mutations.
func (t *Table[T]) AddObserver(o TableObserver[T]) {
	t.mu.Lock()
	t.observers = append(t.observers, o)
	t.mu.Unlock()
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Get returns a clone of the row with the given id.
func (t *Table[T]) Get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.pos[id]
	if !ok {
		var zero T
		return zero, false
	}
	return t.rows[i].Clone(), true
}

// All returns clones of every row in insertion order.
func (t *Table[T]) All() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, len(t.rows))
	for i, row := range t.rows {
		out[i] = row.Clone()
	}
	return out
}

// Modify runs fn inside one write transaction: the write lock is held for
// the entire read-modify-write span, the file is flushed once, and observers
// see the committed changes only after the flush succeeded. If fn returns an
// error nothing is persisted and the error is returned unchanged.
func (t *Table[T]) Modify(fn func(tx *Tx[T]) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tx := &Tx[T]{
		rows: append([]T(nil), t.rows...),
		pos:  make(map[string]int, len(t.pos)),
	}
	for id, i := range t.pos {
		tx.pos[id] = i
	}

	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.changes) == 0 {
		return nil
	}

	if err := t.flush(tx); err != nil {
		return err
	}

	t.rows = tx.rows
	t.pos = tx.pos
	for _, ch := range tx.changes {
		for _, o := range t.observers {
			switch ch.kind {
			case changeAppend:
				o.OnAppend(ch.curr)
			case changeUpdate:
				o.OnUpdate(ch.prev, ch.curr)
			case changeDelete:
				o.OnDelete(ch.prev)
			}
		}
	}
	return nil
}

// flush persists the transaction. Append-only transactions extend the file;
// anything else rewrites it atomically.
func (t *Table[T]) flush(tx *Tx[T]) error {
	if tx.appendOnly() {
		f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return storeErr("flush", "open "+t.path, err)
		}
		defer func() {
			_ = f.Close()
		}()
		w := bufio.NewWriter(f)
		for _, ch := range tx.changes {
			if err := writeRow(w, ch.curr); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return storeErr("flush", "append "+t.path, err)
		}
		return nil
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	for _, row := range tx.rows {
		if err := writeRow(w, row); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return storeErr("flush", "render "+t.path, err)
	}
	if err := atomicWrite(t.path, buf.Bytes()); err != nil {
		return storeErr("flush", "rewrite "+t.path, err)
	}
	return nil
}

func writeRow[T any](w *bufio.Writer, row T) error {
	data, err := json.Marshal(row)
	if err != nil {
		return storeErr("flush", "marshal row", err)
	}
	if _, err := w.Write(data); err != nil {
		return storeErr("flush", "write row", err)
	}
	return w.WriteByte('\n')
}

const (
	changeAppend = iota
	changeUpdate
	changeDelete
)

type change[T any] struct {
	kind int
	prev T
	curr T
}

// Tx is the mutable view of a table inside one [Table.Modify] call.
// It is not safe to retain after fn returns.
type Tx[T Doc[T]] struct {
	rows    []T
	pos     map[string]int
	changes []change[T]
	rewrote bool
}

func (tx *Tx[T]) appendOnly() bool { return !tx.rewrote }

// Len returns the number of rows in the transaction's view.
func (tx *Tx[T]) Len() int { return len(tx.rows) }

// Get returns a clone of the row with the given id from the transaction's view.
func (tx *Tx[T]) Get(id string) (T, bool) {
	i, ok := tx.pos[id]
	if !ok {
		var zero T
		return zero, false
	}
	return tx.rows[i].Clone(), true
}

// Add appends a new row. The caller guarantees the id is fresh.
func (tx *Tx[T]) Add(row T) error {
	id := row.GetID()
	if _, ok := tx.pos[id]; ok {
		return fmt.Errorf("docdb: duplicate id %q", id)
	}
	tx.pos[id] = len(tx.rows)
	tx.rows = append(tx.rows, row)
	tx.changes = append(tx.changes, change[T]{kind: changeAppend, curr: row})
	return nil
}

// Put fully overwrites the row with row's id, or appends it when absent.
// Returns the previous row when one was replaced.
func (tx *Tx[T]) Put(row T) (prev T, replaced bool) {
	i, ok := tx.pos[row.GetID()]
	if !ok {
		_ = tx.Add(row)
		var zero T
		return zero, false
	}
	prev = tx.rows[i]
	tx.rows[i] = row
	tx.rewrote = true
	tx.changes = append(tx.changes, change[T]{kind: changeUpdate, prev: prev, curr: row})
	return prev, true
}

// Delete removes the row with the given id, returning the removed row.
func (tx *Tx[T]) Delete(id string) (prev T, ok bool) {
	i, found := tx.pos[id]
	if !found {
		return prev, false
	}
	prev = tx.rows[i]
	tx.rows = append(tx.rows[:i], tx.rows[i+1:]...)
	delete(tx.pos, id)
	for j := i; j < len(tx.rows); j++ {
		tx.pos[tx.rows[j].GetID()] = j
	}
	tx.rewrote = true
	tx.changes = append(tx.changes, change[T]{kind: changeDelete, prev: prev})
	return prev, true
}
