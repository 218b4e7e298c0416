package docdb

import (
	"errors"
	"testing"
)

var errTest = errors.New("test failure")

func setupIndexed(t *testing.T) (*Table[*testDoc], *Index[*testDoc]) {
	t.Helper()
	tbl, _ := setupTable(t)
	idx := newIndex(tbl, "group", false, func(d *testDoc) []string { return []string{d.Group} })
	return tbl, idx
}

func addGrouped(t *testing.T, tbl *Table[*testDoc], id, name, group string) {
	t.Helper()
	err := tbl.Modify(func(tx *Tx[*testDoc]) error {
		return tx.Add(&testDoc{ID: id, Name: name, Group: group})
	})
	if err != nil {
		t.Fatalf("add %s failed: %v", id, err)
	}
}

func TestIndex(t *testing.T) {
	t.Run("stays synchronized", func(t *testing.T) {
		tbl, idx := setupIndexed(t)
		addGrouped(t, tbl, "a1", "one", "g1")
		addGrouped(t, tbl, "a2", "two", "g1")
		addGrouped(t, tbl, "a3", "three", "g2")

		if n := idx.Count([]string{"g1"}); n != 2 {
			t.Fatalf("Count(g1) = %d, want 2", n)
		}
		rows := idx.Get([]string{"g1"})
		if len(rows) != 2 {
			t.Fatalf("Get(g1) returned %d rows, want 2", len(rows))
		}

		// Moving a row to another key updates both buckets.
		err := tbl.Modify(func(tx *Tx[*testDoc]) error {
			tx.Put(&testDoc{ID: "a2", Name: "two", Group: "g2"})
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if n := idx.Count([]string{"g1"}); n != 1 {
			t.Fatalf("Count(g1) after move = %d, want 1", n)
		}
		if n := idx.Count([]string{"g2"}); n != 2 {
			t.Fatalf("Count(g2) after move = %d, want 2", n)
		}

		err = tbl.Modify(func(tx *Tx[*testDoc]) error {
			tx.Delete("a1")
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if n := idx.Count([]string{"g1"}); n != 0 {
			t.Fatalf("Count(g1) after delete = %d, want 0", n)
		}
	})

	t.Run("built from existing rows", func(t *testing.T) {
		tbl, _ := setupTable(t)
		addDoc(t, tbl, "a1", "one")
		idx := newIndex(tbl, "name", true, func(d *testDoc) []string { return []string{d.Name} })
		if ids := idx.LookupIDs([]string{"one"}); len(ids) != 1 || ids[0] != "a1" {
			t.Fatalf("LookupIDs(one) = %v, want [a1]", ids)
		}
	})

	t.Run("composite keys do not collide", func(t *testing.T) {
		tbl, _ := setupTable(t)
		idx := newIndex(tbl, "pair", true, func(d *testDoc) []string { return []string{d.Name, d.Group} })
		addGrouped(t, tbl, "a1", "ab", "c")
		addGrouped(t, tbl, "a2", "a", "bc")

		// ("ab","c") and ("a","bc") concatenate identically without a
		// separator; the key encoding must keep them distinct.
		if ids := idx.LookupIDs([]string{"ab", "c"}); len(ids) != 1 || ids[0] != "a1" {
			t.Fatalf("LookupIDs(ab,c) = %v, want [a1]", ids)
		}
		if ids := idx.LookupIDs([]string{"a", "bc"}); len(ids) != 1 || ids[0] != "a2" {
			t.Fatalf("LookupIDs(a,bc) = %v, want [a2]", ids)
		}
	})

	t.Run("rolled back transaction invisible", func(t *testing.T) {
		tbl, idx := setupIndexed(t)
		boom := tbl.Modify(func(tx *Tx[*testDoc]) error {
			_ = tx.Add(&testDoc{ID: "a1", Group: "g1"})
			return errTest
		})
		if boom == nil {
			t.Fatal("expected error")
		}
		if n := idx.Count([]string{"g1"}); n != 0 {
			t.Fatalf("index saw rolled-back row, Count(g1) = %d", n)
		}
	})
}
