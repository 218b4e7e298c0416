package catalog

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shakahl/db-diagram/document"
)

func TestTableValidation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		in   document.Table
		want document.Status
	}{
		{"missing name", document.Table{Database: "sales"}, document.StatusNameRequired},
		{"missing database", document.Table{Name: "orders"}, document.StatusDatabaseNameRequired},
		{"caller supplied id", document.Table{ID: "x", Name: "orders", Database: "sales"}, document.StatusIDExisted},
		{"valid", document.Table{Name: "orders", Database: "sales"}, document.StatusSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, tbs, _ := setupWorkers(t)
			in := tt.in
			r, err := tbs.Create(ctx, &in)
			if err != nil {
				t.Fatal(err)
			}
			if r.Status != tt.want {
				t.Fatalf("status = %s, want %s", r.Status, tt.want)
			}
		})
	}
}

func TestTableCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("same name allowed across databases", func(t *testing.T) {
		_, tbs, _ := setupWorkers(t)
		createTable(t, tbs, "orders", "sales")
		createTable(t, tbs, "orders", "billing")

		r, err := tbs.Create(ctx, &document.Table{Name: "orders", Database: "sales"})
		if err != nil {
			t.Fatal(err)
		}
		if r.Status != document.StatusNameExist {
			t.Fatalf("duplicate in same database: status = %s, want NAME_EXIST", r.Status)
		}
	})

	t.Run("strips fields projection", func(t *testing.T) {
		_, tbs, _ := setupWorkers(t)
		r, err := tbs.Create(ctx, &document.Table{
			Name:     "orders",
			Database: "sales",
			Fields:   []document.Field{{Name: "smuggled"}},
		})
		if err != nil {
			t.Fatal(err)
		}
		got, err := tbs.Get(ctx, r.Data.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Data.Fields != nil {
			t.Fatalf("fields projection persisted: %v", got.Data.Fields)
		}
	})
}

func TestTableShow(t *testing.T) {
	ctx := context.Background()
	_, tbs, _ := setupWorkers(t)
	createTable(t, tbs, "orders", "sales")
	createTable(t, tbs, "invoices", "sales")
	createTable(t, tbs, "users", "auth")

	r, err := tbs.Show(ctx, "sales")
	if err != nil {
		t.Fatal(err)
	}
	if !r.OK() || len(r.Data) != 2 {
		t.Fatalf("Show(sales) = %d tables, status %s", len(r.Data), r.Status)
	}

	r, err = tbs.Show(ctx, "empty")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != document.StatusItemNotFound {
		t.Fatalf("Show(empty) status = %s, want ITEM_NOT_FOUND", r.Status)
	}
}

func TestTableAlter(t *testing.T) {
	ctx := context.Background()

	t.Run("merges allow list", func(t *testing.T) {
		_, tbs, _ := setupWorkers(t)
		tb := createTable(t, tbs, "orders", "sales")

		r, err := tbs.Alter(ctx, &document.Table{
			ID:        tb.ID,
			Position:  document.Point{X: 120, Y: 48},
			Primaries: []string{"id"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if !r.OK() {
			t.Fatalf("status = %s (%s)", r.Status, r.Detail)
		}
		if r.Data.Position != (document.Point{X: 120, Y: 48}) {
			t.Fatalf("Position = %+v", r.Data.Position)
		}
		if diff := cmp.Diff([]string{"id"}, r.Data.Primaries); diff != "" {
			t.Fatalf("Primaries: %s", diff)
		}
		if r.Data.Name != "orders" || r.Data.Database != "sales" {
			t.Fatalf("alter clobbered identity attributes: %+v", r.Data)
		}
	})

	t.Run("fields never writable", func(t *testing.T) {
		_, tbs, _ := setupWorkers(t)
		tb := createTable(t, tbs, "orders", "sales")

		r, err := tbs.Alter(ctx, &document.Table{
			ID:     tb.ID,
			Fields: []document.Field{{Name: "smuggled"}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if !r.OK() {
			t.Fatalf("status = %s", r.Status)
		}
		got, err := tbs.Get(ctx, tb.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Data.Fields != nil {
			t.Fatalf("fields written through alter: %v", got.Data.Fields)
		}
	})
}

func TestTableDrop(t *testing.T) {
	ctx := context.Background()

	t.Run("by natural key", func(t *testing.T) {
		_, tbs, _ := setupWorkers(t)
		tb := createTable(t, tbs, "orders", "sales")
		createTable(t, tbs, "orders", "billing")

		r, err := tbs.DropByName(ctx, "orders", "sales")
		if err != nil {
			t.Fatal(err)
		}
		if !r.OK() || r.Data.ID != tb.ID {
			t.Fatalf("DropByName = %+v (status %s)", r.Data, r.Status)
		}
		// The namesake in the other database survives.
		if got, _ := tbs.GetByName(ctx, "orders", "billing"); !got.OK() {
			t.Fatalf("wrong table dropped: %s", got.Status)
		}
	})
}
