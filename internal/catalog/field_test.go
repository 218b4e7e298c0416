package catalog

import (
	"context"
	"testing"

	"github.com/shakahl/db-diagram/document"
)

func baseField(name string) document.Field {
	return document.Field{
		Name:     name,
		Database: "sales",
		Table:    "orders",
		Type:     document.Boolean,
	}
}

func TestFieldValidation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		mutate func(f *document.Field)
		want   document.Status
	}{
		{"missing name", func(f *document.Field) { f.Name = "" }, document.StatusNameRequired},
		{"missing table", func(f *document.Field) { f.Table = "" }, document.StatusTableNameRequired},
		{"missing database", func(f *document.Field) { f.Database = "" }, document.StatusDatabaseNameRequired},
		{"missing type", func(f *document.Field) { f.Type = "" }, document.StatusDataTypeRequired},
		{"caller supplied id", func(f *document.Field) { f.ID = "x" }, document.StatusIDExisted},
		{"enum without items", func(f *document.Field) { f.Type = document.Enum }, document.StatusTypeItemRequired},
		{"enum with items", func(f *document.Field) {
			f.Type = document.Enum
			f.Items = []string{"new", "paid"}
		}, document.StatusSuccess},
		{"varchar without size", func(f *document.Field) { f.Type = document.VarChar }, document.StatusTypeSizeRequired},
		{"varchar with size", func(f *document.Field) {
			f.Type = document.VarChar
			f.Size = 255
		}, document.StatusSuccess},
		{"int without size", func(f *document.Field) { f.Type = document.Int }, document.StatusTypeSizeRequired},
		{"float bare", func(f *document.Field) { f.Type = document.Float }, document.StatusFloatingPointRequired},
		{"float with fpoint", func(f *document.Field) {
			f.Type = document.Float
			f.FPoint = 2
		}, document.StatusSuccess},
		{"float with size and digit", func(f *document.Field) {
			f.Type = document.Float
			f.Size = 10
			f.Digit = 2
		}, document.StatusSuccess},
		{"decimal without size", func(f *document.Field) {
			f.Type = document.Decimal
			f.Digit = 2
		}, document.StatusTypeSizeRequired},
		{"decimal without digit", func(f *document.Field) {
			f.Type = document.Decimal
			f.Size = 10
		}, document.StatusFloatingDigitRequired},
		{"double complete", func(f *document.Field) {
			f.Type = document.Double
			f.Size = 10
			f.Digit = 4
		}, document.StatusSuccess},
		{"unsized kinds pass", func(f *document.Field) { f.Type = document.Date }, document.StatusSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, fds := setupWorkers(t)
			f := baseField("state")
			tt.mutate(&f)
			r, err := fds.Create(ctx, &f)
			if err != nil {
				t.Fatal(err)
			}
			if r.Status != tt.want {
				t.Fatalf("status = %s (%s), want %s", r.Status, r.Detail, tt.want)
			}
		})
	}
}

func TestFieldDefaults(t *testing.T) {
	ctx := context.Background()

	t.Run("kind defaults to normal", func(t *testing.T) {
		_, _, fds := setupWorkers(t)
		f := baseField("state")
		got := createField(t, fds, &f)
		if got.Kind != document.KindNormal {
			t.Fatalf("Kind = %s, want NORMAL", got.Kind)
		}
		if got.Key {
			t.Fatal("normal field marked as key")
		}
	})

	t.Run("keyed kind implies key flag", func(t *testing.T) {
		_, _, fds := setupWorkers(t)
		f := baseField("id")
		f.Kind = document.KindPrimary
		got := createField(t, fds, &f)
		if !got.Key {
			t.Fatal("primary field not marked as key")
		}
	})

	t.Run("order appends at sibling count", func(t *testing.T) {
		_, _, fds := setupWorkers(t)
		for i, name := range []string{"id", "total", "state"} {
			f := baseField(name)
			got := createField(t, fds, &f)
			if got.Order == nil || *got.Order != i {
				t.Fatalf("field %s Order = %v, want %d", name, got.Order, i)
			}
		}
		// A field of another table starts its own sequence.
		other := baseField("id")
		other.Table = "invoices"
		got := createField(t, fds, &other)
		if got.Order == nil || *got.Order != 0 {
			t.Fatalf("other table Order = %v, want 0", got.Order)
		}
	})

	t.Run("explicit order kept", func(t *testing.T) {
		_, _, fds := setupWorkers(t)
		f := baseField("state")
		seven := 7
		f.Order = &seven
		got := createField(t, fds, &f)
		if got.Order == nil || *got.Order != 7 {
			t.Fatalf("Order = %v, want 7", got.Order)
		}
	})

	t.Run("concurrent creates get distinct orders", func(t *testing.T) {
		_, _, fds := setupWorkers(t)
		const n = 8
		done := make(chan *document.Field, n)
		for i := range n {
			go func(i int) {
				f := baseField(fieldName(i))
				r, err := fds.Create(ctx, &f)
				if err != nil || !r.OK() {
					done <- nil
					return
				}
				done <- r.Data
			}(i)
		}
		seen := make(map[int]bool)
		for range n {
			got := <-done
			if got == nil {
				t.Fatal("concurrent create failed")
			}
			if got.Order == nil || seen[*got.Order] {
				t.Fatalf("duplicate or missing order: %v", got.Order)
			}
			seen[*got.Order] = true
		}
	})
}

func fieldName(i int) string {
	return string(rune('a' + i))
}

func TestFieldAlter(t *testing.T) {
	ctx := context.Background()

	t.Run("merges allow list", func(t *testing.T) {
		_, _, fds := setupWorkers(t)
		f := baseField("state")
		created := createField(t, fds, &f)

		r, err := fds.Alter(ctx, &document.Field{
			ID:   created.ID,
			Name: "status",
			Kind: document.KindUnique,
			Key:  true,
		})
		if err != nil {
			t.Fatal(err)
		}
		if !r.OK() {
			t.Fatalf("status = %s (%s)", r.Status, r.Detail)
		}
		if r.Data.Name != "status" || r.Data.Kind != document.KindUnique || !r.Data.Key {
			t.Fatalf("alter result = %+v", r.Data)
		}
		// Unsupplied attributes keep their stored values.
		if r.Data.Type != document.Boolean || r.Data.Database != "sales" {
			t.Fatalf("alter clobbered stored attributes: %+v", r.Data)
		}
	})

	t.Run("reference merge", func(t *testing.T) {
		_, _, fds := setupWorkers(t)
		f := baseField("customer")
		created := createField(t, fds, &f)

		ref := &document.ReferenceField{Origin: "customers", Source: "id"}
		r, err := fds.Alter(ctx, &document.Field{ID: created.ID, Reference: ref})
		if err != nil {
			t.Fatal(err)
		}
		if !r.OK() || r.Data.Reference == nil || r.Data.Reference.Origin != "customers" {
			t.Fatalf("reference not merged: %+v", r.Data)
		}
	})
}

func TestFieldDrop(t *testing.T) {
	ctx := context.Background()

	t.Run("by natural key", func(t *testing.T) {
		_, _, fds := setupWorkers(t)
		f := baseField("state")
		created := createField(t, fds, &f)

		r, err := fds.DropByName(ctx, "state", "sales", "orders")
		if err != nil {
			t.Fatal(err)
		}
		if !r.OK() || r.Data.ID != created.ID {
			t.Fatalf("DropByName = %+v (status %s)", r.Data, r.Status)
		}
		if got, _ := fds.Get(ctx, created.ID); got.Status != document.StatusItemNotFound {
			t.Fatalf("field still present: %s", got.Status)
		}
	})
}
