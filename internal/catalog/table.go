package catalog

import (
	"context"
	"log/slog"

	"github.com/shakahl/db-diagram/document"
	"github.com/shakahl/db-diagram/internal/docdb"
)

// TableWorker manages design documents of kind table. A table name is unique
// within its owning database; the owning database is referenced by name.
type TableWorker struct {
	drv  *docdb.Driver
	decl *docdb.Declaration[*document.Table]
	log  *slog.Logger
}

// NewTableWorker registers the table store on drv. It must be called before
// the driver is opened.
func NewTableWorker(drv *docdb.Driver, log *slog.Logger) (*TableWorker, error) {
	w := &TableWorker{
		drv: drv,
		log: log.With("worker", tableStore),
	}
	w.decl = &docdb.Declaration[*document.Table]{
		Store: tableStore,
		Indexes: []docdb.IndexDecl[*document.Table]{
			{
				Name:    tableDatabaseIndex,
				KeyPath: []string{"database"},
				Key:     func(t *document.Table) []string { return []string{t.Database} },
			},
			{
				Name:    tableNameIndex,
				KeyPath: []string{"name", "database"},
				Unique:  true,
				Key:     func(t *document.Table) []string { return []string{t.Name, t.Database} },
			},
		},
		Validate: validateTable,
	}
	if err := docdb.Register(w.drv, w.decl); err != nil {
		return nil, err
	}
	return w, nil
}

func validateTable(t *document.Table, insert bool) (document.Status, string) {
	if insert && t.ID != "" {
		return document.StatusIDExisted, ""
	}
	if !insert && t.ID == "" {
		return document.StatusIDRequired, ""
	}
	if t.Name == "" {
		return document.StatusNameRequired, ""
	}
	if t.Database == "" {
		return document.StatusDatabaseNameRequired, ""
	}
	// Fields is a projection joined at query time, never persisted.
	t.Fields = nil
	return document.StatusValid, ""
}

// Show returns every table owned by the named database.
func (w *TableWorker) Show(ctx context.Context, database string) (document.Result[[]*document.Table], error) {
	return docdb.QueryAllByIndex(ctx, w.drv, w.decl, tableDatabaseIndex, []string{database})
}

// Get returns the table with the given id.
func (w *TableWorker) Get(ctx context.Context, id string) (document.Result[*document.Table], error) {
	return docdb.QueryByID(ctx, w.drv, w.decl, id)
}

// GetByName resolves a table by its natural key (name, database).
func (w *TableWorker) GetByName(ctx context.Context, name, database string) (document.Result[*document.Table], error) {
	r, err := docdb.QueryAllByIndex(ctx, w.drv, w.decl, tableNameIndex, []string{name, database})
	if err != nil {
		return document.Result[*document.Table]{}, err
	}
	return first(r), nil
}

// Create validates and inserts a new table document.
func (w *TableWorker) Create(ctx context.Context, t *document.Table) (document.Result[*document.Table], error) {
	r, err := docdb.Insert(ctx, w.drv, w.decl, t)
	if err == nil && r.OK() {
		w.log.InfoContext(ctx, "created", "id", r.Data.ID, "name", r.Data.Name, "database", r.Data.Database)
	}
	return r, err
}

// Alter merges updatable attributes of patch into the stored document and
// rewrites it. Zero-valued attributes of patch leave the stored value alone.
// Fields live in their own store and are never writable through Alter.
func (w *TableWorker) Alter(ctx context.Context, patch *document.Table) (document.Result[*document.Table], error) {
	if patch.ID == "" {
		return document.Fail[*document.Table](document.StatusIDRequired), nil
	}
	cur, err := docdb.QueryByID(ctx, w.drv, w.decl, patch.ID)
	if err != nil || !cur.OK() {
		return cur, err
	}
	next := cur.Data.Clone()
	if patch.Name != "" {
		next.Name = patch.Name
	}
	if patch.Primaries != nil {
		next.Primaries = patch.Primaries
	}
	if patch.Uniques != nil {
		next.Uniques = patch.Uniques
	}
	if patch.Foreigns != nil {
		next.Foreigns = patch.Foreigns
	}
	if patch.Position != (document.Point{}) {
		next.Position = patch.Position
	}
	return docdb.Replace(ctx, w.drv, w.decl, next)
}

// Drop deletes the table with the given id and returns the removed document.
func (w *TableWorker) Drop(ctx context.Context, id string) (document.Result[*document.Table], error) {
	r, err := docdb.Delete(ctx, w.drv, w.decl, id, true)
	if err == nil && r.OK() {
		w.log.InfoContext(ctx, "dropped", "id", id)
	}
	return r, err
}

// DropByName resolves the natural key (name, database) to a stored table,
// deletes it and returns the removed document.
func (w *TableWorker) DropByName(ctx context.Context, name, database string) (document.Result[*document.Table], error) {
	cur, err := w.GetByName(ctx, name, database)
	if err != nil || !cur.OK() {
		return cur, err
	}
	if _, err := docdb.Delete(ctx, w.drv, w.decl, cur.Data.ID, false); err != nil {
		return document.Result[*document.Table]{}, err
	}
	w.log.InfoContext(ctx, "dropped", "id", cur.Data.ID, "name", name, "database", database)
	return cur, nil
}
