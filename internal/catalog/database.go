package catalog

import (
	"context"
	"log/slog"

	"github.com/shakahl/db-diagram/document"
	"github.com/shakahl/db-diagram/internal/docdb"
)

// DatabaseWorker manages design documents of kind database. Database names
// are globally unique.
type DatabaseWorker struct {
	drv  *docdb.Driver
	decl *docdb.Declaration[*document.Database]
	log  *slog.Logger
}

// NewDatabaseWorker registers the database store on drv. It must be called
// before the driver is opened.
func NewDatabaseWorker(drv *docdb.Driver, log *slog.Logger) (*DatabaseWorker, error) {
	w := &DatabaseWorker{
		drv: drv,
		log: log.With("worker", databaseStore),
	}
	w.decl = &docdb.Declaration[*document.Database]{
		Store: databaseStore,
		Indexes: []docdb.IndexDecl[*document.Database]{
			{
				Name:    databaseNameIndex,
				KeyPath: []string{"name"},
				Unique:  true,
				Key:     func(d *document.Database) []string { return []string{d.Name} },
			},
		},
		Validate: validateDatabase,
	}
	if err := docdb.Register(w.drv, w.decl); err != nil {
		return nil, err
	}
	return w, nil
}

func validateDatabase(d *document.Database, insert bool) (document.Status, string) {
	if insert && d.ID != "" {
		return document.StatusIDExisted, ""
	}
	if !insert && d.ID == "" {
		return document.StatusIDRequired, ""
	}
	if d.Name == "" {
		return document.StatusNameRequired, ""
	}
	if d.Type == "" {
		return document.StatusTypeRequired, ""
	}
	if d.Matrix.IsZero() {
		d.Matrix = document.Identity()
	}
	// Tables is a projection joined at query time, never persisted.
	d.Tables = nil
	return document.StatusValid, ""
}

// Show returns every database document.
func (w *DatabaseWorker) Show(ctx context.Context) (document.Result[[]*document.Database], error) {
	return docdb.QueryAll(ctx, w.drv, w.decl)
}

// Get returns the database with the given id.
func (w *DatabaseWorker) Get(ctx context.Context, id string) (document.Result[*document.Database], error) {
	return docdb.QueryByID(ctx, w.drv, w.decl, id)
}

// GetByName resolves a database by its unique name.
func (w *DatabaseWorker) GetByName(ctx context.Context, name string) (document.Result[*document.Database], error) {
	r, err := docdb.QueryAllByIndex(ctx, w.drv, w.decl, databaseNameIndex, []string{name})
	if err != nil {
		return document.Result[*document.Database]{}, err
	}
	return first(r), nil
}

// Create validates and inserts a new database document.
func (w *DatabaseWorker) Create(ctx context.Context, d *document.Database) (document.Result[*document.Database], error) {
	r, err := docdb.Insert(ctx, w.drv, w.decl, d)
	if err == nil && r.OK() {
		w.log.InfoContext(ctx, "created", "id", r.Data.ID, "name", r.Data.Name)
	}
	return r, err
}

// Alter merges updatable attributes of patch into the stored document and
// rewrites it. Zero-valued attributes of patch leave the stored value alone.
// The table projection is never writable through Alter.
func (w *DatabaseWorker) Alter(ctx context.Context, patch *document.Database) (document.Result[*document.Database], error) {
	if patch.ID == "" {
		return document.Fail[*document.Database](document.StatusIDRequired), nil
	}
	cur, err := docdb.QueryByID(ctx, w.drv, w.decl, patch.ID)
	if err != nil || !cur.OK() {
		return cur, err
	}
	next := cur.Data.Clone()
	if patch.Name != "" {
		next.Name = patch.Name
	}
	if patch.Engine != "" {
		next.Engine = patch.Engine
	}
	if patch.Type != "" {
		next.Type = patch.Type
	}
	if !patch.Matrix.IsZero() {
		next.Matrix = patch.Matrix
	}
	return docdb.Replace(ctx, w.drv, w.decl, next)
}

// Drop deletes the database with the given id and returns the removed
// document.
func (w *DatabaseWorker) Drop(ctx context.Context, id string) (document.Result[*document.Database], error) {
	r, err := docdb.Delete(ctx, w.drv, w.decl, id, true)
	if err == nil && r.OK() {
		w.log.InfoContext(ctx, "dropped", "id", id)
	}
	return r, err
}

// DropByName resolves name to a stored database, deletes it and returns the
// removed document so callers can fan out a change event carrying it.
func (w *DatabaseWorker) DropByName(ctx context.Context, name string) (document.Result[*document.Database], error) {
	cur, err := w.GetByName(ctx, name)
	if err != nil || !cur.OK() {
		return cur, err
	}
	if _, err := docdb.Delete(ctx, w.drv, w.decl, cur.Data.ID, false); err != nil {
		return document.Result[*document.Database]{}, err
	}
	w.log.InfoContext(ctx, "dropped", "id", cur.Data.ID, "name", name)
	return cur, nil
}
