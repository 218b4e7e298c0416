package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shakahl/db-diagram/document"
	"github.com/shakahl/db-diagram/internal/docdb"
)

// FieldWorker manages design documents of kind field. A field name is unique
// within its owning (database, table) pair.
type FieldWorker struct {
	drv  *docdb.Driver
	decl *docdb.Declaration[*document.Field]
	log  *slog.Logger

	// orderMu serializes order assignment so two concurrent inserts into the
	// same table cannot both read the same sibling count.
	orderMu sync.Mutex
}

// NewFieldWorker registers the field store on drv. It must be called before
// the driver is opened.
func NewFieldWorker(drv *docdb.Driver, log *slog.Logger) (*FieldWorker, error) {
	w := &FieldWorker{
		drv: drv,
		log: log.With("worker", fieldStore),
	}
	w.decl = &docdb.Declaration[*document.Field]{
		Store: fieldStore,
		Indexes: []docdb.IndexDecl[*document.Field]{
			{
				Name:    fieldTableIndex,
				KeyPath: []string{"database", "table"},
				Key:     func(f *document.Field) []string { return []string{f.Database, f.Table} },
			},
			{
				Name:    fieldNaturalIndex,
				KeyPath: []string{"name", "database", "table"},
				Unique:  true,
				Key:     func(f *document.Field) []string { return []string{f.Name, f.Database, f.Table} },
			},
		},
		Validate: validateField,
	}
	if err := docdb.Register(w.drv, w.decl); err != nil {
		return nil, err
	}
	return w, nil
}

func validateField(f *document.Field, insert bool) (document.Status, string) {
	if insert && f.ID != "" {
		return document.StatusIDExisted, ""
	}
	if !insert && f.ID == "" {
		return document.StatusIDRequired, ""
	}
	if f.Name == "" {
		return document.StatusNameRequired, ""
	}
	if f.Table == "" {
		return document.StatusTableNameRequired, ""
	}
	if f.Database == "" {
		return document.StatusDatabaseNameRequired, ""
	}
	if f.Type == "" {
		return document.StatusDataTypeRequired, ""
	}
	switch f.Type {
	case document.Enum:
		if len(f.Items) == 0 {
			return document.StatusTypeItemRequired,
				fmt.Sprintf("Field %s type %s required additional items", f.Name, f.Type)
		}
	case document.Float:
		// Precision is given either as a single fpoint or as size plus digit.
		if f.FPoint == 0 && (f.Size == 0 || f.Digit == 0) {
			return document.StatusFloatingPointRequired, ""
		}
	case document.Double, document.Decimal:
		if f.Size == 0 {
			return document.StatusTypeSizeRequired,
				fmt.Sprintf("Field %s type %s required additional size", f.Name, f.Type)
		}
		if f.Digit == 0 {
			return document.StatusFloatingDigitRequired,
				fmt.Sprintf("Field %s type %s required additional digit count", f.Name, f.Type)
		}
	case document.TinyInt, document.SmallInt, document.Medium, document.Int,
		document.BigInt, document.Text, document.Blob, document.VarBinary,
		document.VarChar, document.UnicodeVarChar:
		if f.Size == 0 {
			return document.StatusTypeSizeRequired,
				fmt.Sprintf("Field %s type %s required additional size", f.Name, f.Type)
		}
	}
	if f.Kind == "" {
		f.Kind = document.KindNormal
	}
	// A keyed kind implies the key flag; kind wins over a stale flag.
	if !f.Key {
		f.Key = f.Kind != document.KindNormal
	}
	return document.StatusValid, ""
}

// Show returns every field of the named (database, table) pair, in stored
// order.
func (w *FieldWorker) Show(ctx context.Context, database, table string) (document.Result[[]*document.Field], error) {
	return docdb.QueryAllByIndex(ctx, w.drv, w.decl, fieldTableIndex, []string{database, table})
}

// Get returns the field with the given id.
func (w *FieldWorker) Get(ctx context.Context, id string) (document.Result[*document.Field], error) {
	return docdb.QueryByID(ctx, w.drv, w.decl, id)
}

// GetByName resolves a field by its natural key (name, database, table).
func (w *FieldWorker) GetByName(ctx context.Context, name, database, table string) (document.Result[*document.Field], error) {
	r, err := docdb.QueryAllByIndex(ctx, w.drv, w.decl, fieldNaturalIndex, []string{name, database, table})
	if err != nil {
		return document.Result[*document.Field]{}, err
	}
	return first(r), nil
}

// Create validates and inserts a new field document. When the caller leaves
// Order unset it is assigned the current sibling count, appending the field
// at the end of its table.
func (w *FieldWorker) Create(ctx context.Context, f *document.Field) (document.Result[*document.Field], error) {
	w.orderMu.Lock()
	defer w.orderMu.Unlock()
	if f.Order == nil && f.Database != "" && f.Table != "" {
		cnt, err := docdb.Count(ctx, w.drv, w.decl, fieldTableIndex, []string{f.Database, f.Table})
		if err != nil {
			return document.Result[*document.Field]{}, err
		}
		n := cnt.Data
		f.Order = &n
	}
	r, err := docdb.Insert(ctx, w.drv, w.decl, f)
	if err == nil && r.OK() {
		w.log.InfoContext(ctx, "created", "id", r.Data.ID, "name", r.Data.Name,
			"database", r.Data.Database, "table", r.Data.Table)
	}
	return r, err
}

// Alter merges updatable attributes of patch into the stored document and
// rewrites it. Zero-valued attributes of patch leave the stored value alone.
func (w *FieldWorker) Alter(ctx context.Context, patch *document.Field) (document.Result[*document.Field], error) {
	if patch.ID == "" {
		return document.Fail[*document.Field](document.StatusIDRequired), nil
	}
	cur, err := docdb.QueryByID(ctx, w.drv, w.decl, patch.ID)
	if err != nil || !cur.OK() {
		return cur, err
	}
	next := cur.Data.Clone()
	if patch.Name != "" {
		next.Name = patch.Name
	}
	if patch.Type != "" {
		next.Type = patch.Type
	}
	if patch.Size != 0 {
		next.Size = patch.Size
	}
	if patch.Items != nil {
		next.Items = patch.Items
	}
	if patch.Kind != "" {
		next.Kind = patch.Kind
	}
	if patch.Key {
		next.Key = true
	}
	if patch.Utilizeds != nil {
		next.Utilizeds = patch.Utilizeds
	}
	if patch.Reference != nil {
		next.Reference = patch.Reference
	}
	if patch.Order != nil {
		next.Order = patch.Order
	}
	return docdb.Replace(ctx, w.drv, w.decl, next)
}

// Drop deletes the field with the given id and returns the removed document.
func (w *FieldWorker) Drop(ctx context.Context, id string) (document.Result[*document.Field], error) {
	r, err := docdb.Delete(ctx, w.drv, w.decl, id, true)
	if err == nil && r.OK() {
		w.log.InfoContext(ctx, "dropped", "id", id)
	}
	return r, err
}

// DropByName resolves the natural key (name, database, table) to a stored
// field, deletes it and returns the removed document.
func (w *FieldWorker) DropByName(ctx context.Context, name, database, table string) (document.Result[*document.Field], error) {
	cur, err := w.GetByName(ctx, name, database, table)
	if err != nil || !cur.OK() {
		return cur, err
	}
	if _, err := docdb.Delete(ctx, w.drv, w.decl, cur.Data.ID, false); err != nil {
		return document.Result[*document.Field]{}, err
	}
	w.log.InfoContext(ctx, "dropped", "id", cur.Data.ID, "name", name, "database", database, "table", table)
	return cur, nil
}
