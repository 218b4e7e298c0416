package catalog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shakahl/db-diagram/document"
	"github.com/shakahl/db-diagram/internal/docdb"
)

// setupWorkers builds a driver with all three entity stores in a temp dir.
func setupWorkers(t *testing.T) (*DatabaseWorker, *TableWorker, *FieldWorker) {
	t.Helper()
	drv := docdb.New(t.TempDir(), docdb.Options{Version: 1, Namespace: "catalog-test"})
	log := slog.Default()
	dbs, err := NewDatabaseWorker(drv, log)
	if err != nil {
		t.Fatalf("NewDatabaseWorker: %v", err)
	}
	tbs, err := NewTableWorker(drv, log)
	if err != nil {
		t.Fatalf("NewTableWorker: %v", err)
	}
	fds, err := NewFieldWorker(drv, log)
	if err != nil {
		t.Fatalf("NewFieldWorker: %v", err)
	}
	t.Cleanup(func() {
		_ = drv.Close()
	})
	return dbs, tbs, fds
}

func createDatabase(t *testing.T, w *DatabaseWorker, name string) *document.Database {
	t.Helper()
	r, err := w.Create(context.Background(), &document.Database{Name: name, Type: document.RDMS})
	if err != nil {
		t.Fatalf("create database %s: %v", name, err)
	}
	if !r.OK() {
		t.Fatalf("create database %s: status %s (%s)", name, r.Status, r.Detail)
	}
	return r.Data
}

func createTable(t *testing.T, w *TableWorker, name, database string) *document.Table {
	t.Helper()
	r, err := w.Create(context.Background(), &document.Table{Name: name, Database: database})
	if err != nil {
		t.Fatalf("create table %s: %v", name, err)
	}
	if !r.OK() {
		t.Fatalf("create table %s: status %s (%s)", name, r.Status, r.Detail)
	}
	return r.Data
}

func createField(t *testing.T, w *FieldWorker, f *document.Field) *document.Field {
	t.Helper()
	r, err := w.Create(context.Background(), f)
	if err != nil {
		t.Fatalf("create field %s: %v", f.Name, err)
	}
	if !r.OK() {
		t.Fatalf("create field %s: status %s (%s)", f.Name, r.Status, r.Detail)
	}
	return r.Data
}
