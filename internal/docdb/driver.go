package docdb

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shakahl/db-diagram/document"
	"github.com/shakahl/db-diagram/internal/hashid"
)

// State is the lifecycle state of the driver's physical connection.
type State int

const (
	// StateClosed means no physical connection is held.
	StateClosed State = iota
	// StateOpening means an open is in flight.
	StateOpening
	// StateUpgrading means the open found a schema version mismatch and is
	// running migration.
	StateUpgrading
	// StateOpen means the connection is ready.
	StateOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpening:
		return "OPENING"
	case StateUpgrading:
		return "UPGRADING"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// ValidateFunc is an entity's validation contract. It never panics and
// reports failure as a status plus optional detail, not an error.
type ValidateFunc[T any] func(doc T, insert bool) (document.Status, string)

// IndexDecl declares one secondary index together with the key extractor
// the in-memory index uses at runtime.
type IndexDecl[T Doc[T]] struct {
	Name    string
	KeyPath []string
	Unique  bool
	Key     func(T) []string
}

// Declaration is everything the driver needs to manage one entity store:
// its physical schema and its validation contract. Entity workers own one
// Declaration each and register it before the driver opens.
type Declaration[T Doc[T]] struct {
	Store    string
	Indexes  []IndexDecl[T]
	Validate ValidateFunc[T]

	// Runtime state, managed by the driver under its mutex.
	table   *Table[T]
	indexes map[string]*Index[T]
}

func (decl *Declaration[T]) storeName() string { return decl.Store }

func (decl *Declaration[T]) schema() Schema {
	s := Schema{Store: decl.Store, PrimaryKey: "id"}
	for _, ix := range decl.Indexes {
		s.Indexes = append(s.Indexes, IndexSchema{Name: ix.Name, KeyPath: ix.KeyPath, Unique: ix.Unique})
	}
	return s
}

func (decl *Declaration[T]) storeColumns() ([]column, error) {
	return columnsFromType[T]()
}

func (decl *Declaration[T]) open(dir string) error {
	t, err := OpenTable[T](filepath.Join(dir, decl.Store+".jsonl"))
	if err != nil {
		return err
	}
	decl.table = t
	decl.indexes = make(map[string]*Index[T], len(decl.Indexes))
	for _, ix := range decl.Indexes {
		decl.indexes[ix.Name] = newIndex(t, ix.Name, ix.Unique, ix.Key)
	}
	return nil
}

func (decl *Declaration[T]) shut() {
	decl.table = nil
	decl.indexes = nil
}

// registration is the untyped view of a Declaration held by the driver.
type registration interface {
	storeName() string
	schema() Schema
	storeColumns() ([]column, error)
	open(dir string) error
	shut()
}

// Options configure a Driver.
type Options struct {
	// Version is the declared store-format version recorded in the manifest.
	Version int
	// Namespace is mixed into every minted identifier, so identical names in
	// different deployments yield unrelated ids.
	Namespace string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Driver owns the one physical connection to the data directory. Entity
// workers never open their own; they go through a shared Driver.
type Driver struct {
	dir       string
	version   int
	namespace string
	log       *slog.Logger

	mu      sync.Mutex
	state   State
	regs    []registration
	watcher *fsnotify.Watcher
}

// New creates a Driver for the given data directory. No I/O happens until
// Open or the first operation.
func New(dir string, opts Options) *Driver {
	if opts.Version <= 0 {
		opts.Version = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Driver{
		dir:       dir,
		version:   opts.Version,
		namespace: opts.Namespace,
		log:       opts.Logger,
	}
}

// Register adds an entity declaration. It must be called before the driver
// opens; registering against an open driver is a programming error.
func Register[T Doc[T]](d *Driver, decl *Declaration[T]) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateClosed {
		return storeErr("register", decl.Store, fmt.Errorf("driver is %s", d.state))
	}
	if decl.Validate == nil {
		return storeErr("register", decl.Store, fmt.Errorf("declaration has no validate contract"))
	}
	d.regs = append(d.regs, decl)
	return nil
}

// Open makes the driver ready, running schema migration when needed.
// It is idempotent; concurrent callers share the same in-flight open.
func (d *Driver) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureOpenLocked(ctx)
}

// State returns the current connection state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Close releases the physical connection. The next operation re-opens.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutLocked()
	return nil
}

func (d *Driver) shutLocked() {
	if d.state == StateClosed {
		return
	}
	if d.watcher != nil {
		_ = d.watcher.Close()
		d.watcher = nil
	}
	for _, reg := range d.regs {
		reg.shut()
	}
	d.state = StateClosed
}

// ensureOpenLocked opens the store if it is not already open. The caller
// holds d.mu, which is what makes concurrent calls share one in-flight open.
func (d *Driver) ensureOpenLocked(ctx context.Context) error {
	if d.state == StateOpen {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.state = StateOpening

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		d.state = StateClosed
		return storeErr("open", "create data directory", err)
	}
	if err := d.migrateLocked(); err != nil {
		d.state = StateClosed
		return err
	}
	for _, reg := range d.regs {
		if err := reg.open(d.dir); err != nil {
			d.shutLocked()
			return err
		}
	}
	if err := d.watchLocked(); err != nil {
		// The store works without the watcher; external invalidation is
		// simply not detected.
		d.log.Warn("store watcher unavailable", "err", err)
	}
	d.state = StateOpen
	d.log.Debug("store open", "dir", d.dir, "version", d.version, "stores", len(d.regs))
	return nil
}

// migrateLocked converges the physical schema to the current declarations:
// missing stores are created with all their indexes, existing stores have
// declared-but-missing indexes created and undeclared ones dropped.
func (d *Driver) migrateLocked() error {
	man, err := readManifest(d.dir)
	if err != nil {
		return err
	}
	if man.Version != d.version {
		d.state = StateUpgrading
		d.log.Info("store schema upgrade", "from", man.Version, "to", d.version)
	}

	for _, reg := range d.regs {
		name := reg.storeName()
		declared := reg.schema()
		cols, err := reg.storeColumns()
		if err != nil {
			return storeErr("migrate", "reflect columns for "+name, err)
		}

		cur, ok := man.Stores[name]
		if !ok {
			d.log.Info("create store", "store", name, "indexes", len(declared.Indexes))
		} else {
			present := make(map[string]bool, len(cur.Indexes))
			for _, ix := range cur.Indexes {
				present[ix.Name] = true
			}
			for _, ix := range declared.Indexes {
				if !present[ix.Name] {
					d.log.Info("create index", "store", name, "index", ix.Name)
				}
				delete(present, ix.Name)
			}
			// Remaining physical indexes are no longer declared.
			for ixName := range present {
				d.log.Info("drop index", "store", name, "index", ixName)
			}
		}
		man.Stores[name] = manifestStore{
			PrimaryKey: declared.PrimaryKey,
			Indexes:    declared.Indexes,
			Columns:    cols,
		}
	}

	man.Version = d.version
	return man.write(d.dir)
}

// watchLocked installs an fsnotify watcher that invalidates the handle when
// the manifest disappears underneath us (an external close signal).
func (d *Driver) watchLocked() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(d.dir); err != nil {
		_ = w.Close()
		return err
	}
	d.watcher = w
	manifestPath := filepath.Join(d.dir, manifestFile)
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name == manifestPath && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) {
					d.log.Warn("store manifest removed externally, invalidating handle")
					d.mu.Lock()
					if d.watcher == w {
						d.shutLocked()
					}
					d.mu.Unlock()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				d.log.Warn("store watcher error", "err", err)
			}
		}
	}()
	return nil
}

// acquire ensures the driver is open and returns the declaration's runtime
// handles under the driver mutex.
func acquire[T Doc[T]](ctx context.Context, d *Driver, decl *Declaration[T]) (*Table[T], map[string]*Index[T], error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureOpenLocked(ctx); err != nil {
		return nil, nil, err
	}
	if decl.table == nil {
		return nil, nil, storeErr("acquire", decl.Store, fmt.Errorf("store not registered"))
	}
	return decl.table, decl.indexes, nil
}

// Insert validates doc, mints its identifier and appends it to the store.
// A uniqueness conflict is reported as StatusNameExist before any write, by
// an explicit index lookup inside the write lock.
func Insert[T Doc[T]](ctx context.Context, d *Driver, decl *Declaration[T], doc T) (document.Result[T], error) {
	if status, detail := decl.Validate(doc, true); status != document.StatusValid {
		return document.FailDetail[T](status, detail), nil
	}
	tbl, indexes, err := acquire(ctx, d, decl)
	if err != nil {
		return document.Result[T]{}, err
	}

	var res document.Result[T]
	err = tbl.Modify(func(tx *Tx[T]) error {
		for _, idx := range indexes {
			if !idx.Unique() {
				continue
			}
			if ids := idx.LookupIDs(idx.KeyOf(doc)); len(ids) > 0 {
				res = document.FailDetail[T](document.StatusNameExist,
					fmt.Sprintf("item name %s already existed", doc.GetName()))
				return nil
			}
		}
		doc.SetID(hashid.New(doc.GetName(), d.namespace))
		doc.Stamp(time.Now(), true)
		if err := tx.Add(doc); err != nil {
			return storeErr("insert", decl.Store, err)
		}
		res = document.Succeed(doc)
		return nil
	})
	if err != nil {
		return document.Result[T]{}, err
	}
	return res, nil
}

// Replace validates doc and fully overwrites the stored record. The caller
// (the entity worker) has already merged the mutable fields into the
// authoritative copy.
func Replace[T Doc[T]](ctx context.Context, d *Driver, decl *Declaration[T], doc T) (document.Result[T], error) {
	if status, detail := decl.Validate(doc, false); status != document.StatusValid {
		return document.FailDetail[T](status, detail), nil
	}
	tbl, indexes, err := acquire(ctx, d, decl)
	if err != nil {
		return document.Result[T]{}, err
	}

	var res document.Result[T]
	err = tbl.Modify(func(tx *Tx[T]) error {
		for _, idx := range indexes {
			if !idx.Unique() {
				continue
			}
			for _, id := range idx.LookupIDs(idx.KeyOf(doc)) {
				if id != doc.GetID() {
					res = document.FailDetail[T](document.StatusNameExist,
						fmt.Sprintf("item name %s already existed", doc.GetName()))
					return nil
				}
			}
		}
		doc.Stamp(time.Now(), false)
		tx.Put(doc)
		res = document.Succeed(doc)
		return nil
	})
	if err != nil {
		return document.Result[T]{}, err
	}
	return res, nil
}

// Delete removes the record with the given id. With fetchOld the pre-delete
// snapshot is read first (StatusItemNotFound when absent) and returned;
// without it the delete is blind and succeeds with no payload.
func Delete[T Doc[T]](ctx context.Context, d *Driver, decl *Declaration[T], id string, fetchOld bool) (document.Result[T], error) {
	if id == "" {
		return document.Fail[T](document.StatusIDRequired), nil
	}
	tbl, _, err := acquire(ctx, d, decl)
	if err != nil {
		return document.Result[T]{}, err
	}

	var res document.Result[T]
	err = tbl.Modify(func(tx *Tx[T]) error {
		if fetchOld {
			prev, ok := tx.Get(id)
			if !ok {
				res = document.Fail[T](document.StatusItemNotFound)
				return nil
			}
			tx.Delete(id)
			res = document.Succeed(prev)
			return nil
		}
		tx.Delete(id)
		res = document.Result[T]{Status: document.StatusSuccess}
		return nil
	})
	if err != nil {
		return document.Result[T]{}, err
	}
	return res, nil
}

// QueryAll returns every record. Zero rows is StatusItemNotFound, which
// callers can tell apart from a failed query (an error).
func QueryAll[T Doc[T]](ctx context.Context, d *Driver, decl *Declaration[T]) (document.Result[[]T], error) {
	tbl, _, err := acquire(ctx, d, decl)
	if err != nil {
		return document.Result[[]T]{}, err
	}
	rows := tbl.All()
	if len(rows) == 0 {
		return document.Fail[[]T](document.StatusItemNotFound), nil
	}
	return document.Succeed(rows), nil
}

// QueryByID returns the record with the given id.
func QueryByID[T Doc[T]](ctx context.Context, d *Driver, decl *Declaration[T], id string) (document.Result[T], error) {
	if id == "" {
		return document.Fail[T](document.StatusIDRequired), nil
	}
	tbl, _, err := acquire(ctx, d, decl)
	if err != nil {
		return document.Result[T]{}, err
	}
	row, ok := tbl.Get(id)
	if !ok {
		return document.Fail[T](document.StatusItemNotFound), nil
	}
	return document.Succeed(row), nil
}

// QueryAllByIndex returns every record matching key on the named index.
// Zero matches is StatusItemNotFound, never an empty success.
func QueryAllByIndex[T Doc[T]](ctx context.Context, d *Driver, decl *Declaration[T], index string, key []string) (document.Result[[]T], error) {
	_, indexes, err := acquire(ctx, d, decl)
	if err != nil {
		return document.Result[[]T]{}, err
	}
	idx, ok := indexes[index]
	if !ok {
		return document.Result[[]T]{}, storeErr("query", decl.Store, fmt.Errorf("unknown index %q", index))
	}
	rows := idx.Get(key)
	if len(rows) == 0 {
		return document.Fail[[]T](document.StatusItemNotFound), nil
	}
	return document.Succeed(rows), nil
}

// Count returns the number of records matching key on the named index, or
// the total row count when index is empty.
func Count[T Doc[T]](ctx context.Context, d *Driver, decl *Declaration[T], index string, key []string) (document.Result[int], error) {
	tbl, indexes, err := acquire(ctx, d, decl)
	if err != nil {
		return document.Result[int]{}, err
	}
	if index == "" {
		return document.Succeed(tbl.Len()), nil
	}
	idx, ok := indexes[index]
	if !ok {
		return document.Result[int]{}, storeErr("count", decl.Store, fmt.Errorf("unknown index %q", index))
	}
	return document.Succeed(idx.Count(key)), nil
}
