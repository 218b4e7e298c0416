// Package docdb is the embedded store driver: a set of JSONL-backed document
// tables with in-memory secondary indexes, a manifest describing the physical
// schema, and generic transactional operations parameterized by a per-entity
// declaration.
//
// # Single connection
//
// One [Driver] owns the physical data directory. Open is idempotent and
// mutex-guarded: concurrent callers share the same in-flight open, and the
// first open runs schema migration. An external removal of the manifest
// invalidates the handle; the next operation re-opens transparently.
//
// # Concurrency
//
// Tables use pessimistic locking: every write operation holds the table
// write lock for its whole read-modify-write span, so the uniqueness
// pre-check, id minting and the append commit as one unit. There is no
// atomicity across separate calls; read-then-replace sequences race and the
// later replace wins.
//
// # Failure model
//
// Validation failures are [document.Result] values and never touch storage.
// Platform failures (I/O, corrupt rows) surface as [*StoreError].
package docdb
