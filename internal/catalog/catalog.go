// Package catalog implements the entity workers: the policy layer that owns
// each entity's physical schema declaration and validation contract. Workers
// are the only callers of the store driver that understand domain semantics;
// they never open their own connection.
package catalog

import (
	"github.com/shakahl/db-diagram/document"
)

// Store and index names. Index names are part of the physical schema and
// recorded in the store manifest; renaming one is a migration.
const (
	databaseStore     = "database"
	databaseNameIndex = "name"

	tableStore         = "table"
	tableDatabaseIndex = "database"
	tableNameIndex     = "name"

	fieldStore         = "field"
	fieldTableIndex    = "db-table"
	fieldNaturalIndex  = "db-table-field"
)

// first narrows a multi-row result to its first row, preserving the status.
func first[T any](r document.Result[[]T]) document.Result[T] {
	if !r.OK() {
		return document.Result[T]{Status: r.Status, Detail: r.Detail}
	}
	return document.Succeed(r.Data[0])
}
