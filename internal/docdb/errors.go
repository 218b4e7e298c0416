package docdb

import "fmt"

// StoreError wraps a platform failure (I/O error, corrupt row, closed
// handle) with the operation that hit it and a human-readable detail.
// Validation and not-found outcomes are statuses, not StoreErrors.
type StoreError struct {
	Op     string
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("docdb: %s: %s: %v", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("docdb: %s: %s", e.Op, e.Detail)
}

// Unwrap returns the underlying platform error.
func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op, detail string, err error) *StoreError {
	return &StoreError{Op: op, Detail: detail, Err: err}
}
