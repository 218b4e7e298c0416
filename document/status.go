package document

// Status reports the outcome of a validation or store operation.
// Failures are returned values, never panics or raw errors.
type Status int

const (
	// StatusValid means validation passed; the operation may proceed.
	StatusValid Status = 0
	// StatusSuccess means the operation completed.
	StatusSuccess Status = 1
	// StatusFailed is a generic operation failure.
	StatusFailed Status = 2
	// StatusIDExisted is returned when an insert carries a caller-supplied id.
	StatusIDExisted Status = 3
	// StatusIDRequired is returned when a replace or delete omits the id.
	StatusIDRequired Status = 4
	// StatusNameExist is returned when a uniqueness constraint is violated.
	StatusNameExist Status = 5
	// StatusNameRequired is returned when a document omits its name.
	StatusNameRequired Status = 6
	// StatusItemNotFound distinguishes "no rows" from a failed query.
	StatusItemNotFound Status = 7
)

// Database statuses.
const (
	StatusTypeRequired Status = 100
)

// Table statuses.
const (
	StatusDatabaseNameRequired Status = 200
)

// Field statuses.
const (
	StatusDataTypeRequired      Status = 300
	StatusTypeSizeRequired      Status = 301
	StatusTypeItemRequired      Status = 302
	StatusTableNameRequired     Status = 303
	StatusFloatingPointRequired Status = 304
	StatusFloatingDigitRequired Status = 305
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "VALID"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	case StatusIDExisted:
		return "ID_EXISTED"
	case StatusIDRequired:
		return "ID_REQUIRED"
	case StatusNameExist:
		return "NAME_EXIST"
	case StatusNameRequired:
		return "NAME_REQUIRED"
	case StatusItemNotFound:
		return "ITEM_NOT_FOUND"
	case StatusTypeRequired:
		return "TYPE_REQUIRED"
	case StatusDatabaseNameRequired:
		return "DATABASE_NAME_REQUIRED"
	case StatusDataTypeRequired:
		return "DATA_TYPE_REQUIRED"
	case StatusTypeSizeRequired:
		return "TYPE_SIZE_REQUIRED"
	case StatusTypeItemRequired:
		return "TYPE_ITEM_REQUIRED"
	case StatusTableNameRequired:
		return "TABLE_NAME_REQUIRED"
	case StatusFloatingPointRequired:
		return "FLOATING_POINT_REQUIRED"
	case StatusFloatingDigitRequired:
		return "FLOATING_DIGIT_REQUIRED"
	default:
		return "UNKNOWN"
	}
}

// Result is the outcome of one store or worker operation.
type Result[T any] struct {
	Status Status
	Data   T
	Detail string
}

// OK reports whether the operation completed successfully.
func (r Result[T]) OK() bool {
	return r.Status == StatusSuccess
}

// Fail builds a failed result carrying only a status.
func Fail[T any](s Status) Result[T] {
	return Result[T]{Status: s}
}

// FailDetail builds a failed result with a human-readable detail.
func FailDetail[T any](s Status, detail string) Result[T] {
	return Result[T]{Status: s, Detail: detail}
}

// Succeed builds a successful result carrying data.
func Succeed[T any](data T) Result[T] {
	return Result[T]{Status: StatusSuccess, Data: data}
}
