// Package document defines the persisted schema-design documents (Database,
// Table, Field) and the status taxonomy shared by the store driver, the
// entity workers and the command protocol.
package document

import "time"

// DatabaseType classifies the modeled database engine family.
type DatabaseType string

const (
	RDMS  DatabaseType = "RDMS"
	NoSQL DatabaseType = "NOSQL"
	Graph DatabaseType = "GRAPH"
)

// DataType is the closed set of SQL-like field data kinds.
type DataType string

const (
	Int            DataType = "INT"
	TinyInt        DataType = "TINYINT"
	SmallInt       DataType = "SMALLINT"
	Medium         DataType = "MEDIUMINT"
	BigInt         DataType = "BIGINT"
	Decimal        DataType = "DECIMAL"
	Float          DataType = "FLOAT"
	Double         DataType = "DOUBLE"
	Char           DataType = "CHAR"
	VarChar        DataType = "VARCHAR"
	UnicodeChar    DataType = "NCHAR"
	UnicodeVarChar DataType = "NVARCHAR"
	Text           DataType = "TEXT"
	Blob           DataType = "BLOB"
	VarBinary      DataType = "VARBINARY"
	Date           DataType = "DATE"
	Time           DataType = "TIME"
	DateTime       DataType = "DATETIME"
	Timestamp      DataType = "TIMESTAMP"
	Boolean        DataType = "BOOLEAN"
	Enum           DataType = "ENUM"
)

// FieldKind classifies a field's role within its table.
type FieldKind string

const (
	KindNormal  FieldKind = "NORMAL"
	KindPrimary FieldKind = "PRIMARY"
	KindUnique  FieldKind = "UNIQUE"
	KindForeign FieldKind = "FOREIGN"
)

// Matrix is a 2D affine transform (SVG order: a b c d e f).
type Matrix struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
	E float64 `json:"e"`
	F float64 `json:"f"`
}

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

// IsZero reports whether the matrix is entirely unset.
func (m Matrix) IsZero() bool {
	return m == Matrix{}
}

// Point is a diagram coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// KeyGroup names a group of field ids, used for composite unique and
// foreign key declarations on a table.
type KeyGroup struct {
	Key string   `json:"key"`
	IDs []string `json:"ids"`
}

// UtilizedField records, on a primary field, a foreign field that uses it.
type UtilizedField struct {
	Target      string `json:"target"`
	Destination string `json:"destination"`
	Weak        bool   `json:"weak,omitempty"`
	Reference   bool   `json:"reference,omitempty"`
}

// ReferenceField records, on a foreign field, the primary field it points at.
type ReferenceField struct {
	Origin string `json:"origin"`
	Source string `json:"source"`
	Weak   bool   `json:"weak,omitempty"`
	Ref    bool   `json:"reference,omitempty"`
}

// Database is the root document of one diagram.
//
// Tables is a computed view assembled by querying the table store; it is
// never persisted inside the database document.
type Database struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Engine       string       `json:"engine,omitempty"`
	Type         DatabaseType `json:"type"`
	Matrix       Matrix       `json:"matrix"`
	Tables       []Table      `json:"tables,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	LastUpdateAt time.Time    `json:"lastUpdateAt"`
}

// Clone returns a deep copy.
func (d *Database) Clone() *Database {
	c := *d
	if d.Tables != nil {
		c.Tables = make([]Table, len(d.Tables))
		for i := range d.Tables {
			c.Tables[i] = *d.Tables[i].Clone()
		}
	}
	return &c
}

// GetID returns the document id.
func (d *Database) GetID() string { return d.ID }

// GetName returns the document name.
func (d *Database) GetName() string { return d.Name }

// SetID assigns the minted id. Called by the store driver on insert only.
func (d *Database) SetID(id string) { d.ID = id }

// Stamp refreshes the server-maintained timestamps.
func (d *Database) Stamp(now time.Time, insert bool) {
	if insert {
		d.CreatedAt = now
	}
	d.LastUpdateAt = now
}

// Table is one table document. Database holds the owning database's name,
// a functional foreign key rather than a stored reference id.
//
// Fields is a computed view; see Database.Tables.
type Table struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Database     string     `json:"database"`
	Fields       []Field    `json:"fields,omitempty"`
	Primaries    []string   `json:"primaries,omitempty"`
	Uniques      []KeyGroup `json:"uniques,omitempty"`
	Foreigns     []KeyGroup `json:"foreigns,omitempty"`
	Position     Point      `json:"position"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastUpdateAt time.Time  `json:"lastUpdateAt"`
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := *t
	if t.Fields != nil {
		c.Fields = make([]Field, len(t.Fields))
		for i := range t.Fields {
			c.Fields[i] = *t.Fields[i].Clone()
		}
	}
	c.Primaries = cloneSlice(t.Primaries)
	c.Uniques = cloneKeyGroups(t.Uniques)
	c.Foreigns = cloneKeyGroups(t.Foreigns)
	return &c
}

// GetID returns the document id.
func (t *Table) GetID() string { return t.ID }

// GetName returns the document name.
func (t *Table) GetName() string { return t.Name }

// SetID assigns the minted id. Called by the store driver on insert only.
func (t *Table) SetID(id string) { t.ID = id }

// Stamp refreshes the server-maintained timestamps.
func (t *Table) Stamp(now time.Time, insert bool) {
	if insert {
		t.CreatedAt = now
	}
	t.LastUpdateAt = now
}

// Field is one column document. Database and Table form the composite
// foreign key into the owning table.
type Field struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Database     string          `json:"database"`
	Table        string          `json:"table"`
	Type         DataType        `json:"type"`
	Size         int             `json:"size,omitempty"`
	Digit        int             `json:"digit,omitempty"`
	FPoint       int             `json:"fpoint,omitempty"`
	Items        []string        `json:"items,omitempty"`
	Kind         FieldKind       `json:"kind"`
	Key          bool            `json:"key"`
	Order        *int            `json:"order,omitempty"`
	Utilizeds    []UtilizedField `json:"utilizeds,omitempty"`
	Reference    *ReferenceField `json:"reference,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	LastUpdateAt time.Time       `json:"lastUpdateAt"`
}

// Clone returns a deep copy.
func (f *Field) Clone() *Field {
	c := *f
	c.Items = cloneSlice(f.Items)
	if f.Order != nil {
		o := *f.Order
		c.Order = &o
	}
	if f.Utilizeds != nil {
		c.Utilizeds = make([]UtilizedField, len(f.Utilizeds))
		copy(c.Utilizeds, f.Utilizeds)
	}
	if f.Reference != nil {
		r := *f.Reference
		c.Reference = &r
	}
	return &c
}

// GetID returns the document id.
func (f *Field) GetID() string { return f.ID }

// GetName returns the document name.
func (f *Field) GetName() string { return f.Name }

// SetID assigns the minted id. Called by the store driver on insert only.
func (f *Field) SetID(id string) { f.ID = id }

// Stamp refreshes the server-maintained timestamps.
func (f *Field) Stamp(now time.Time, insert bool) {
	if insert {
		f.CreatedAt = now
	}
	f.LastUpdateAt = now
}

func cloneSlice(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

func cloneKeyGroups(groups []KeyGroup) []KeyGroup {
	if groups == nil {
		return nil
	}
	c := make([]KeyGroup, len(groups))
	for i, g := range groups {
		c[i] = KeyGroup{Key: g.Key, IDs: cloneSlice(g.IDs)}
	}
	return c
}
