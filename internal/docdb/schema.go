// Schema declarations and the on-disk manifest describing the physical
// layout of every store.

package docdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
)

// IndexSchema declares one secondary index: its name, the JSON key paths it
// covers and whether the key is unique across the store.
type IndexSchema struct {
	Name    string   `json:"name"`
	KeyPath []string `json:"keyPath"`
	Unique  bool     `json:"unique,omitempty"`
}

// Schema is the physical-storage declaration for one entity store. The
// primary key is always the document id.
type Schema struct {
	Store      string        `json:"store"`
	PrimaryKey string        `json:"primaryKey"`
	Indexes    []IndexSchema `json:"indexes"`
}

// columnType classifies a document column in the manifest.
type columnType string

const (
	columnTypeText   columnType = "text"
	columnTypeNumber columnType = "number"
	columnTypeBool   columnType = "bool"
	columnTypeDate   columnType = "date"
	columnTypeJSONB  columnType = "jsonb"
)

// column describes one document column in the manifest.
type column struct {
	Name     string     `json:"name"`
	Type     columnType `json:"type"`
	Required bool       `json:"required,omitempty"`
}

// manifestFile is the name of the manifest inside the data directory.
const manifestFile = "manifest.json"

// manifest is the on-disk description of the physical schema. Migration
// converges each store's index set to its current declaration and records
// the result here.
type manifest struct {
	Version int                      `json:"version"`
	Stores  map[string]manifestStore `json:"stores"`
}

type manifestStore struct {
	PrimaryKey string        `json:"primaryKey"`
	Indexes    []IndexSchema `json:"indexes"`
	Columns    []column      `json:"columns,omitempty"`
}

func readManifest(dir string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &manifest{Stores: make(map[string]manifestStore)}, nil
		}
		return nil, storeErr("migrate", "read manifest", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, storeErr("migrate", "parse manifest", err)
	}
	if m.Stores == nil {
		m.Stores = make(map[string]manifestStore)
	}
	return &m, nil
}

func (m *manifest) write(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return storeErr("migrate", "marshal manifest", err)
	}
	if err := atomicWrite(filepath.Join(dir, manifestFile), append(data, '\n')); err != nil {
		return storeErr("migrate", "write manifest", err)
	}
	return nil
}

// columnsFromType extracts the manifest column list using JSON Schema
// reflection over the stored document type, so the recorded schema matches
// what is actually written to disk.
func columnsFromType[T any]() ([]column, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("document type must be a struct, got %s", t.Kind())
	}

	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	schema := r.ReflectFromType(t)

	required := make(map[string]bool)
	for _, name := range schema.Required {
		required[name] = true
	}

	var columns []column
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key
		colType := columnTypeText
		for i := range t.NumField() {
			field := t.Field(i)
			if jsonFieldName(&field) == name {
				colType = goTypeToColumnType(field.Type)
				break
			}
		}
		columns = append(columns, column{
			Name:     name,
			Type:     colType,
			Required: required[name],
		})
	}
	return columns, nil
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(field *reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	for i, c := range tag {
		if c == ',' {
			if i == 0 {
				return field.Name
			}
			return tag[:i]
		}
	}
	return tag
}

// goTypeToColumnType maps Go types to manifest column types.
func goTypeToColumnType(t reflect.Type) columnType {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == reflect.TypeFor[time.Time]() {
		return columnTypeDate
	}
	switch t.Kind() { //nolint:exhaustive // Everything else defaults to text.
	case reflect.String:
		return columnTypeText
	case reflect.Bool:
		return columnTypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return columnTypeNumber
	case reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
		return columnTypeJSONB
	default:
		return columnTypeText
	}
}
