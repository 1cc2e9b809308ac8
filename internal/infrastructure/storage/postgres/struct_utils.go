package postgres

import (
	"reflect"
	"sync"
)

// column maps a "db" tag to the field index path that reaches it through
// embedded structs.
type column struct {
	name  string
	index []int
}

var columnCache sync.Map // map[reflect.Type][]column

func columnsOf(t reflect.Type) []column {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]column)
	}
	cols := collectColumns(t, nil)
	columnCache.Store(t, cols)
	return cols
}

func collectColumns(t reflect.Type, prefix []int) []column {
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		path := append(append([]int(nil), prefix...), i)

		tag := field.Tag.Get("db")
		if field.Anonymous && tag == "" {
			cols = append(cols, collectColumns(field.Type, path)...)
			continue
		}
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, column{name: tag, index: path})
	}
	return cols
}

// ExtractDBColumns returns the "db" tag names of T in declaration order,
// with embedded structs flattened in place.
//
//	ExtractDBColumns[location.Location]()
//	// ["id", "version", "created_at", "updated_at", "deleted_at", "name", ...]
func ExtractDBColumns[T any]() []string {
	cols := columnsOf(reflect.TypeOf((*T)(nil)).Elem())
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// StructToMap converts a struct or struct pointer to a column->value map.
// A column repeated through embedding keeps its first value.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	cols := columnsOf(rv.Type())
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		if _, seen := res[c.name]; seen {
			continue
		}
		res[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return res
}
