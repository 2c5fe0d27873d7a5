package nosqlite

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const tagKey = "nosqlite"

// schemaMeta holds parsed struct tag metadata, cached per TypedCollection.
type schemaMeta struct {
	typ    reflect.Type // struct type for reconstruction
	ptr    bool         // T is a pointer to the struct
	fields []fieldMapping
}

type fieldMapping struct {
	structIdx int
	name      string
	omitEmpty bool
}

// parseSchema reflects on T and extracts nosqlite struct tag metadata.
// Exported fields without a tag map to their Go name; "-" skips a field.
func parseSchema[T any]() (*schemaMeta, error) {
	t := reflect.TypeFor[T]()
	meta := &schemaMeta{}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		meta.ptr = true
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("nosqlite: type %s is not a struct", t)
	}
	meta.typ = t

	seen := make(map[string]string)
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get(tagKey)
		if tag == "-" {
			continue
		}
		fm, err := parseTag(i, f.Name, tag)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[fm.name]; dup {
			return nil, fmt.Errorf("nosqlite: fields %s and %s both map to %q", prev, f.Name, fm.name)
		}
		seen[fm.name] = f.Name
		meta.fields = append(meta.fields, fm)
	}
	if len(meta.fields) == 0 {
		return nil, fmt.Errorf("nosqlite: type %s has no mapped fields", t)
	}
	return meta, nil
}

func parseTag(idx int, fieldName, tag string) (fieldMapping, error) {
	name, modifier, _ := strings.Cut(tag, ",")
	if name == "" {
		name = fieldName
	}
	if strings.Contains(name, `"`) {
		return fieldMapping{}, fmt.Errorf("nosqlite: field name %q on %s contains a double quote", name, fieldName)
	}
	fm := fieldMapping{structIdx: idx, name: name}
	switch modifier {
	case "":
	case "omitempty":
		fm.omitEmpty = true
	default:
		return fieldMapping{}, fmt.Errorf("nosqlite: unknown modifier %q on field %s", modifier, fieldName)
	}
	return fm, nil
}

// toDocument converts a typed struct to a Document using schema metadata.
// Nil pointers and omitempty zero values are left out.
func (m *schemaMeta) toDocument(item any) (Document, error) {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("nosqlite: nil %s", m.typ)
		}
		v = v.Elem()
	}

	doc := make(Document, len(m.fields))
	for _, fm := range m.fields {
		fv := v.Field(fm.structIdx)
		if fm.omitEmpty && fv.IsZero() {
			continue
		}
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		doc[fm.name] = fv.Interface()
	}
	return doc, nil
}

// fromDocument converts a Document back to T using schema metadata.
// Fields absent from doc keep their zero value.
func (m *schemaMeta) fromDocument(doc Document) (any, error) {
	ptr := reflect.New(m.typ)
	v := ptr.Elem()
	for _, fm := range m.fields {
		raw, ok := doc[fm.name]
		if !ok || raw == nil {
			continue
		}
		if err := assign(v.Field(fm.structIdx), raw); err != nil {
			return nil, fmt.Errorf("nosqlite: field %q: %w", fm.name, err)
		}
	}
	if m.ptr {
		return ptr.Interface(), nil
	}
	return v.Interface(), nil
}

// assign stores a decoded storage value into dst, converting between the
// codec's canonical kinds and the field's declared type.
func assign(dst reflect.Value, raw any) error {
	if dst.Kind() == reflect.Pointer {
		n := reflect.New(dst.Type().Elem())
		if err := assign(n.Elem(), raw); err != nil {
			return err
		}
		dst.Set(n)
		return nil
	}

	switch dst.Kind() {
	case reflect.Bool:
		switch x := raw.(type) {
		case bool:
			dst.SetBool(x)
			return nil
		case int64:
			dst.SetBool(x != 0)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := asInt64(raw); ok {
			if dst.OverflowInt(n) {
				return fmt.Errorf("%d overflows %s", n, dst.Type())
			}
			dst.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u, ok := raw.(uint64); ok {
			if dst.OverflowUint(u) {
				return fmt.Errorf("%d overflows %s", u, dst.Type())
			}
			dst.SetUint(u)
			return nil
		}
		if n, ok := asInt64(raw); ok {
			if n < 0 || dst.OverflowUint(uint64(n)) {
				return fmt.Errorf("%d does not fit %s", n, dst.Type())
			}
			dst.SetUint(uint64(n))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		switch x := raw.(type) {
		case float64:
			dst.SetFloat(x)
			return nil
		case int64:
			dst.SetFloat(float64(x))
			return nil
		}
	case reflect.String:
		if s, ok := raw.(string); ok {
			dst.SetString(s)
			return nil
		}
	}

	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(dst.Type()) {
		dst.Set(rv)
		return nil
	}
	// Composite values come back as []any / map[string]any; let msgpack
	// rebuild the declared type from them.
	b, err := msgpack.Marshal(raw)
	if err != nil {
		return fmt.Errorf("re-encode %T: %w", raw, err)
	}
	if err := msgpack.Unmarshal(b, dst.Addr().Interface()); err != nil {
		return fmt.Errorf("decode %T into %s: %w", raw, dst.Type(), err)
	}
	return nil
}

func asInt64(raw any) (int64, bool) {
	switch x := raw.(type) {
	case int64:
		return x, true
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			return int64(x), true
		}
	}
	return 0, false
}
