package document

import (
	"maps"
	"slices"
	"strings"

	"github.com/kailas-cloud/nosqlite/internal/domain"
)

// Document is a sparse field -> value mapping. Absent fields are NULL in storage.
type Document map[string]any

// Keys returns the field names of d in sorted order.
func (d Document) Keys() []string {
	return slices.Sorted(maps.Keys(d))
}

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

// Merge returns a copy of d with extra applied on top.
func (d Document) Merge(extra Document) Document {
	out := make(Document, len(d)+len(extra))
	maps.Copy(out, d)
	maps.Copy(out, extra)
	return out
}

// Values returns the values of d in the order of cols; missing fields are nil.
func (d Document) Values(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = d[c]
	}
	return out
}

// UnionKeys returns the sorted union of field names across docs.
func UnionKeys(docs ...Document) []string {
	set := make(map[string]struct{})
	for _, d := range docs {
		for k := range d {
			set[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// ValidateName checks a collection or column identifier: non-empty and free
// of the identifier quote character and NUL.
func ValidateName(kind, name string) error {
	if name == "" {
		return domain.NewValidation(kind, "name is required")
	}
	if strings.ContainsRune(name, '"') {
		return domain.NewValidation(kind, "name "+name+" contains a double quote")
	}
	if strings.ContainsRune(name, 0) {
		return domain.NewValidation(kind, "name contains a NUL byte")
	}
	return nil
}

// ValidateFields checks every field name of d.
func ValidateFields(d Document) error {
	for k := range d {
		if err := ValidateName("field", k); err != nil {
			return err
		}
	}
	return nil
}
