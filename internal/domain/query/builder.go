package query

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/domain/document"
	"github.com/kailas-cloud/nosqlite/internal/domain/index"
	"github.com/kailas-cloud/nosqlite/internal/domain/value"
)

// RowIDField is the reserved field name of the engine row identifier.
const RowIDField = "rowid"

// Conflict selects the INSERT conflict resolution clause.
type Conflict string

// Conflict modes.
const (
	ConflictNone     Conflict = ""
	ConflictReplace  Conflict = "REPLACE"
	ConflictIgnore   Conflict = "IGNORE"
	ConflictAbort    Conflict = "ABORT"
	ConflictFail     Conflict = "FAIL"
	ConflictRollback Conflict = "ROLLBACK"
)

// ParseConflict validates a conflict mode name, case-insensitively.
func ParseConflict(s string) (Conflict, error) {
	c := Conflict(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case ConflictNone, ConflictReplace, ConflictIgnore, ConflictAbort, ConflictFail, ConflictRollback:
		return c, nil
	}
	return "", domain.NewValidation("conflict", "unknown conflict mode "+s)
}

// Quote delimits an identifier. Names are validated to be free of quotes.
func Quote(name string) string {
	return `"` + name + `"`
}

func quoteAll(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = Quote(n)
	}
	return strings.Join(parts, ", ")
}

// known reports whether field is a column of the table. The row identifier
// always is. A double-quoted name that resolves to no column is read by
// SQLite as a string literal, so unknown fields must never be rendered.
func known(columns []string, field string) bool {
	return field == RowIDField || slices.Contains(columns, field)
}

func validateNames(kind string, names []string) error {
	for _, n := range names {
		if err := document.ValidateName(kind, n); err != nil {
			return err
		}
	}
	return nil
}

// Projection returns the fields a page of q yields, in order: q.Fields
// restricted to columns, or every column when q.Fields is empty. The row
// identifier requested by q.RowID is not included.
func Projection(q Query, columns []string) []string {
	if len(q.Fields) == 0 {
		return columns
	}
	out := make([]string, 0, len(q.Fields))
	for _, f := range q.Fields {
		if known(columns, f) && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// Select builds a page query over collection whose current columns are
// columns. Projected fields that are not columns are left out; when
// nothing remains a single NULL is selected per row.
func Select(collection string, q Query, columns []string) (string, []any, error) {
	if err := document.ValidateName("collection", collection); err != nil {
		return "", nil, err
	}
	if err := validateNames("field", q.Fields); err != nil {
		return "", nil, err
	}
	fields := Projection(q, columns)

	var b strings.Builder
	b.WriteString("SELECT ")
	switch {
	case len(fields) == 0 && q.RowID:
		b.WriteString(RowIDField)
	case len(fields) == 0:
		b.WriteString("NULL")
	case q.RowID:
		b.WriteString(RowIDField + ", " + quoteAll(fields))
	default:
		b.WriteString(quoteAll(fields))
	}
	b.WriteString(" FROM " + Quote(collection))

	where, args, err := Where(q, columns)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(where)
	if q.OrderBy != "" {
		b.WriteString(" ORDER BY " + q.OrderBy)
	}
	fmt.Fprintf(&b, " LIMIT %d OFFSET %d", q.PageSize(), q.Offset)
	return b.String(), args, nil
}

// Count builds SELECT COUNT(*) with the filter of q.
func Count(collection string, q Query, columns []string) (string, []any, error) {
	if err := document.ValidateName("collection", collection); err != nil {
		return "", nil, err
	}
	where, args, err := Where(q, columns)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + Quote(collection) + where, args, nil
}

// Where renders the WHERE clause of q, or "" when q has no filter.
// The raw predicate comes first, followed by equality clauses in sorted
// field order. A filter field outside columns is absent from every row and
// compares as NULL.
func Where(q Query, columns []string) (string, []any, error) {
	var (
		parts []string
		args  []any
	)
	if q.Where != "" {
		parts = append(parts, "("+q.Where+")")
		wargs, err := value.EncodeAll(q.WhereArgs)
		if err != nil {
			return "", nil, fmt.Errorf("encode where args: %w", err)
		}
		args = append(args, wargs...)
	}

	keys := make([]string, 0, len(q.Filter))
	for k := range q.Filter {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := document.ValidateName("field", k); err != nil {
			return "", nil, err
		}
		enc, err := value.Encode(q.Filter[k])
		if err != nil {
			return "", nil, fmt.Errorf("encode filter %s: %w", k, err)
		}
		lhs := "NULL"
		if known(columns, k) {
			lhs = Quote(k)
		}
		if q.LiteralFilter {
			lit, err := Literal(enc)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, lhs+" IS "+lit)
			continue
		}
		parts = append(parts, lhs+" IS ?")
		args = append(args, enc)
	}

	if len(parts) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

// Literal renders an encoded scalar as an SQL literal.
func Literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", domain.NewValidation("filter", "non-finite float has no literal form")
		}
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s, nil
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	default:
		return "", domain.NewValidation("filter", fmt.Sprintf("unsupported literal type %T", v))
	}
}

// Insert builds a single-row parameterized INSERT.
func Insert(collection string, columns []string, conflict Conflict) (string, error) {
	if err := document.ValidateName("collection", collection); err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", domain.NewValidation("document", "at least one field is required")
	}
	if err := validateNames("field", columns); err != nil {
		return "", err
	}

	verb := "INSERT"
	if conflict != ConflictNone {
		verb += " OR " + string(conflict)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("%s INTO %s (%s) VALUES (%s)",
		verb, Quote(collection), quoteAll(columns), placeholders), nil
}

// Update builds UPDATE ... SET for the fields of set, filtered by q.
// columns must already include the fields of set.
func Update(collection string, set document.Document, q Query, columns []string) (string, []any, error) {
	if err := document.ValidateName("collection", collection); err != nil {
		return "", nil, err
	}
	if len(set) == 0 {
		return "", nil, domain.NewValidation("update", "at least one field is required")
	}

	keys := set.Keys()
	assigns := make([]string, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		if err := document.ValidateName("field", k); err != nil {
			return "", nil, err
		}
		enc, err := value.Encode(set[k])
		if err != nil {
			return "", nil, fmt.Errorf("encode %s: %w", k, err)
		}
		assigns[i] = Quote(k) + " = ?"
		args = append(args, enc)
	}

	where, wargs, err := Where(q, columns)
	if err != nil {
		return "", nil, err
	}
	sql := "UPDATE " + Quote(collection) + " SET " + strings.Join(assigns, ", ") + where
	return sql, append(args, wargs...), nil
}

// Delete builds DELETE FROM with the filter of q.
func Delete(collection string, q Query, columns []string) (string, []any, error) {
	if err := document.ValidateName("collection", collection); err != nil {
		return "", nil, err
	}
	where, args, err := Where(q, columns)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + Quote(collection) + where, args, nil
}

// Drop builds DROP TABLE IF EXISTS.
func Drop(collection string) (string, error) {
	if err := document.ValidateName("collection", collection); err != nil {
		return "", err
	}
	return "DROP TABLE IF EXISTS " + Quote(collection), nil
}

// CreateTable builds CREATE TABLE with untyped columns.
func CreateTable(collection string, columns []string) (string, error) {
	if err := document.ValidateName("collection", collection); err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", domain.NewValidation("document", "at least one field is required")
	}
	if err := validateNames("field", columns); err != nil {
		return "", err
	}
	return "CREATE TABLE " + Quote(collection) + " (" + quoteAll(columns) + ")", nil
}

// AddColumn builds ALTER TABLE ADD COLUMN.
func AddColumn(collection, column string) (string, error) {
	if err := validateNames("identifier", []string{collection, column}); err != nil {
		return "", err
	}
	return "ALTER TABLE " + Quote(collection) + " ADD COLUMN " + Quote(column), nil
}

// TableColumns lists the column names of a table in declaration order. It
// yields no rows for a missing table.
func TableColumns(collection string) (string, []any) {
	return "SELECT name FROM pragma_table_info(?) ORDER BY cid", []any{collection}
}

// ListTables lists user tables in name order.
func ListTables() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}

// Rename builds ALTER TABLE RENAME TO.
func Rename(from, to string) (string, error) {
	if err := validateNames("collection", []string{from, to}); err != nil {
		return "", err
	}
	return "ALTER TABLE " + Quote(from) + " RENAME TO " + Quote(to), nil
}

// CopyInto builds INSERT INTO dst (fields) SELECT fields FROM src, where
// columns are the current columns of src. Every field must be one of them.
func CopyInto(dst, src string, fields []string, q Query, columns []string) (string, []any, error) {
	if err := validateNames("collection", []string{dst, src}); err != nil {
		return "", nil, err
	}
	if len(fields) == 0 {
		return "", nil, domain.NewValidation("fields", "at least one field is required")
	}
	if err := validateNames("field", fields); err != nil {
		return "", nil, err
	}
	for _, f := range fields {
		if f == RowIDField || !slices.Contains(columns, f) {
			return "", nil, domain.NewValidation("fields", fmt.Sprintf("%s is not a field of %s", f, src))
		}
	}
	where, args, err := Where(q, columns)
	if err != nil {
		return "", nil, err
	}
	cols := quoteAll(fields)
	sql := "INSERT INTO " + Quote(dst) + " (" + cols + ") SELECT " + cols + " FROM " + Quote(src) + where
	return sql, args, nil
}

// CreateIndex builds index DDL named by the index name codec.
func CreateIndex(collection string, keys []index.Key, unique bool) (string, error) {
	if err := document.ValidateName("collection", collection); err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", domain.NewValidation("index", "at least one key is required")
	}
	for _, k := range keys {
		if err := document.ValidateName("field", k.Field); err != nil {
			return "", err
		}
	}
	verb := "CREATE INDEX"
	if unique {
		verb = "CREATE UNIQUE INDEX"
	}
	return fmt.Sprintf("%s IF NOT EXISTS %s ON %s(%s)",
		verb, Quote(index.Encode(collection, keys)), Quote(collection), index.Columns(keys)), nil
}

// DropIndex builds DROP INDEX IF EXISTS for an index name.
func DropIndex(name string) (string, error) {
	if err := document.ValidateName("index", name); err != nil {
		return "", err
	}
	return "DROP INDEX IF EXISTS " + Quote(name), nil
}

// ListIndexes lists the index names of a table.
func ListIndexes(collection string) (string, []any) {
	return "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? ORDER BY name", []any{collection}
}

// Vacuum rebuilds the database file.
const Vacuum = "VACUUM"
