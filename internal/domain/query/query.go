// Package query turns structured query parameters into SQLite statements.
package query

import (
	"maps"

	"github.com/kailas-cloud/nosqlite/internal/domain/document"
)

// DefaultBatchSize is the page size used when a query sets none.
const DefaultBatchSize = 50

// Query selects documents of a collection.
//
// Filter holds equality conditions on fields; Where is a raw predicate with
// positional WhereArgs. Both are ANDed. Without Limit results are paged by
// BatchSize; an explicit Limit returns a single page.
type Query struct {
	Filter    map[string]any
	Where     string
	WhereArgs []any
	Fields    []string
	OrderBy   string
	Limit     *int
	Offset    int
	BatchSize int
	// RowID prepends the engine row identifier as field "rowid".
	RowID bool
	// LiteralFilter renders Filter values as SQL literals instead of bound
	// parameters. Only for trusted input.
	LiteralFilter bool
}

// New returns an empty query.
func New() Query { return Query{} }

// Eq adds an equality condition.
func (q Query) Eq(field string, v any) Query {
	f := make(map[string]any, len(q.Filter)+1)
	maps.Copy(f, q.Filter)
	f[field] = v
	q.Filter = f
	return q
}

// Match adds every entry of m as an equality condition.
func (q Query) Match(m map[string]any) Query {
	for k, v := range m {
		q = q.Eq(k, v)
	}
	return q
}

// WithWhere sets the raw predicate.
func (q Query) WithWhere(predicate string, args ...any) Query {
	q.Where = predicate
	q.WhereArgs = args
	return q
}

// Select restricts the returned fields.
func (q Query) Select(fields ...string) Query {
	q.Fields = fields
	return q
}

// Sort sets the raw ORDER BY fragment.
func (q Query) Sort(orderBy string) Query {
	q.OrderBy = orderBy
	return q
}

// Take sets an explicit limit and disables auto-pagination.
func (q Query) Take(n int) Query {
	q.Limit = &n
	return q
}

// Skip sets the starting offset.
func (q Query) Skip(n int) Query {
	q.Offset = n
	return q
}

// Batch sets the auto-pagination page size.
func (q Query) Batch(n int) Query {
	q.BatchSize = n
	return q
}

// WithRowID requests the row identifier as the first field.
func (q Query) WithRowID() Query {
	q.RowID = true
	return q
}

// Literal switches Filter rendering to embedded literals.
func (q Query) Literal() Query {
	q.LiteralFilter = true
	return q
}

// PageSize returns the effective page size.
func (q Query) PageSize() int {
	if q.Limit != nil {
		return *q.Limit
	}
	if q.BatchSize > 0 {
		return q.BatchSize
	}
	return DefaultBatchSize
}

// Paginated reports whether results are fetched page by page.
func (q Query) Paginated() bool { return q.Limit == nil }

// IsEmpty reports whether the query has no filter at all.
func (q Query) IsEmpty() bool { return q.Where == "" && len(q.Filter) == 0 }

// Validate checks the field names of the filter and the projection.
func (q Query) Validate() error {
	for k := range q.Filter {
		if err := document.ValidateName("field", k); err != nil {
			return err
		}
	}
	return validateNames("field", q.Fields)
}
