package nosqlite

import (
	"github.com/kailas-cloud/nosqlite/internal/domain/document"
	"github.com/kailas-cloud/nosqlite/internal/domain/index"
	"github.com/kailas-cloud/nosqlite/internal/domain/query"
	collectionuc "github.com/kailas-cloud/nosqlite/internal/usecase/collection"
)

// Document is one schema-free record. Values may be nil, integers, floats,
// strings, or anything msgpack can serialize (stored opaquely).
type Document = document.Document

// Query selects, orders and pages documents. Build one with NewQuery.
type Query = query.Query

// NewQuery returns an empty query: all documents, default page size.
func NewQuery() Query { return query.New() }

// IndexKey is one column of an index.
type IndexKey = index.Key

// Direction is the sort direction of an index column.
type Direction = index.Direction

// Index directions.
const (
	Asc  = index.Asc
	Desc = index.Desc
)

// Ascending returns an ascending index key on field.
func Ascending(field string) IndexKey { return IndexKey{Field: field, Direction: Asc} }

// Descending returns a descending index key on field.
func Descending(field string) IndexKey { return IndexKey{Field: field, Direction: Desc} }

// ConflictMode selects how an insert resolves a uniqueness violation.
type ConflictMode = query.Conflict

// Conflict modes.
const (
	ConflictReplace  = query.ConflictReplace
	ConflictIgnore   = query.ConflictIgnore
	ConflictAbort    = query.ConflictAbort
	ConflictFail     = query.ConflictFail
	ConflictRollback = query.ConflictRollback
)

// RowIDField is the key under which Query.WithRowID exposes the row id.
const RowIDField = query.RowIDField

// MemoryDatabase is the database name that selects the non-persistent unit.
const MemoryDatabase = "memory"

// InsertOption tunes Insert and InsertMany.
type InsertOption func(*collectionuc.InsertOptions)

// WithFields merges extra into every inserted document, overriding
// fields of the same name.
func WithFields(extra Document) InsertOption {
	return func(o *collectionuc.InsertOptions) {
		o.Extra = o.Extra.Merge(extra)
	}
}

// OnConflict sets the conflict resolution of the insert.
func OnConflict(mode ConflictMode) InsertOption {
	return func(o *collectionuc.InsertOptions) {
		o.Conflict = mode
	}
}

func insertOptions(opts []InsertOption) collectionuc.InsertOptions {
	var o collectionuc.InsertOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// ImportOptions tunes ImportCSV.
type ImportOptions struct {
	// Columns names the fields of each record. Empty means the first
	// record is a header.
	Columns []string
	// BatchSize is the number of documents per insert request. Default 500.
	BatchSize int
	Insert    []InsertOption
}
