package nosqlite

import (
	"context"
	"fmt"
	"io"
	"iter"
	"sync"
	"time"

	collectionuc "github.com/kailas-cloud/nosqlite/internal/usecase/collection"
)

// Collection is a handle on one table. It is cheap to create and safe for
// concurrent use; Rename retargets the handle.
type Collection struct {
	db *Database

	mu   sync.RWMutex
	name string
}

// Name returns the current collection name.
func (c *Collection) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Database returns the database holding the collection.
func (c *Collection) Database() *Database { return c.db }

func (c *Collection) ref() collectionuc.Ref {
	return collectionuc.Ref{Target: physicalName(c.db.name), Name: c.Name()}
}

func (c *Collection) svc() *collectionuc.Service { return c.db.client.svc }

func (c *Collection) observe(op string, start time.Time, err error) {
	c.db.client.obs.observe(op, c.db.name+"/"+c.Name(), start, err)
}

// Insert stores doc, adding any columns it introduces.
func (c *Collection) Insert(ctx context.Context, doc Document, opts ...InsertOption) (err error) {
	start := time.Now()
	defer func() { c.observe("insert", start, err) }()

	if err = c.svc().Insert(ctx, c.ref(), doc, insertOptions(opts)); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// InsertMany stores docs in one request. Documents sharing a key set keep
// their relative order.
func (c *Collection) InsertMany(ctx context.Context, docs []Document, opts ...InsertOption) (err error) {
	start := time.Now()
	defer func() { c.observe("insert_many", start, err) }()

	if err = c.svc().InsertMany(ctx, c.ref(), docs, insertOptions(opts)); err != nil {
		return fmt.Errorf("insert many: %w", err)
	}
	return nil
}

// Find returns the documents matching q. Every range over the result runs
// the query again from q's offset, fetching pages lazily unless q has an
// explicit limit. A failed page is yielded as an error and ends the sequence.
func (c *Collection) Find(ctx context.Context, q Query) iter.Seq2[Document, error] {
	seq := c.svc().Find(ctx, c.ref(), q)
	return func(yield func(Document, error) bool) {
		start := time.Now()
		var err error
		defer func() { c.observe("find", start, err) }()

		for doc, e := range seq {
			if e != nil {
				err = e
				yield(nil, fmt.Errorf("find: %w", e))
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// All collects every document matching q.
func (c *Collection) All(ctx context.Context, q Query) ([]Document, error) {
	var out []Document
	for doc, err := range c.Find(ctx, q) {
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// FindOne returns the first document matching q, or ErrNotFound.
func (c *Collection) FindOne(ctx context.Context, q Query) (doc Document, err error) {
	start := time.Now()
	defer func() { c.observe("find_one", start, err) }()

	doc, err = c.svc().FindOne(ctx, c.ref(), q)
	if err != nil {
		return nil, fmt.Errorf("find one: %w", err)
	}
	return doc, nil
}

// Count returns the number of documents matching q; 0 for a collection
// that was never written.
func (c *Collection) Count(ctx context.Context, q Query) (n int64, err error) {
	start := time.Now()
	defer func() { c.observe("count", start, err) }()

	n, err = c.svc().Count(ctx, c.ref(), q)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Update sets the fields of set on every document matching q, adding
// columns as needed.
func (c *Collection) Update(ctx context.Context, set Document, q Query) (err error) {
	start := time.Now()
	defer func() { c.observe("update", start, err) }()

	if err = c.svc().Update(ctx, c.ref(), set, q); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}

// Delete removes the documents matching q. An empty query drops the whole
// collection, schema included.
func (c *Collection) Delete(ctx context.Context, q Query) (err error) {
	start := time.Now()
	defer func() { c.observe("delete", start, err) }()

	if err = c.svc().Delete(ctx, c.ref(), q); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Rename renames the collection; the handle follows the new name.
func (c *Collection) Rename(ctx context.Context, newName string) (err error) {
	start := time.Now()
	defer func() { c.observe("rename", start, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	ref := collectionuc.Ref{Target: physicalName(c.db.name), Name: c.name}
	if err = c.svc().Rename(ctx, ref, newName); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	c.name = newName
	return nil
}

// Copy inserts the documents matching q into the collection dst of the
// same database, restricted to fields when given.
func (c *Collection) Copy(ctx context.Context, dst string, fields []string, q Query) (err error) {
	start := time.Now()
	defer func() { c.observe("copy", start, err) }()

	if err = c.svc().Copy(ctx, c.ref(), dst, fields, q); err != nil {
		return fmt.Errorf("copy to %q: %w", dst, err)
	}
	return nil
}

// Columns returns the column names in table order.
func (c *Collection) Columns(ctx context.Context) (cols []string, err error) {
	start := time.Now()
	defer func() { c.observe("columns", start, err) }()

	cols, err = c.svc().Columns(ctx, c.ref())
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	return cols, nil
}

// EnsureIndex creates an index on keys if it does not exist yet.
func (c *Collection) EnsureIndex(ctx context.Context, unique bool, keys ...IndexKey) (err error) {
	start := time.Now()
	defer func() { c.observe("ensure_index", start, err) }()

	if err = c.svc().EnsureIndex(ctx, c.ref(), unique, keys...); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return nil
}

// DropIndex drops the index on keys; missing indexes are ignored.
func (c *Collection) DropIndex(ctx context.Context, keys ...IndexKey) (err error) {
	start := time.Now()
	defer func() { c.observe("drop_index", start, err) }()

	if err = c.svc().DropIndex(ctx, c.ref(), keys...); err != nil {
		return fmt.Errorf("drop index: %w", err)
	}
	return nil
}

// DropIndexes drops every index created through EnsureIndex.
func (c *Collection) DropIndexes(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.observe("drop_indexes", start, err) }()

	if err = c.svc().DropIndexes(ctx, c.ref()); err != nil {
		return fmt.Errorf("drop indexes: %w", err)
	}
	return nil
}

// Indexes lists the key lists of indexes created through EnsureIndex.
func (c *Collection) Indexes(ctx context.Context) (keys [][]IndexKey, err error) {
	start := time.Now()
	defer func() { c.observe("indexes", start, err) }()

	keys, err = c.svc().Indexes(ctx, c.ref())
	if err != nil {
		return nil, fmt.Errorf("indexes: %w", err)
	}
	return keys, nil
}

// ExportCSV writes the documents matching q to path with a header row.
// The file is replaced atomically. It returns the number of rows written.
func (c *Collection) ExportCSV(ctx context.Context, path string, q Query) (n int, err error) {
	start := time.Now()
	defer func() { c.observe("export_csv", start, err) }()

	n, err = c.svc().ExportCSV(ctx, c.ref(), path, q)
	if err != nil {
		return 0, fmt.Errorf("export csv: %w", err)
	}
	return n, nil
}

// ImportCSV inserts the records of r. Numeric cells become integers or
// floats and empty cells are left out.
func (c *Collection) ImportCSV(ctx context.Context, r io.Reader, opts ImportOptions) (n int, err error) {
	start := time.Now()
	defer func() { c.observe("import_csv", start, err) }()

	n, err = c.svc().ImportCSV(ctx, c.ref(), r, collectionuc.CSVOptions{
		Columns:   opts.Columns,
		BatchSize: opts.BatchSize,
		Insert:    insertOptions(opts.Insert),
	})
	if err != nil {
		return n, fmt.Errorf("import csv: %w", err)
	}
	return n, nil
}
