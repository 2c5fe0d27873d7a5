package nosqlite

import (
	"context"
	"fmt"
	"iter"
)

// TypedCollection maps struct values of T onto a Collection.
// T must be a struct (or pointer to struct); fields are named by their
// `nosqlite:"name,omitempty"` tag or, untagged, by their Go name.
type TypedCollection[T any] struct {
	coll *Collection
	meta *schemaMeta
}

// NewTypedCollection creates a typed handle over coll. The schema of T is
// parsed once and cached.
func NewTypedCollection[T any](coll *Collection) (*TypedCollection[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("typed collection %q: %w", coll.Name(), err)
	}
	return &TypedCollection[T]{coll: coll, meta: meta}, nil
}

// Collection returns the untyped handle.
func (tc *TypedCollection[T]) Collection() *Collection { return tc.coll }

// Insert stores item.
func (tc *TypedCollection[T]) Insert(ctx context.Context, item T, opts ...InsertOption) error {
	doc, err := tc.meta.toDocument(item)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return tc.coll.Insert(ctx, doc, opts...)
}

// InsertMany stores items in one request.
func (tc *TypedCollection[T]) InsertMany(ctx context.Context, items []T, opts ...InsertOption) error {
	docs := make([]Document, len(items))
	for i, item := range items {
		var err error
		docs[i], err = tc.meta.toDocument(item)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return tc.coll.InsertMany(ctx, docs, opts...)
}

// Find returns the items matching q, decoded lazily.
func (tc *TypedCollection[T]) Find(ctx context.Context, q Query) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for doc, err := range tc.coll.Find(ctx, q) {
			if err != nil {
				yield(zero, err)
				return
			}
			item, err := tc.decode(doc)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// All collects the items matching q.
func (tc *TypedCollection[T]) All(ctx context.Context, q Query) ([]T, error) {
	var out []T
	for item, err := range tc.Find(ctx, q) {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// FindOne returns the first item matching q, or ErrNotFound.
func (tc *TypedCollection[T]) FindOne(ctx context.Context, q Query) (T, error) {
	doc, err := tc.coll.FindOne(ctx, q)
	if err != nil {
		var zero T
		return zero, err
	}
	return tc.decode(doc)
}

// Count returns the number of items matching q.
func (tc *TypedCollection[T]) Count(ctx context.Context, q Query) (int64, error) {
	return tc.coll.Count(ctx, q)
}

// Delete removes the items matching q; an empty query drops the collection.
func (tc *TypedCollection[T]) Delete(ctx context.Context, q Query) error {
	return tc.coll.Delete(ctx, q)
}

func (tc *TypedCollection[T]) decode(doc Document) (T, error) {
	v, err := tc.meta.fromDocument(doc)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("decode: %w", err)
	}
	item, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("decode: type assertion to %T failed", zero)
	}
	return item, nil
}
