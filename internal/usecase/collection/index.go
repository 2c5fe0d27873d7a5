package collection

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/domain/document"
	"github.com/kailas-cloud/nosqlite/internal/domain/index"
	"github.com/kailas-cloud/nosqlite/internal/domain/query"
)

// EnsureIndex creates the index for keys unless it exists. Indexed fields
// are added to the schema first, so an index can precede the first insert.
func (s *Service) EnsureIndex(ctx context.Context, ref Ref, unique bool, keys ...index.Key) error {
	if len(keys) == 0 {
		return domain.NewValidation("index", "at least one key is required")
	}
	shape := make(document.Document, len(keys))
	for _, k := range keys {
		shape[k.Field] = nil
	}
	if err := s.EnsureColumns(ctx, ref, shape); err != nil {
		return err
	}

	sql, err := query.CreateIndex(ref.Name, keys, unique)
	if err != nil {
		return err
	}
	if _, err := s.run(ctx, ref.Target, sql); err != nil {
		return fmt.Errorf("create index %s on %s: %w", index.Render(keys), ref, err)
	}
	return nil
}

// DropIndex drops the index for keys if it exists.
func (s *Service) DropIndex(ctx context.Context, ref Ref, keys ...index.Key) error {
	if len(keys) == 0 {
		return domain.NewValidation("index", "at least one key is required")
	}
	if err := document.ValidateName("collection", ref.Name); err != nil {
		return err
	}
	return s.dropIndex(ctx, ref, index.Encode(ref.Name, keys))
}

func (s *Service) dropIndex(ctx context.Context, ref Ref, name string) error {
	sql, err := query.DropIndex(name)
	if err != nil {
		return err
	}
	if _, err := s.run(ctx, ref.Target, sql); err != nil {
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	return nil
}

// DropIndexes drops every managed index of the collection, including those
// named after it before a rename. Other indexes are left alone.
func (s *Service) DropIndexes(ctx context.Context, ref Ref) error {
	names, err := s.managedIndexes(ctx, ref)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.dropIndex(ctx, ref, name); err != nil {
			return err
		}
	}
	return nil
}

// Indexes returns the key lists of the managed indexes of the collection.
// Names that do not decode are skipped.
func (s *Service) Indexes(ctx context.Context, ref Ref) ([][]index.Key, error) {
	names, err := s.managedIndexes(ctx, ref)
	if err != nil {
		return nil, err
	}
	out := make([][]index.Key, 0, len(names))
	for _, name := range names {
		keys, err := index.Decode(name)
		if err != nil {
			s.log(ctx).Debug("Skipping undecodable index", zap.String("index", name), zap.Error(err))
			continue
		}
		out = append(out, keys)
	}
	return out, nil
}

func (s *Service) managedIndexes(ctx context.Context, ref Ref) ([]string, error) {
	if err := document.ValidateName("collection", ref.Name); err != nil {
		return nil, err
	}
	sql, args := query.ListIndexes(ref.Name)
	rows, err := s.run(ctx, ref.Target, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", ref, err)
	}
	names, err := firstColumn(rows)
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		if index.IsManaged(n) {
			out = append(out, n)
		}
	}
	return out, nil
}
