package collection

import (
	"context"
	"fmt"
	"slices"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/domain/document"
	"github.com/kailas-cloud/nosqlite/internal/domain/query"
)

// Update sets the fields of set on every row matching q. New fields are
// added to the schema first.
func (s *Service) Update(ctx context.Context, ref Ref, set document.Document, q query.Query) error {
	if err := document.ValidateFields(set); err != nil {
		return err
	}
	if err := q.Validate(); err != nil {
		return err
	}
	if err := s.EnsureColumns(ctx, ref, set); err != nil {
		return err
	}
	cols, err := s.Columns(ctx, ref)
	if err != nil {
		return err
	}
	sql, args, err := query.Update(ref.Name, set, q, cols)
	if err != nil {
		return err
	}
	if _, err := s.run(ctx, ref.Target, sql, args...); err != nil {
		return fmt.Errorf("update %s: %w", ref, err)
	}
	return nil
}

// Delete removes the rows matching q. An empty query drops the whole
// collection. Both forms are no-ops when the collection was never created.
func (s *Service) Delete(ctx context.Context, ref Ref, q query.Query) error {
	var (
		sql  string
		args []any
		cols []string
		err  error
	)
	if q.IsEmpty() {
		sql, err = query.Drop(ref.Name)
	} else {
		if err = q.Validate(); err != nil {
			return err
		}
		if cols, err = s.Columns(ctx, ref); err != nil {
			return err
		}
		if len(cols) == 0 {
			return nil
		}
		sql, args, err = query.Delete(ref.Name, q, cols)
	}
	if err != nil {
		return err
	}
	if _, err := s.run(ctx, ref.Target, sql, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", ref, err)
	}
	return nil
}

// Rename changes the table identifier of the collection.
func (s *Service) Rename(ctx context.Context, ref Ref, newName string) error {
	sql, err := query.Rename(ref.Name, newName)
	if err != nil {
		return err
	}
	if _, err := s.run(ctx, ref.Target, sql); err != nil {
		return fmt.Errorf("rename %s to %s: %w", ref, newName, err)
	}
	return nil
}

// Copy inserts the rows of ref matching q into dst inside the same storage
// unit. Without fields every source column is copied; named fields must be
// source columns. Destination columns are created as needed. A source
// without a table copies nothing.
func (s *Service) Copy(ctx context.Context, ref Ref, dst string, fields []string, q query.Query) error {
	if err := document.ValidateName("collection", dst); err != nil {
		return err
	}
	if err := q.Validate(); err != nil {
		return err
	}
	src, err := s.Columns(ctx, ref)
	if err != nil {
		return err
	}
	if len(src) == 0 {
		return nil
	}
	if len(fields) == 0 {
		fields = src
	}
	for _, f := range fields {
		if !slices.Contains(src, f) {
			return domain.NewValidation("fields", fmt.Sprintf("%s is not a field of %s", f, ref.Name))
		}
	}

	shape := make(document.Document, len(fields))
	for _, f := range fields {
		shape[f] = nil
	}
	dstRef := Ref{Target: ref.Target, Name: dst}
	if err := s.EnsureColumns(ctx, dstRef, shape); err != nil {
		return err
	}

	sql, args, err := query.CopyInto(dst, ref.Name, fields, q, src)
	if err != nil {
		return err
	}
	if _, err := s.run(ctx, ref.Target, sql, args...); err != nil {
		return fmt.Errorf("copy %s to %s: %w", ref, dst, err)
	}
	return nil
}
