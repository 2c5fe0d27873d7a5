package collection

import (
	"context"
	"fmt"
	"iter"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/domain/document"
	"github.com/kailas-cloud/nosqlite/internal/domain/query"
	"github.com/kailas-cloud/nosqlite/internal/domain/value"
)

// Find returns a lazy sequence of the documents matching q. Every range
// over the sequence starts again from q.Offset. Without an explicit limit
// pages of q.PageSize() are fetched until one comes back empty.
func (s *Service) Find(ctx context.Context, ref Ref, q query.Query) iter.Seq2[document.Document, error] {
	return func(yield func(document.Document, error) bool) {
		offset := q.Offset
		for {
			rows, fields, err := s.page(ctx, ref, q, offset)
			if err != nil {
				yield(nil, err)
				return
			}
			if fields == nil {
				return
			}
			for _, row := range rows {
				doc, err := zip(fields, row)
				if !yield(doc, err) || err != nil {
					return
				}
			}
			if !q.Paginated() || len(rows) == 0 {
				return
			}
			offset += q.PageSize()
		}
	}
}

// page fetches one page. fields is nil when the collection has no table.
func (s *Service) page(ctx context.Context, ref Ref, q query.Query, offset int) ([][]any, []string, error) {
	cols, err := s.Columns(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if len(cols) == 0 {
		return nil, nil, nil
	}

	q.Offset = offset
	sql, args, err := query.Select(ref.Name, q, cols)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.run(ctx, ref.Target, sql, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("find in %s: %w", ref, err)
	}

	fields := query.Projection(q, cols)
	if q.RowID {
		fields = append([]string{query.RowIDField}, fields...)
	}
	return rows, fields, nil
}

// zip decodes row against fields, dropping NULLs. A row selected with no
// fields carries a single placeholder and yields an empty document.
func zip(fields []string, row []any) (document.Document, error) {
	if len(fields) == 0 {
		return document.Document{}, nil
	}
	if len(row) != len(fields) {
		return nil, fmt.Errorf("row has %d values for %d fields", len(row), len(fields))
	}
	doc := make(document.Document, len(fields))
	for i, f := range fields {
		if row[i] == nil {
			continue
		}
		v, err := value.Decode(row[i])
		if err != nil {
			return nil, fmt.Errorf("decode field %s: %w", f, err)
		}
		if v != nil {
			doc[f] = v
		}
	}
	return doc, nil
}

// All collects every document of Find.
func (s *Service) All(ctx context.Context, ref Ref, q query.Query) ([]document.Document, error) {
	var out []document.Document
	for doc, err := range s.Find(ctx, ref, q) {
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// FindOne returns the first match or an error wrapping domain.ErrNotFound.
func (s *Service) FindOne(ctx context.Context, ref Ref, q query.Query) (document.Document, error) {
	for doc, err := range s.Find(ctx, ref, q.Take(1)) {
		return doc, err
	}
	return nil, fmt.Errorf("find one in %s: %w", ref, domain.ErrNotFound)
}

// Count returns the number of matching rows, or 0 when the collection has
// no table.
func (s *Service) Count(ctx context.Context, ref Ref, q query.Query) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	cols, err := s.Columns(ctx, ref)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, nil
	}
	sql, args, err := query.Count(ref.Name, q, cols)
	if err != nil {
		return 0, err
	}
	rows, err := s.run(ctx, ref.Target, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", ref, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	n, ok := rows[0][0].(int64)
	if !ok {
		return 0, fmt.Errorf("count %s: unexpected result %T", ref, rows[0][0])
	}
	return n, nil
}
