package collection

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/domain/document"
	"github.com/kailas-cloud/nosqlite/internal/domain/query"
	"github.com/kailas-cloud/nosqlite/internal/domain/value"
)

// InsertOptions tunes an insert.
type InsertOptions struct {
	// Extra is merged into every document, overriding its fields.
	Extra    document.Document
	Conflict query.Conflict
}

func (o InsertOptions) prepare(docs []document.Document) ([]document.Document, error) {
	out := make([]document.Document, len(docs))
	for i, d := range docs {
		if len(o.Extra) > 0 {
			d = d.Merge(o.Extra)
		}
		if len(d) == 0 {
			return nil, domain.NewValidation("document", fmt.Sprintf("document %d has no fields", i))
		}
		if err := document.ValidateFields(d); err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// Insert stores one document, extending the schema first.
func (s *Service) Insert(ctx context.Context, ref Ref, doc document.Document, opts InsertOptions) error {
	docs, err := opts.prepare([]document.Document{doc})
	if err != nil {
		return err
	}
	doc = docs[0]

	if err := s.EnsureColumns(ctx, ref, doc); err != nil {
		return err
	}

	cols := doc.Keys()
	sql, err := query.Insert(ref.Name, cols, opts.Conflict)
	if err != nil {
		return err
	}
	args, err := value.EncodeAll(doc.Values(cols))
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if _, err := s.run(ctx, ref.Target, sql, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", ref, err)
	}
	return nil
}

// InsertMany stores docs in one request: one batch statement per group of
// documents sharing a field set. Order inside a group is preserved.
func (s *Service) InsertMany(ctx context.Context, ref Ref, docs []document.Document, opts InsertOptions) error {
	if len(docs) == 0 {
		return nil
	}
	docs, err := opts.prepare(docs)
	if err != nil {
		return err
	}
	if err := s.EnsureColumns(ctx, ref, docs...); err != nil {
		return err
	}

	groups := document.GroupByKeys(docs)
	req := domain.Request{Target: ref.Target, Batch: true, Commands: make([]domain.Statement, 0, len(groups))}
	for _, g := range groups {
		sql, err := query.Insert(ref.Name, g.Columns, opts.Conflict)
		if err != nil {
			return err
		}
		rows := g.Rows()
		for i, row := range rows {
			enc, err := value.EncodeAll(row)
			if err != nil {
				return fmt.Errorf("encode document: %w", err)
			}
			rows[i] = enc
		}
		req.Commands = append(req.Commands, domain.Statement{SQL: sql, Rows: rows})
	}

	if _, err := s.exec.Execute(ctx, req); err != nil {
		return fmt.Errorf("insert %d documents into %s: %w", len(docs), ref, err)
	}
	return nil
}
