// Package collection maps schema-flexible documents onto relational tables.
package collection

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/domain/document"
	"github.com/kailas-cloud/nosqlite/internal/domain/query"
	"github.com/kailas-cloud/nosqlite/internal/logger"
)

// Ref addresses one collection inside one storage unit.
type Ref struct {
	Target string
	Name   string
}

func (r Ref) String() string { return r.Target + "/" + r.Name }

// Service implements the document operations over an Executor.
type Service struct {
	exec   Executor
	logger *zap.Logger
}

// New creates a collection service. log can be nil.
func New(exec Executor, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{exec: exec, logger: log}
}

func (s *Service) run(ctx context.Context, target, sql string, args ...any) ([][]any, error) {
	resp, err := s.exec.Execute(ctx, domain.NewRequest(target, sql, args...))
	if err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// Columns returns the column names of the collection in declaration order,
// or nil when the collection has no table yet.
func (s *Service) Columns(ctx context.Context, ref Ref) ([]string, error) {
	if err := document.ValidateName("collection", ref.Name); err != nil {
		return nil, err
	}
	sql, args := query.TableColumns(ref.Name)
	rows, err := s.run(ctx, ref.Target, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", ref, err)
	}
	return firstColumn(rows)
}

// Collections returns the table names of a storage unit in sorted order.
func (s *Service) Collections(ctx context.Context, target string) ([]string, error) {
	rows, err := s.run(ctx, target, query.ListTables())
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return firstColumn(rows)
}

// Vacuum rebuilds the storage unit file.
func (s *Service) Vacuum(ctx context.Context, target string) error {
	if _, err := s.run(ctx, target, query.Vacuum); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// EnsureColumns creates the table or adds the columns that docs need.
// A failed column add is treated as a lost race with a concurrent writer:
// it is logged and ignored, and a genuinely missing column surfaces on the
// statement that uses it.
func (s *Service) EnsureColumns(ctx context.Context, ref Ref, docs ...document.Document) error {
	keys := document.UnionKeys(docs...)
	for _, k := range keys {
		if err := document.ValidateName("field", k); err != nil {
			return err
		}
	}

	current, err := s.Columns(ctx, ref)
	if err != nil {
		return err
	}
	if len(current) == 0 {
		if len(keys) == 0 {
			return domain.NewValidation("document", "at least one field is required to create "+ref.Name)
		}
		if current, err = s.createTable(ctx, ref, keys); err != nil {
			return err
		}
	}

	for _, col := range missing(keys, current) {
		sql, err := query.AddColumn(ref.Name, col)
		if err != nil {
			return err
		}
		if _, err := s.run(ctx, ref.Target, sql); err != nil {
			s.log(ctx).Debug("Column add lost",
				zap.String("collection", ref.String()),
				zap.String("column", col),
				zap.Error(fmt.Errorf("%w: %w", domain.ErrSchemaRace, err)),
			)
		}
	}
	return nil
}

// createTable returns the columns present afterwards. Losing the create to
// a concurrent writer is not an error.
func (s *Service) createTable(ctx context.Context, ref Ref, cols []string) ([]string, error) {
	sql, err := query.CreateTable(ref.Name, cols)
	if err != nil {
		return nil, err
	}
	_, createErr := s.run(ctx, ref.Target, sql)
	if createErr == nil {
		return cols, nil
	}
	if !errors.Is(createErr, domain.ErrStorage) {
		return nil, fmt.Errorf("create %s: %w", ref, createErr)
	}

	current, err := s.Columns(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return nil, fmt.Errorf("create %s: %w", ref, createErr)
	}
	s.log(ctx).Debug("Table create lost",
		zap.String("collection", ref.String()),
		zap.Error(fmt.Errorf("%w: %w", domain.ErrSchemaRace, createErr)),
	)
	return current, nil
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.logger)
}

func missing(keys, current []string) []string {
	var out []string
	for _, k := range keys {
		if !slices.Contains(current, k) {
			out = append(out, k)
		}
	}
	return out
}

func firstColumn(rows [][]any) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		switch v := r[0].(type) {
		case string:
			out = append(out, v)
		case []byte:
			out = append(out, string(v))
		default:
			return nil, fmt.Errorf("unexpected name value %T", r[0])
		}
	}
	return out, nil
}
