package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kailas-cloud/nosqlite/internal/db"
	"github.com/kailas-cloud/nosqlite/internal/domain"
)

// Compile-time check: Store implements db.Executor.
var _ db.Executor = (*Store)(nil)

// Store executes requests against units resolved through a router.
type Store struct {
	router db.Router
}

// NewStore creates a store over router.
func NewStore(router db.Router) *Store {
	return &Store{router: router}
}

// Execute runs all statements of req in one transaction and commits once.
// Rows of every statement are concatenated into the response. On any
// failure the transaction is rolled back and a *domain.StorageError naming
// the failing statement is returned.
func (s *Store) Execute(ctx context.Context, req domain.Request) (domain.Response, error) {
	if err := req.Validate(); err != nil {
		return domain.Response{}, err
	}
	h, err := s.router.Resolve(ctx, req.Target)
	if err != nil {
		return domain.Response{}, fmt.Errorf("resolve %q: %w", req.Target, err)
	}

	if len(req.Commands) == 1 && !req.Batch && outsideTx(req.Commands[0].SQL) {
		st := req.Commands[0]
		if _, err := h.ExecContext(ctx, st.SQL, st.Args...); err != nil {
			return domain.Response{}, &domain.StorageError{Statement: st.SQL, Err: err}
		}
		return domain.Response{}, nil
	}

	tx, err := h.BeginTx(ctx, nil)
	if err != nil {
		return domain.Response{}, &domain.StorageError{Statement: "BEGIN", Err: &db.Error{Op: db.OpBegin, Err: err}}
	}

	var resp domain.Response
	for _, st := range req.Commands {
		switch {
		case req.Batch:
			err = execBatch(ctx, tx, st)
		case returnsRows(st.SQL):
			var rows [][]any
			rows, err = query(ctx, tx, st)
			resp.Rows = append(resp.Rows, rows...)
		default:
			if _, execErr := tx.ExecContext(ctx, st.SQL, st.Args...); execErr != nil {
				err = &db.Error{Op: db.OpExec, Err: execErr}
			}
		}
		if err != nil {
			_ = tx.Rollback()
			return domain.Response{}, &domain.StorageError{Statement: st.SQL, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Response{}, &domain.StorageError{Statement: "COMMIT", Err: &db.Error{Op: db.OpCommit, Err: err}}
	}
	return resp, nil
}

// outsideTx reports statements SQLite refuses to run inside a transaction.
func outsideTx(sql string) bool {
	return strings.EqualFold(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql), ";")), "VACUUM")
}

var rowKeywords = []string{"SELECT", "PRAGMA", "WITH", "VALUES", "EXPLAIN"}

// returnsRows reports whether sql produces a result set.
func returnsRows(sql string) bool {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return false
	}
	first := strings.ToUpper(fields[0])
	for _, kw := range rowKeywords {
		if first == kw || strings.HasPrefix(first, kw+"(") {
			return true
		}
	}
	return strings.Contains(strings.ToUpper(sql), "RETURNING")
}

func query(ctx context.Context, tx *sql.Tx, st domain.Statement) ([][]any, error) {
	rows, err := tx.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: err}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	return out, nil
}

// execBatch runs st once per parameter tuple against one prepared
// statement. Without tuples it runs once with st.Args.
func execBatch(ctx context.Context, tx *sql.Tx, st domain.Statement) error {
	if len(st.Rows) == 0 {
		if _, err := tx.ExecContext(ctx, st.SQL, st.Args...); err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, st.SQL)
	if err != nil {
		return &db.Error{Op: db.OpPrepare, Err: err}
	}
	defer stmt.Close()

	for i, row := range st.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return &db.Error{Op: db.OpExec, Err: fmt.Errorf("row %d: %w", i, err)}
		}
	}
	return nil
}
