package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/domain/document"
	"github.com/kailas-cloud/nosqlite/internal/domain/query"
)

// --- schema evolution ---

func TestEnsureColumns_GrowsSchema(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	ref := memRef("people")

	if err := svc.Insert(ctx, ref, document.Document{"a": 1, "b": 2}, InsertOptions{}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	cols, err := svc.Columns(ctx, ref)
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, cols); diff != "" {
		t.Errorf("columns after first insert (-want +got):\n%s", diff)
	}

	if err := svc.Insert(ctx, ref, document.Document{"a": 3, "c": 4}, InsertOptions{}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	cols, err = svc.Columns(ctx, ref)
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, cols); diff != "" {
		t.Errorf("columns after second insert (-want +got):\n%s", diff)
	}

	docs, err := svc.All(ctx, ref, query.New().Sort(`"a"`))
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	want := []document.Document{
		{"a": int64(1), "b": int64(2)},
		{"a": int64(3), "c": int64(4)},
	}
	if diff := cmp.Diff(want, docs); diff != "" {
		t.Errorf("documents (-want +got):\n%s", diff)
	}
}

func TestEnsureColumns_ConcurrentWritersAddDifferentFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for round := range 5 {
		ref := memRef(fmt.Sprintf("race_%d", round))
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, doc := range []document.Document{{"x": 1}, {"y": 2}} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = svc.Insert(ctx, ref, doc, InsertOptions{})
			}()
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("round %d insert %d: %v", round, i, err)
			}
		}
		cols, err := svc.Columns(ctx, ref)
		if err != nil {
			t.Fatalf("Columns: %v", err)
		}
		if len(cols) != 2 || !contains(cols, "x") || !contains(cols, "y") {
			t.Errorf("round %d: expected columns x and y, got %v", round, cols)
		}
		n, err := svc.Count(ctx, ref, query.New())
		if err != nil || n != 2 {
			t.Errorf("round %d: count=%d err=%v", round, n, err)
		}
	}
}

func TestEnsureColumns_SwallowsFailedColumnAdd(t *testing.T) {
	exec := &mockExecutor{executeFn: func(_ context.Context, req domain.Request) (domain.Response, error) {
		sql := req.Commands[0].SQL
		switch {
		case strings.Contains(sql, "pragma_table_info"):
			return domain.Response{Rows: [][]any{{"a"}}}, nil
		case strings.HasPrefix(sql, "ALTER TABLE"):
			return domain.Response{}, &domain.StorageError{Statement: sql, Err: errors.New("duplicate column name: b")}
		}
		return domain.Response{}, nil
	}}
	svc := New(exec, nil)

	if err := svc.EnsureColumns(context.Background(), memRef("c"), document.Document{"a": 1, "b": 2}); err != nil {
		t.Fatalf("expected lost column add to be swallowed, got %v", err)
	}
	if len(exec.requests) != 2 {
		t.Errorf("expected columns read and one ALTER, got %d requests", len(exec.requests))
	}
}

func TestEnsureColumns_CreateFailureWithoutTableSurfaces(t *testing.T) {
	exec := &mockExecutor{executeFn: func(_ context.Context, req domain.Request) (domain.Response, error) {
		sql := req.Commands[0].SQL
		if strings.HasPrefix(sql, "CREATE TABLE") {
			return domain.Response{}, &domain.StorageError{Statement: sql, Err: errors.New("disk I/O error")}
		}
		return domain.Response{}, nil
	}}
	svc := New(exec, nil)

	err := svc.EnsureColumns(context.Background(), memRef("c"), document.Document{"a": 1})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestEnsureColumns_EmptyKeySetOnNewCollection(t *testing.T) {
	svc := newTestService(t)
	err := svc.EnsureColumns(context.Background(), memRef("empty"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestValidation_NoStatementIssued(t *testing.T) {
	exec := &mockExecutor{}
	svc := New(exec, nil)
	ctx := context.Background()

	cases := map[string]error{
		"quoted collection": svc.Insert(ctx, memRef(`bad"name`), document.Document{"a": 1}, InsertOptions{}),
		"quoted field":      svc.Insert(ctx, memRef("c"), document.Document{`a"b`: 1}, InsertOptions{}),
		"empty document":    svc.Insert(ctx, memRef("c"), document.Document{}, InsertOptions{}),
		"empty in many":     svc.InsertMany(ctx, memRef("c"), []document.Document{{"a": 1}, {}}, InsertOptions{}),
		"empty collection":  svc.Delete(ctx, memRef(""), query.New()),
		"quoted filter":     svc.Delete(ctx, memRef("c"), query.New().Eq(`a"`, 1)),
		"quoted update key":  svc.Update(ctx, memRef("c"), document.Document{"a": 1}, query.New().Eq(`a"`, 1)),
		"quoted projection":  svc.Copy(ctx, memRef("c"), "d", nil, query.New().Select(`a"`)),
	}
	for name, err := range cases {
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", name, err)
		}
	}
	if len(exec.requests) != 0 {
		t.Errorf("expected no statements, got %d", len(exec.requests))
	}
}

func TestCollectionsAndVacuum(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for _, name := range []string{"zeta", "alpha"} {
		if err := svc.Insert(ctx, memRef(name), document.Document{"v": 1}, InsertOptions{}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	names, err := svc.Collections(ctx, domain.MemoryTarget)
	if err != nil {
		t.Fatalf("Collections: %v", err)
	}
	if diff := cmp.Diff([]string{"alpha", "zeta"}, names); diff != "" {
		t.Errorf("collections (-want +got):\n%s", diff)
	}
	if err := svc.Vacuum(ctx, "vacuumed"); err != nil {
		t.Fatalf("Vacuum: %v", err)
	}
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
