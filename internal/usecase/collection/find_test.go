package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/domain/document"
	"github.com/kailas-cloud/nosqlite/internal/domain/query"
)

func seed(t *testing.T, svc *Service, ref Ref, n int) {
	t.Helper()
	docs := make([]document.Document, n)
	for i := range n {
		docs[i] = document.Document{"n": i, "parity": []string{"even", "odd"}[i%2]}
	}
	if err := svc.InsertMany(context.Background(), ref, docs, InsertOptions{}); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}
}

func ns(docs []document.Document) []int64 {
	out := make([]int64, len(docs))
	for i, d := range docs {
		out[i] = d["n"].(int64)
	}
	return out
}

func TestFind_PaginatesEveryDocumentOnce(t *testing.T) {
	svc := newTestService(t)
	ref := memRef("pages")
	seed(t, svc, ref, 5)

	docs, err := svc.All(context.Background(), ref, query.New().Batch(2).Sort(`"n"`))
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if diff := cmp.Diff([]int64{0, 1, 2, 3, 4}, ns(docs)); diff != "" {
		t.Errorf("documents (-want +got):\n%s", diff)
	}
}

func TestFind_RestartsOnEachRange(t *testing.T) {
	svc := newTestService(t)
	ref := memRef("restart")
	seed(t, svc, ref, 3)

	seq := svc.Find(context.Background(), ref, query.New().Batch(2).Skip(1).Sort(`"n"`))
	for pass := range 2 {
		var got []int64
		for doc, err := range seq {
			if err != nil {
				t.Fatalf("pass %d: %v", pass, err)
			}
			got = append(got, doc["n"].(int64))
		}
		if diff := cmp.Diff([]int64{1, 2}, got); diff != "" {
			t.Errorf("pass %d (-want +got):\n%s", pass, diff)
		}
	}
}

func TestFind_ExplicitLimitIsSinglePage(t *testing.T) {
	svc := newTestService(t)
	ref := memRef("limited")
	seed(t, svc, ref, 10)

	docs, err := svc.All(context.Background(), ref, query.New().Take(3).Batch(1).Sort(`"n" DESC`))
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if diff := cmp.Diff([]int64{9, 8, 7}, ns(docs)); diff != "" {
		t.Errorf("documents (-want +got):\n%s", diff)
	}
}

func TestFind_StopsEarly(t *testing.T) {
	svc := newTestService(t)
	ref := memRef("early")
	seed(t, svc, ref, 10)

	seen := 0
	for _, err := range svc.Find(context.Background(), ref, query.New().Batch(3)) {
		if err != nil {
			t.Fatal(err)
		}
		seen++
		if seen == 4 {
			break
		}
	}
	if seen != 4 {
		t.Errorf("expected to stop after 4, saw %d", seen)
	}
}

func TestFind_FilterProjectionRowID(t *testing.T) {
	svc := newTestService(t)
	ref := memRef("filtered")
	seed(t, svc, ref, 6)
	ctx := context.Background()

	docs, err := svc.All(ctx, ref, query.New().Eq("parity", "odd").Select("n").WithRowID().Sort(`"n"`))
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if diff := cmp.Diff([]int64{1, 3, 5}, ns(docs)); diff != "" {
		t.Errorf("documents (-want +got):\n%s", diff)
	}
	for _, d := range docs {
		if _, ok := d[query.RowIDField].(int64); !ok {
			t.Errorf("expected int64 rowid, got %#v", d)
		}
		if _, ok := d["parity"]; ok {
			t.Errorf("projection leaked parity: %v", d)
		}
	}

	docs, err = svc.All(ctx, ref, query.New().WithWhere(`"n" >= ?`, 4).Eq("parity", "even"))
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if diff := cmp.Diff([]int64{4}, ns(docs)); diff != "" {
		t.Errorf("where + filter (-want +got):\n%s", diff)
	}

	docs, err = svc.All(ctx, ref, query.New().Eq("parity", "odd").Eq("n", 3).Literal())
	if err != nil {
		t.Fatalf("All literal: %v", err)
	}
	if diff := cmp.Diff([]int64{3}, ns(docs)); diff != "" {
		t.Errorf("literal filter (-want +got):\n%s", diff)
	}
}

func TestFind_NullFilterMatchesAbsentField(t *testing.T) {
	svc := newTestService(t)
	ref := memRef("sparse")
	ctx := context.Background()
	if err := svc.InsertMany(ctx, ref, []document.Document{{"a": 1, "b": "x"}, {"a": 2}}, InsertOptions{}); err != nil {
		t.Fatalf("InsertMany: %v", err)
	}
	docs, err := svc.All(ctx, ref, query.New().Eq("b", nil))
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if diff := cmp.Diff([]document.Document{{"a": int64(2)}}, docs); diff != "" {
		t.Errorf("documents (-want +got):\n%s", diff)
	}
}

func TestFind_UnknownFields(t *testing.T) {
	svc := newTestService(t)
	ref := memRef("unknown")
	seed(t, svc, ref, 3)
	ctx := context.Background()

	// A field no document ever had must not match its own name as text.
	docs, err := svc.All(ctx, ref, query.New().Eq("ghost", "ghost"))
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("filter on unknown field matched %v", docs)
	}

	docs, err = svc.All(ctx, ref, query.New().Eq("ghost", "ghost").Literal())
	if err != nil {
		t.Fatalf("All literal: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("literal filter on unknown field matched %v", docs)
	}

	docs, err = svc.All(ctx, ref, query.New().Eq("ghost", nil).Sort(`"n"`))
	if err != nil {
		t.Fatalf("All null: %v", err)
	}
	if diff := cmp.Diff([]int64{0, 1, 2}, ns(docs)); diff != "" {
		t.Errorf("null filter on unknown field (-want +got):\n%s", diff)
	}

	docs, err = svc.All(ctx, ref, query.New().Select("n", "ghost").Sort(`"n"`))
	if err != nil {
		t.Fatalf("All projection: %v", err)
	}
	want := []document.Document{{"n": int64(0)}, {"n": int64(1)}, {"n": int64(2)}}
	if diff := cmp.Diff(want, docs); diff != "" {
		t.Errorf("projection with unknown field (-want +got):\n%s", diff)
	}

	docs, err = svc.All(ctx, ref, query.New().Select("ghost"))
	if err != nil {
		t.Fatalf("All unknown projection: %v", err)
	}
	want = []document.Document{{}, {}, {}}
	if diff := cmp.Diff(want, docs); diff != "" {
		t.Errorf("projection of only unknown fields (-want +got):\n%s", diff)
	}
}

func TestFind_MissingCollectionYieldsNothing(t *testing.T) {
	svc := newTestService(t)
	docs, err := svc.All(context.Background(), memRef("nothing"), query.New())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no documents, got %v", docs)
	}
}

func TestFind_OpaqueValuesRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ref := memRef("opaque")
	ctx := context.Background()

	in := document.Document{
		"tags": []any{"a", 1, 2.5},
		"meta": map[string]any{"k": "v", "n": -7},
		"ok":   true,
		"pi":   3.14,
		"text": "plain",
	}
	if err := svc.Insert(ctx, ref, in, InsertOptions{}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := svc.FindOne(ctx, ref, query.New())
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	want := document.Document{
		"tags": []any{"a", int64(1), 2.5},
		"meta": map[string]any{"k": "v", "n": int64(-7)},
		"ok":   int64(1),
		"pi":   3.14,
		"text": "plain",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document (-want +got):\n%s", diff)
	}

	found, err := svc.FindOne(ctx, ref, query.New().Eq("tags", []any{"a", 1, 2.5}))
	if err != nil {
		t.Fatalf("FindOne by opaque value: %v", err)
	}
	if found["text"] != "plain" {
		t.Errorf("unexpected match %v", found)
	}
}

func TestFindOne_NotFound(t *testing.T) {
	svc := newTestService(t)
	ref := memRef("one")
	ctx := context.Background()

	if _, err := svc.FindOne(ctx, ref, query.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing table: expected ErrNotFound, got %v", err)
	}
	seed(t, svc, ref, 2)
	if _, err := svc.FindOne(ctx, ref, query.New().Eq("n", 99)); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("no match: expected ErrNotFound, got %v", err)
	}
}

func TestCount(t *testing.T) {
	svc := newTestService(t)
	ref := memRef("counted")
	ctx := context.Background()

	n, err := svc.Count(ctx, ref, query.New())
	if err != nil || n != 0 {
		t.Fatalf("missing table: n=%d err=%v", n, err)
	}

	for i := range 7 {
		if err := svc.Insert(ctx, ref, document.Document{"i": i}, InsertOptions{}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if n, err = svc.Count(ctx, ref, query.New()); err != nil || n != 7 {
		t.Errorf("count all: n=%d err=%v", n, err)
	}
	if n, err = svc.Count(ctx, ref, query.New().WithWhere(`"i" < ?`, 3)); err != nil || n != 3 {
		t.Errorf("count filtered: n=%d err=%v", n, err)
	}

	if n, err = svc.Count(ctx, ref, query.New().Eq("nope", 1)); err != nil || n != 0 {
		t.Errorf("unknown field with a value: n=%d err=%v", n, err)
	}
	if n, err = svc.Count(ctx, ref, query.New().Eq("nope", nil)); err != nil || n != 7 {
		t.Errorf("unknown field with null: n=%d err=%v", n, err)
	}
	if _, err = svc.Count(ctx, ref, query.New().WithWhere("nope < 1")); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("unknown column in raw predicate: expected ErrStorage, got %v", err)
	}
}
