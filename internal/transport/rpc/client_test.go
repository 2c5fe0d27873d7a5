package rpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/kailas-cloud/nosqlite/internal/db/sqlite"
	"github.com/kailas-cloud/nosqlite/internal/domain"
	chiTransport "github.com/kailas-cloud/nosqlite/internal/transport/chi"
	"github.com/kailas-cloud/nosqlite/internal/usecase/execute"
)

func newTestServer(t *testing.T, apiKeys ...string) *httptest.Server {
	t.Helper()
	router, err := sqlite.NewRouter(sqlite.Config{DataDir: t.TempDir(), BusyTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	exec, err := execute.New(sqlite.NewStore(router), 4, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("execute.New: %v", err)
	}
	srv := httptest.NewServer(chiTransport.NewServer(exec, nil, zaptest.NewLogger(t)).Handler(apiKeys))
	t.Cleanup(func() {
		srv.Close()
		_ = exec.Close(time.Second)
		_ = router.Close()
	})
	return srv
}

func newTestClient(t *testing.T, url, apiKey string) *Client {
	t.Helper()
	c, err := New(Config{URL: url + "/", APIKey: apiKey, Timeout: 5 * time.Second, Logger: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestExecute_RoundTrip(t *testing.T) {
	srv := newTestServer(t, "k")
	c := newTestClient(t, srv.URL, "k")
	ctx := context.Background()

	_, err := c.Execute(ctx, domain.Request{
		Target: "rt.db",
		Commands: []domain.Statement{
			{SQL: `CREATE TABLE "t" ("i", "f", "s", "n")`},
			{SQL: `INSERT INTO "t" VALUES (?, ?, ?, ?)`, Args: []any{int64(42), 1.0, "x", nil}},
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	_, err = c.Execute(ctx, domain.Request{
		Target: "rt.db",
		Batch:  true,
		Commands: []domain.Statement{
			{SQL: `INSERT INTO "t" ("i") VALUES (?)`, Rows: [][]any{{int64(-1)}, {int64(1 << 40)}}},
		},
	})
	if err != nil {
		t.Fatalf("Execute batch: %v", err)
	}

	resp, err := c.Execute(ctx, domain.NewRequest("rt.db", `SELECT "i", "f", "s", "n" FROM "t" ORDER BY rowid`))
	if err != nil {
		t.Fatalf("Execute select: %v", err)
	}
	want := [][]any{
		{int64(42), 1.0, "x", nil},
		{int64(-1), nil, nil, nil},
		{int64(1 << 40), nil, nil, nil},
	}
	if diff := cmp.Diff(want, resp.Rows); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
}

func TestExecute_MapsServerErrors(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv.URL, "")
	ctx := context.Background()

	_, err := c.Execute(ctx, domain.NewRequest(domain.MemoryTarget, `SELECT * FROM "nope"`))
	var se *domain.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %T %v", err, err)
	}
	if se.Statement != `SELECT * FROM "nope"` {
		t.Errorf("statement: %q", se.Statement)
	}

	_, err = c.Execute(ctx, domain.Request{Target: "x.db"})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "commands" {
		t.Errorf("expected validation error on commands, got %v", err)
	}

	_, err = c.Execute(ctx, domain.NewRequest("../escape", "SELECT 1"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for unsafe unit, got %v", err)
	}
}

func TestExecute_Unauthorized(t *testing.T) {
	srv := newTestServer(t, "right")
	c := newTestClient(t, srv.URL, "wrong")

	_, err := c.Execute(context.Background(), domain.NewRequest(domain.MemoryTarget, "SELECT 1"))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestExecute_TransportErrorKeepsCommands(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, "")
	_, err := c.Execute(context.Background(), domain.NewRequest("x", "SELECT 1"))
	var te *domain.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T %v", err, err)
	}
	if diff := cmp.Diff([]string{"SELECT 1"}, te.Commands); diff != "" {
		t.Errorf("commands (-want +got):\n%s", diff)
	}
	if !errors.Is(err, domain.ErrTransport) {
		t.Error("expected ErrTransport sentinel")
	}
}

func TestExecute_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := New(Config{URL: srv.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Execute(context.Background(), domain.NewRequest("x", "SELECT 1"))
	if !errors.Is(err, domain.ErrTransport) {
		t.Errorf("expected transport error on timeout, got %v", err)
	}
}

func TestExecute_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, "")
	_, err := c.Execute(context.Background(), domain.NewRequest("x", "SELECT 1"))
	if !errors.Is(err, domain.ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}

func TestExecute_SendsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, "tok")
	_, _ = c.Execute(context.Background(), domain.NewRequest("x", "SELECT 1"))

	if got.Get("Authorization") != "Bearer tok" {
		t.Errorf("authorization: %q", got.Get("Authorization"))
	}
	if _, err := uuid.Parse(got.Get("X-Request-Id")); err != nil {
		t.Errorf("request id is not a uuid: %q", got.Get("X-Request-Id"))
	}
	if !strings.HasPrefix(got.Get("User-Agent"), "nosqlite-go/") {
		t.Errorf("user agent: %q", got.Get("User-Agent"))
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "ftp://host", "localhost:8080"} {
		if _, err := New(Config{URL: u}); err == nil {
			t.Errorf("New(%q): expected error", u)
		}
	}
}
