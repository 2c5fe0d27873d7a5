package collection

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/kailas-cloud/nosqlite/internal/db/sqlite"
	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/usecase/execute"
)

// newTestService wires the service to a fresh SQLite router through the
// pooled executor, the same path the server uses.
func newTestService(t *testing.T) *Service {
	t.Helper()
	router, err := sqlite.NewRouter(sqlite.Config{DataDir: t.TempDir(), BusyTimeout: 5 * time.Second, JournalMode: "WAL"})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	exec, err := execute.New(sqlite.NewStore(router), 8, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("execute.New: %v", err)
	}
	t.Cleanup(func() {
		_ = exec.Close(time.Second)
		_ = router.Close()
	})
	return New(exec, zaptest.NewLogger(t))
}

func memRef(name string) Ref {
	return Ref{Target: domain.MemoryTarget, Name: name}
}

// mockExecutor implements Executor with an optional hook per call.
type mockExecutor struct {
	executeFn func(ctx context.Context, req domain.Request) (domain.Response, error)
	requests  []domain.Request
}

func (m *mockExecutor) Execute(ctx context.Context, req domain.Request) (domain.Response, error) {
	m.requests = append(m.requests, req)
	if m.executeFn != nil {
		return m.executeFn(ctx, req)
	}
	return domain.Response{}, nil
}
