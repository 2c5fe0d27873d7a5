package nosqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nosqlite/internal/db/sqlite"
	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/transport/rpc"
	collectionuc "github.com/kailas-cloud/nosqlite/internal/usecase/collection"
	"github.com/kailas-cloud/nosqlite/internal/usecase/execute"
)

const (
	defaultBusyTimeout = 5 * time.Second
	closeTimeout       = 10 * time.Second
)

// executor is the single operation the mapping layer needs. It is
// satisfied by the in-process executor and by the remote RPC client.
type executor interface {
	Execute(ctx context.Context, req domain.Request) (domain.Response, error)
}

// Client is the nosqlite SDK entry point. It either embeds the storage
// engine or talks to a nosqlited server (WithServer).
type Client struct {
	exec   executor
	svc    *collectionuc.Service
	obs    *observer
	remote bool
	close  func() error
}

// New creates a Client. Without WithServer the client stores data
// in-process under WithDataDir.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dataDir:     ".",
		journalMode: "WAL",
		busyTimeout: defaultBusyTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	if cfg.url != "" {
		rc, err := rpc.New(rpc.Config{
			URL:        cfg.url,
			APIKey:     cfg.apiKey,
			Timeout:    cfg.timeout,
			HTTPClient: cfg.httpClient,
		})
		if err != nil {
			return nil, fmt.Errorf("nosqlite: %w", err)
		}
		return newClient(rc, obs, true, func() error { return nil }), nil
	}

	router, err := sqlite.NewRouter(sqlite.Config{
		DataDir:     cfg.dataDir,
		BusyTimeout: cfg.busyTimeout,
		JournalMode: cfg.journalMode,
	})
	if err != nil {
		return nil, fmt.Errorf("nosqlite: open storage: %w", err)
	}
	exec, err := execute.New(sqlite.NewStore(router), cfg.concurrency, zap.NewNop())
	if err != nil {
		_ = router.Close()
		return nil, fmt.Errorf("nosqlite: %w", err)
	}
	return newClient(exec, obs, false, func() error {
		return errors.Join(exec.Close(closeTimeout), router.Close())
	}), nil
}

func newClient(exec executor, obs *observer, remote bool, closeFn func() error) *Client {
	return &Client{
		exec:   exec,
		svc:    collectionuc.New(exec, zap.NewNop()),
		obs:    obs,
		remote: remote,
		close:  closeFn,
	}
}

// Close releases local storage handles. It is a no-op in remote mode.
func (c *Client) Close() error {
	if err := c.close(); err != nil {
		return fmt.Errorf("nosqlite: close: %w", err)
	}
	return nil
}

// Remote reports whether the client talks to a server.
func (c *Client) Remote() bool { return c.remote }

// Database returns a handle for the named database. "memory" selects the
// non-persistent database; any other name is a file under the data
// directory (embedded) or the server's data directory (remote).
func (c *Client) Database(name string) *Database {
	return &Database{name: name, client: c}
}

// Collection is a shortcut for c.Database(db).Collection(name).
func (c *Client) Collection(db, name string) *Collection {
	return c.Database(db).Collection(name)
}

// Exec runs one raw SQL statement against db and returns its rows.
// Arguments are bound positionally and pass through unchanged.
func (c *Client) Exec(ctx context.Context, db, sql string, args ...any) (rows [][]any, err error) {
	start := time.Now()
	defer func() { c.obs.observe("exec", db, start, err) }()

	resp, err := c.exec.Execute(ctx, domain.NewRequest(physicalName(db), sql, args...))
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	return resp.Rows, nil
}

// Ping runs a trivial statement against the memory database.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", MemoryDatabase, start, err) }()

	if _, err = c.exec.Execute(ctx, domain.NewRequest(domain.MemoryTarget, "SELECT 1")); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// physicalName maps a database name to its storage unit name.
func physicalName(db string) string {
	if db == MemoryDatabase {
		return domain.MemoryTarget
	}
	return db
}
