// Package sqlite implements the storage layer on SQLite (modernc.org/sqlite).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // driver "sqlite"

	"github.com/kailas-cloud/nosqlite/internal/db"
	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/metrics"
)

// Compile-time check: Router implements db.Router.
var _ db.Router = (*Router)(nil)

const driverName = "sqlite"

// Config holds storage parameters.
type Config struct {
	// DataDir holds one database file per storage unit.
	DataDir     string
	BusyTimeout time.Duration
	// JournalMode applies to file-backed units only.
	JournalMode string
}

// Router opens one handle per physical storage unit and caches it for the
// lifetime of the process.
type Router struct {
	cfg Config

	mu     sync.Mutex
	units  map[string]*sql.DB
	closed bool
}

// NewRouter creates the data directory and returns an empty router.
func NewRouter(cfg Config) (*Router, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Router{cfg: cfg, units: make(map[string]*sql.DB)}, nil
}

// Resolve returns the cached handle for name, opening it on first use.
// An empty name selects the default unit.
func (r *Router) Resolve(ctx context.Context, name string) (*sql.DB, error) {
	if name == "" {
		name = domain.DefaultTarget
	}
	if err := ValidateUnitName(name); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, db.ErrClosed
	}
	if h, ok := r.units[name]; ok {
		return h, nil
	}

	h, err := r.open(ctx, name)
	if err != nil {
		return nil, err
	}
	r.units[name] = h
	metrics.StorageUnitsOpen.Set(float64(len(r.units)))
	return h, nil
}

func (r *Router) open(ctx context.Context, name string) (*sql.DB, error) {
	dsn := name
	if name != domain.MemoryTarget {
		dsn = filepath.Join(r.cfg.DataDir, name)
	}

	h, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	// One connection per unit: keeps :memory: alive and serializes
	// statements against the same file in-process.
	h.SetMaxOpenConns(1)
	h.SetMaxIdleConns(1)
	h.SetConnMaxLifetime(0)
	h.SetConnMaxIdleTime(0)

	if err := h.PingContext(ctx); err != nil {
		_ = h.Close()
		return nil, &db.Error{Op: db.OpPing, Err: err}
	}
	if err := r.applyPragmas(ctx, h, name == domain.MemoryTarget); err != nil {
		_ = h.Close()
		return nil, err
	}
	return h, nil
}

func (r *Router) applyPragmas(ctx context.Context, h *sql.DB, memory bool) error {
	statements := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", r.cfg.BusyTimeout.Milliseconds()),
	}
	if !memory && r.cfg.JournalMode != "" {
		statements = append(statements, "PRAGMA journal_mode = "+r.cfg.JournalMode)
	}

	for _, stmt := range statements {
		if _, err := h.ExecContext(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpPragma, Err: fmt.Errorf("%s: %w", stmt, err)}
		}
	}
	return nil
}

// Units returns the names of the open units in sorted order.
func (r *Router) Units() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.units))
}

// Ping checks every open unit.
func (r *Router) Ping(ctx context.Context) error {
	r.mu.Lock()
	handles := make(map[string]*sql.DB, len(r.units))
	maps.Copy(handles, r.units)
	closed := r.closed
	r.mu.Unlock()

	if closed {
		return db.ErrClosed
	}
	for name, h := range handles {
		if err := h.PingContext(ctx); err != nil {
			return &db.Error{Op: db.OpPing, Err: fmt.Errorf("unit %s: %w", name, err)}
		}
	}
	return nil
}

// Close closes every handle. Further Resolve calls fail with db.ErrClosed.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, h := range r.units {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = &db.Error{Op: db.OpClose, Err: fmt.Errorf("unit %s: %w", name, err)}
		}
	}
	clear(r.units)
	r.closed = true
	metrics.StorageUnitsOpen.Set(0)
	return firstErr
}

// ValidateUnitName rejects names that would escape the data directory.
func ValidateUnitName(name string) error {
	if name == domain.MemoryTarget {
		return nil
	}
	switch {
	case name == "":
		return domain.NewValidation("target", "name is required")
	case name == "." || name == "..":
		return domain.NewValidation("target", "name "+name+" is reserved")
	case strings.ContainsAny(name, `/\:`) || strings.ContainsRune(name, 0):
		return domain.NewValidation("target", "name "+name+" contains a reserved character")
	}
	return nil
}
