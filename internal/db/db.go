package db

import (
	"context"
	"database/sql"

	"github.com/kailas-cloud/nosqlite/internal/domain"
)

//go:generate mockgen -destination=mock/executor.go -package=mock . Executor

// Executor runs one request against one storage unit.
type Executor interface {
	Execute(ctx context.Context, req domain.Request) (domain.Response, error)
}

// Pinger checks storage availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router resolves physical storage unit names to open handles.
type Router interface {
	Pinger
	Resolve(ctx context.Context, name string) (*sql.DB, error)
	Units() []string
	Close() error
}
