package collection

import (
	"context"

	"github.com/kailas-cloud/nosqlite/internal/domain"
)

// Executor runs a request against a storage unit, locally or remotely.
type Executor interface {
	Execute(ctx context.Context, req domain.Request) (domain.Response, error)
}
