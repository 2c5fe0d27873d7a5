package execute

import (
	"context"

	"github.com/kailas-cloud/nosqlite/internal/domain"
)

// Store runs a request against storage.
type Store interface {
	Execute(ctx context.Context, req domain.Request) (domain.Response, error)
}
