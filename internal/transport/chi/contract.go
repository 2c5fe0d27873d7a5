package chi

import (
	"context"

	"github.com/kailas-cloud/nosqlite/internal/domain"
)

// Executor runs execute requests.
type Executor interface {
	Execute(ctx context.Context, req domain.Request) (domain.Response, error)
}
