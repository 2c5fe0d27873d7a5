package health

import "context"

// StoragePinger checks storage availability.
type StoragePinger interface {
	Ping(ctx context.Context) error
}

// PoolChecker checks that the execution pool accepts work.
type PoolChecker interface {
	HealthCheck(ctx context.Context) error
}
