package execute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/logger"
	"github.com/kailas-cloud/nosqlite/internal/metrics"
)

// DefaultConcurrency bounds in-flight requests when none is configured.
const DefaultConcurrency = 64

// ErrPoolClosed is returned after Close.
var ErrPoolClosed = errors.New("execute pool closed")

// Service runs execute requests on a bounded worker pool.
type Service struct {
	store  Store
	pool   *ants.Pool
	logger *zap.Logger
}

type result struct {
	resp domain.Response
	err  error
}

// New creates a Service with at most size concurrent requests.
func New(store Store, size int, log *zap.Logger) (*Service, error) {
	if size <= 0 {
		size = DefaultConcurrency
	}
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		log.Error("Execute worker panic", zap.Any("panic", v))
	}))
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Service{store: store, pool: pool, logger: log}, nil
}

// Execute validates req and runs it on the pool. The caller stops waiting
// when ctx is done; the statement itself observes the same ctx.
func (s *Service) Execute(ctx context.Context, req domain.Request) (domain.Response, error) {
	if err := req.Validate(); err != nil {
		return domain.Response{}, err
	}
	if req.Target == "" {
		req.Target = domain.DefaultTarget
	}

	start := time.Now()
	done := make(chan result, 1)
	err := s.pool.Submit(func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("execute panic: %v", p)}
			}
		}()
		resp, err := s.store.Execute(ctx, req)
		done <- result{resp: resp, err: err}
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolClosed) {
			return domain.Response{}, ErrPoolClosed
		}
		return domain.Response{}, fmt.Errorf("submit: %w", err)
	}

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = result{err: ctx.Err()}
	}
	s.observe(ctx, req, r.err, time.Since(start))
	return r.resp, r.err
}

func (s *Service) observe(ctx context.Context, req domain.Request, err error, d time.Duration) {
	mode := "single"
	if req.Batch {
		mode = "batch"
	}
	status := "ok"
	if err != nil {
		status = "error"
		metrics.ExecuteErrorsTotal.WithLabelValues(errorType(err)).Inc()
	}
	metrics.StatementsTotal.WithLabelValues(mode, status).Add(float64(statementCount(req)))
	metrics.ExecuteDuration.WithLabelValues(status).Observe(d.Seconds())
	metrics.PoolRunning.Set(float64(s.pool.Running()))

	log := logger.FromContext(ctx, s.logger)
	if err != nil {
		log.Warn("Execute failed",
			zap.String("target", req.Target),
			zap.Int("statements", len(req.Commands)),
			zap.Bool("batch", req.Batch),
			zap.Duration("duration", d),
			zap.Error(err),
		)
		return
	}
	log.Debug("Execute",
		zap.String("target", req.Target),
		zap.Int("statements", len(req.Commands)),
		zap.Bool("batch", req.Batch),
		zap.Duration("duration", d),
	)
}

func statementCount(req domain.Request) int {
	if !req.Batch {
		return len(req.Commands)
	}
	n := 0
	for _, c := range req.Commands {
		n += max(len(c.Rows), 1)
	}
	return n
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrStorage):
		return "storage"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

// HealthCheck reports whether the pool accepts work.
func (s *Service) HealthCheck(_ context.Context) error {
	if s.pool.IsClosed() {
		return ErrPoolClosed
	}
	return nil
}

// Close waits up to timeout for running requests and releases the pool.
func (s *Service) Close(timeout time.Duration) error {
	if err := s.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("release pool: %w", err)
	}
	return nil
}
