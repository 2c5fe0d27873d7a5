package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a non-critical component failed.
	Degraded Status = "degraded"
	// Unhealthy indicates a critical component failed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckTimeout indicates the probe did not answer in time.
	CheckTimeout CheckResult = "timeout"
)

// DefaultProbeTimeout bounds each probe when the service has no override.
const DefaultProbeTimeout = 2 * time.Second

// Check is one named probe. A failing critical check makes the report
// Unhealthy, any other failure only Degraded.
type Check struct {
	Name     string
	Critical bool
	Probe    func(ctx context.Context) error
}

// Storage probes the storage router. Storage is critical.
func Storage(p StoragePinger) Check {
	return Check{Name: "storage", Critical: true, Probe: p.Ping}
}

// Executor probes the execute pool.
func Executor(p PoolChecker) Check {
	return Check{Name: "executor", Probe: p.HealthCheck}
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs the registered checks concurrently.
type Service struct {
	checks  []Check
	timeout time.Duration
}

// New creates a Service over checks.
func New(checks ...Check) *Service {
	return &Service{checks: checks, timeout: DefaultProbeTimeout}
}

// WithTimeout overrides the per-probe timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs every probe and folds the results into one status.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.checks))

	var wg sync.WaitGroup
	for i, c := range s.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.probe(ctx, c)
		}()
	}
	wg.Wait()

	report := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.checks))}
	for i, c := range s.checks {
		report.Checks[c.Name] = results[i]
		if results[i] == CheckOK {
			continue
		}
		if c.Critical {
			report.Status = Unhealthy
		} else if report.Status == Healthy {
			report.Status = Degraded
		}
	}
	return report
}

func (s *Service) probe(ctx context.Context, c Check) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Probe(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			return CheckError
		}
		return CheckOK
	case <-ctx.Done():
		return CheckTimeout
	}
}
