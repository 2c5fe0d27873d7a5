package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type pinger struct{ err error }

func (p pinger) Ping(_ context.Context) error { return p.err }

type pool struct{ err error }

func (p pool) HealthCheck(_ context.Context) error { return p.err }

type stuck struct{}

func (stuck) Ping(ctx context.Context) error {
	<-ctx.Done()
	time.Sleep(10 * time.Millisecond)
	return ctx.Err()
}

func TestCheck(t *testing.T) {
	down := errors.New("down")

	tests := []struct {
		name   string
		checks []Check
		want   Report
	}{
		{
			name:   "all healthy",
			checks: []Check{Storage(pinger{}), Executor(pool{})},
			want:   Report{Status: Healthy, Checks: map[string]CheckResult{"storage": CheckOK, "executor": CheckOK}},
		},
		{
			name:   "storage down",
			checks: []Check{Storage(pinger{err: down}), Executor(pool{})},
			want:   Report{Status: Unhealthy, Checks: map[string]CheckResult{"storage": CheckError, "executor": CheckOK}},
		},
		{
			name:   "pool closed",
			checks: []Check{Storage(pinger{}), Executor(pool{err: down})},
			want:   Report{Status: Degraded, Checks: map[string]CheckResult{"storage": CheckOK, "executor": CheckError}},
		},
		{
			name:   "both down",
			checks: []Check{Executor(pool{err: down}), Storage(pinger{err: down})},
			want:   Report{Status: Unhealthy, Checks: map[string]CheckResult{"storage": CheckError, "executor": CheckError}},
		},
		{
			name:   "storage only",
			checks: []Check{Storage(pinger{})},
			want:   Report{Status: Healthy, Checks: map[string]CheckResult{"storage": CheckOK}},
		},
		{
			name: "no checks",
			want: Report{Status: Healthy, Checks: map[string]CheckResult{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.checks...).Check(context.Background())
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("report (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheck_ProbeTimeout(t *testing.T) {
	svc := New(Storage(stuck{}), Executor(pool{})).WithTimeout(20 * time.Millisecond)

	start := time.Now()
	got := svc.Check(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("check took %v", elapsed)
	}
	want := Report{Status: Unhealthy, Checks: map[string]CheckResult{"storage": CheckTimeout, "executor": CheckOK}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report (-want +got):\n%s", diff)
	}
}
