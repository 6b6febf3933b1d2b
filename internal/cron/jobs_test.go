package cron_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/flemzord/sigma/internal/cron"
	"github.com/flemzord/sigma/internal/cron/crontest"
	"github.com/flemzord/sigma/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCheckpointJob_Defaults(t *testing.T) {
	t.Parallel()

	j := &cron.CheckpointJob{}
	if j.Name() != "sqlite-checkpoint" {
		t.Errorf("name = %q, want %q", j.Name(), "sqlite-checkpoint")
	}
	if j.Schedule() != "*/30 * * * *" {
		t.Errorf("schedule = %q, want %q", j.Schedule(), "*/30 * * * *")
	}

	j.ScheduleExpr = "0 * * * *"
	if j.Schedule() != "0 * * * *" {
		t.Errorf("schedule override = %q", j.Schedule())
	}
}

func TestCheckpointJob_Run(t *testing.T) {
	t.Parallel()

	store := &crontest.MockCheckpointer{}
	j := &cron.CheckpointJob{Store: store, Logger: slog.Default()}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.Calls.Load() != 1 {
		t.Errorf("checkpoint calls = %d, want 1", store.Calls.Load())
	}
}

func TestCheckpointJob_Error(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	j := &cron.CheckpointJob{Store: &crontest.MockCheckpointer{Err: boom}}
	if err := j.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}

func TestCheckpointJob_CancelledContext(t *testing.T) {
	t.Parallel()

	store := &crontest.MockCheckpointer{}
	j := &cron.CheckpointJob{Store: store}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.Run(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if store.Calls.Load() != 0 {
		t.Error("checkpoint should not run with a cancelled context")
	}
}

func TestSessionGaugeJob_Run(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	j := &cron.SessionGaugeJob{Sessions: crontest.StaticSessions(7), Metrics: m}
	if j.Name() != "session-gauge" || j.Schedule() != "* * * * *" {
		t.Errorf("job = %q %q", j.Name(), j.Schedule())
	}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expected := `
# HELP sigma_sessions Sessions held in memory.
# TYPE sigma_sessions gauge
sigma_sessions 7
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "sigma_sessions"); err != nil {
		t.Error(err)
	}
}

func TestSessionGaugeJob_NilMetrics(t *testing.T) {
	t.Parallel()

	j := &cron.SessionGaugeJob{Sessions: crontest.StaticSessions(1)}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
