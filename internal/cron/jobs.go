package cron

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/sigma/internal/metrics"
)

// Default schedules.
const (
	DefaultCheckpointSchedule   = "*/30 * * * *"
	DefaultSessionGaugeSchedule = "* * * * *"
)

// Checkpointer flushes a write-ahead log into the main database file.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// SessionCounter reports the number of sessions held in memory.
type SessionCounter interface {
	Sessions() int
}

// CheckpointJob truncates the SQLite WAL so it does not grow unbounded
// between automatic checkpoints.
type CheckpointJob struct {
	Store        Checkpointer
	Logger       *slog.Logger
	ScheduleExpr string // empty = DefaultCheckpointSchedule
}

var _ Job = (*CheckpointJob)(nil)

// Name implements Job.
func (j *CheckpointJob) Name() string { return "sqlite-checkpoint" }

// Schedule implements Job.
func (j *CheckpointJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultCheckpointSchedule
}

// Run implements Job.
func (j *CheckpointJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cron: checkpoint cancelled: %w", err)
	}
	if err := j.Store.Checkpoint(ctx); err != nil {
		return err
	}
	if j.Logger != nil {
		j.Logger.Debug("cron: wal checkpoint done")
	}
	return nil
}

// SessionGaugeJob copies the in-memory session count into the
// sigma_sessions gauge.
type SessionGaugeJob struct {
	Sessions     SessionCounter
	Metrics      *metrics.Metrics
	ScheduleExpr string // empty = DefaultSessionGaugeSchedule
}

var _ Job = (*SessionGaugeJob)(nil)

// Name implements Job.
func (j *SessionGaugeJob) Name() string { return "session-gauge" }

// Schedule implements Job.
func (j *SessionGaugeJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultSessionGaugeSchedule
}

// Run implements Job.
func (j *SessionGaugeJob) Run(_ context.Context) error {
	j.Metrics.SetSessions(j.Sessions.Sessions())
	return nil
}
