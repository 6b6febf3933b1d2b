// Package cron runs periodic maintenance jobs: SQLite WAL checkpoints and
// the session gauge refresh.
package cron

import "context"

// Job is a periodic background task.
type Job interface {
	// Name identifies the job in logs. Names are unique per scheduler.
	Name() string
	// Schedule returns a 5-field cron expression.
	Schedule() string
	// Run executes one tick.
	Run(ctx context.Context) error
}
