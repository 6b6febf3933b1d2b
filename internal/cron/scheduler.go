package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("cron: scheduler already started")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Scheduler runs jobs on their cron schedule. A job whose previous tick is
// still running skips the new tick.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   map[string]Job
	locks  map[string]*sync.Mutex
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs must be registered before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:   make(map[string]Job),
		locks:  make(map[string]*sync.Mutex),
		logger: logger,
	}
}

// RegisterJob adds a job. The schedule is parsed eagerly so a bad
// expression fails at registration.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	if _, err := parser.Parse(j.Schedule()); err != nil {
		return fmt.Errorf("cron: invalid schedule for job %q: %w", name, err)
	}
	s.jobs[name] = j
	s.locks[name] = &sync.Mutex{}
	return nil
}

// Jobs returns the sorted names of registered jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start begins executing registered jobs. Job contexts derive from ctx and
// are cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithParser(parser))
	for name := range s.jobs {
		if _, err := c.AddFunc(s.jobs[name].Schedule(), func() { s.run(ctx, name) }); err != nil {
			cancel()
			return fmt.Errorf("cron: schedule job %q: %w", name, err)
		}
	}

	s.cancel = cancel
	s.cron = c
	c.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.jobs))
	return nil
}

// RunNow executes the named job immediately, honoring the overlap guard.
// It reports whether the job ran.
func (s *Scheduler) RunNow(ctx context.Context, name string) bool {
	return s.run(ctx, name)
}

func (s *Scheduler) run(ctx context.Context, name string) bool {
	s.mu.Lock()
	job, ok := s.jobs[name]
	lock := s.locks[name]
	s.mu.Unlock()
	if !ok {
		return false
	}

	if !lock.TryLock() {
		s.logger.Warn("cron: job still running, skipping tick", "job", name)
		return false
	}
	defer lock.Unlock()

	s.logger.Debug("cron: job started", "job", name)
	if err := job.Run(ctx); err != nil {
		s.logger.Error("cron: job failed", "job", name, "error", err)
		return true
	}
	s.logger.Debug("cron: job completed", "job", name)
	return true
}

// Stop cancels job contexts and waits for in-flight jobs.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		<-c.Stop().Done()
		s.logger.Info("cron: scheduler stopped")
	}
	return nil
}
