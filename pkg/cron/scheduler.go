// Package cron runs agent tasks on cron schedules.
package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// TaskRunner executes one task and returns its textual result.
type TaskRunner interface {
	Run(ctx context.Context, task string) (string, error)
}

// Job is a scheduled task.
type Job struct {
	ID   string `json:"id"`
	Expr string `json:"expr"`
	Task string `json:"task"`
	TZ   string `json:"tz,omitempty"`

	entryID cron.EntryID
}

// JobResult is delivered to the result callback after every run.
type JobResult struct {
	JobID    string
	Task     string
	Result   string
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Scheduler fires jobs through a TaskRunner. Runs of the same job never overlap.
type Scheduler struct {
	runner   TaskRunner
	logger   zerolog.Logger
	cron     *cron.Cron
	onResult func(JobResult)

	mu      sync.Mutex
	jobs    map[string]*Job
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithResultHandler sets a callback invoked after each job run.
func WithResultHandler(fn func(JobResult)) Option {
	return func(s *Scheduler) { s.onResult = fn }
}

// WithLogger sets the scheduler logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// New creates a stopped scheduler.
func New(runner TaskRunner, opts ...Option) *Scheduler {
	s := &Scheduler{
		runner: runner,
		logger: zerolog.Nop(),
		jobs:   make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(s)
	}

	cronLogger := zerologAdapter{logger: s.logger}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// AddJob schedules task on expr. tz, when set, is an IANA location the
// expression is evaluated in.
func (s *Scheduler) AddJob(expr, task, tz string) (*Job, error) {
	if task == "" {
		return nil, fmt.Errorf("task cannot be empty")
	}

	schedule := expr
	if tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("invalid timezone: %w", err)
		}
		schedule = "CRON_TZ=" + tz + " " + expr
	}
	if err := Validate(expr); err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate job id: %w", err)
	}
	job := &Job{ID: id, Expr: expr, Task: task, TZ: tz}

	entryID, err := s.cron.AddFunc(schedule, func() { s.execute(job) })
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	job.entryID = entryID

	s.mu.Lock()
	s.jobs[id] = job
	s.mu.Unlock()

	s.logger.Info().Str("job_id", id).Str("expr", expr).Str("task", task).Msg("Job scheduled")

	return job, nil
}

// RemoveJob unschedules a job.
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	s.cron.Remove(job.entryID)
	delete(s.jobs, id)
	return nil
}

// Jobs returns the scheduled jobs.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	return out
}

// NextRun returns the next fire time of a job.
func (s *Scheduler) NextRun(id string) (time.Time, bool) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(job.entryID).Next, true
}

// RunNow executes a job synchronously, outside its schedule.
func (s *Scheduler) RunNow(id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	s.execute(job)
	return nil
}

// Start begins firing jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	s.cron.Start()
	s.running = true
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
	return nil
}

// Stop stops firing jobs, cancels running tasks and waits for them to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		s.logger.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the scheduler is started.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) execute(job *Job) {
	start := time.Now()
	logger := s.logger.With().Str("job_id", job.ID).Logger()
	logger.Debug().Str("task", job.Task).Msg("Job firing")

	result, err := s.runner.Run(s.ctx, job.Task)

	jr := JobResult{
		JobID:    job.ID,
		Task:     job.Task,
		Result:   result,
		Err:      err,
		Started:  start,
		Duration: time.Since(start),
	}
	if err != nil {
		logger.Error().Err(err).Msg("Job run failed")
	} else {
		logger.Info().Dur("duration", jr.Duration).Msg("Job run completed")
	}

	if s.onResult != nil {
		s.onResult(jr)
	}
}

// Validate checks a cron expression. Five-field expressions and
// descriptors such as @hourly or @every 5m are accepted.
func Validate(expr string) error {
	if expr == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// Next returns the first fire time of expr strictly after from.
func Next(expr string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}
	return sched.Next(from), nil
}

// zerologAdapter satisfies cron.Logger.
type zerologAdapter struct {
	logger zerolog.Logger
}

func (a zerologAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (a zerologAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
