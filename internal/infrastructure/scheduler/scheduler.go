// Package scheduler runs periodic billing jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStatus represents the outcome of a job run
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is a unit of scheduled work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobRun records the most recent execution of a job
type JobRun struct {
	Job         string     `json:"job"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Config holds scheduler settings
type Config struct {
	// Timezone names the IANA zone cron expressions are evaluated in
	Timezone string
	// JobTimeout bounds a single run
	JobTimeout time.Duration
}

type registeredJob struct {
	job     Job
	spec    string
	entryID cron.EntryID
	mu      sync.Mutex // held while the job runs
}

// Scheduler wraps a cron runner. Runs of the same job never overlap and a
// panicking job is recovered and recorded as failed.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.RWMutex
	jobs  map[string]*registeredJob
	runs  map[string]JobRun
	now   func() time.Time
	start sync.Once
}

// New creates a scheduler
func New(cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, cfg.Timezone, err)
		}
		loc = l
	}
	if cfg.JobTimeout < 0 {
		return nil, fmt.Errorf("%w: job timeout must not be negative", ErrInvalidConfig)
	}
	cronLogger := newCronLogger(logger)
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		timeout: cfg.JobTimeout,
		logger:  logger,
		jobs:    make(map[string]*registeredJob),
		runs:    make(map[string]JobRun),
		now:     time.Now,
	}, nil
}

// Register schedules job on a standard five-field cron spec
func (s *Scheduler) Register(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyRegistered, job.Name())
	}
	rj := &registeredJob{job: job, spec: spec}
	id, err := s.cron.AddFunc(spec, func() {
		if err := s.execute(context.Background(), rj); err != nil && !errors.Is(err, ErrJobRunning) {
			s.logger.Error("Scheduled job failed", zap.String("job", job.Name()), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("%w: schedule %q for %s: %v", ErrInvalidConfig, spec, job.Name(), err)
	}
	rj.entryID = id
	s.jobs[job.Name()] = rj
	s.logger.Info("Job scheduled", zap.String("job", job.Name()), zap.String("schedule", spec))
	return nil
}

// Start begins running scheduled jobs in the background
func (s *Scheduler) Start() {
	s.start.Do(func() {
		s.cron.Start()
		s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
	})
}

// Stop prevents new runs and waits for running jobs or ctx expiry
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow executes a registered job immediately, outside its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	rj, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(ctx, rj)
}

// NextRun returns when a job is next due
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.RLock()
	rj, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	entry := s.cron.Entry(rj.entryID)
	if entry.Schedule == nil {
		return time.Time{}, false
	}
	return entry.Schedule.Next(s.now().In(s.cron.Location())), true
}

// LastRun returns the most recent run of a job
func (s *Scheduler) LastRun(name string) (JobRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[name]
	return run, ok
}

func (s *Scheduler) execute(ctx context.Context, rj *registeredJob) (err error) {
	if !rj.mu.TryLock() {
		s.logger.Warn("Skipping job run, previous run still in progress", zap.String("job", rj.job.Name()))
		return ErrJobRunning
	}
	defer rj.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	name := rj.job.Name()
	run := JobRun{Job: name, Status: JobStatusRunning, StartedAt: s.now()}
	s.record(run)
	s.logger.Info("Job started", zap.String("job", name))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
		completed := s.now()
		run.CompletedAt = &completed
		run.Status = JobStatusSuccess
		if err != nil {
			run.Status = JobStatusFailed
			run.Error = err.Error()
		}
		s.record(run)
		s.logger.Info("Job finished",
			zap.String("job", name),
			zap.String("status", string(run.Status)),
			zap.Duration("duration", completed.Sub(run.StartedAt)),
		)
	}()

	return rj.job.Run(ctx)
}

func (s *Scheduler) record(run JobRun) {
	s.mu.Lock()
	s.runs[run.Job] = run
	s.mu.Unlock()
}

// cronLogger adapts zap to the cron.Logger interface
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func newCronLogger(logger *zap.Logger) cronLogger {
	return cronLogger{sugar: logger.Named("cron").Sugar()}
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

var _ cron.Logger = cronLogger{}
