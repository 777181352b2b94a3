package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type funcJob struct {
	name  string
	calls atomic.Int32
	run   func(ctx context.Context) error
}

func (j *funcJob) Name() string { return j.name }

func (j *funcJob) Run(ctx context.Context) error {
	j.calls.Add(1)
	if j.run == nil {
		return nil
	}
	return j.run(ctx)
}

func newTestScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	s, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Timezone: "Mars/Olympus_Mons"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{JobTimeout: -time.Second}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err := New(Config{Timezone: "Europe/London", JobTimeout: time.Minute}, nil)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestScheduler_Register(t *testing.T) {
	s := newTestScheduler(t, Config{})

	require.NoError(t, s.Register("0 6 1 * *", &funcJob{name: "monthly"}))
	assert.ErrorIs(t, s.Register("0 6 1 * *", &funcJob{name: "monthly"}), ErrJobAlreadyRegistered)
	assert.ErrorIs(t, s.Register("not a cron", &funcJob{name: "broken"}), ErrInvalidConfig)
}

func TestScheduler_NextRun(t *testing.T) {
	s := newTestScheduler(t, Config{Timezone: "UTC"})
	require.NoError(t, s.Register("0 6 1 * *", &funcJob{name: "monthly"}))
	s.Start()
	defer func() { _ = s.Stop(context.Background()) }()

	next, ok := s.NextRun("monthly")
	require.True(t, ok)
	assert.Equal(t, 1, next.Day())
	assert.Equal(t, 6, next.Hour())

	_, ok = s.NextRun("missing")
	assert.False(t, ok)
}

func TestScheduler_RunNow(t *testing.T) {
	t.Run("records success", func(t *testing.T) {
		s := newTestScheduler(t, Config{})
		job := &funcJob{name: "ok"}
		require.NoError(t, s.Register("@monthly", job))

		require.NoError(t, s.RunNow(context.Background(), "ok"))

		run, ok := s.LastRun("ok")
		require.True(t, ok)
		assert.Equal(t, JobStatusSuccess, run.Status)
		assert.NotNil(t, run.CompletedAt)
		assert.Equal(t, int32(1), job.calls.Load())
	})

	t.Run("records failure", func(t *testing.T) {
		s := newTestScheduler(t, Config{})
		require.NoError(t, s.Register("@monthly", &funcJob{name: "bad", run: func(context.Context) error {
			return errors.New("database unavailable")
		}}))

		err := s.RunNow(context.Background(), "bad")
		require.Error(t, err)

		run, _ := s.LastRun("bad")
		assert.Equal(t, JobStatusFailed, run.Status)
		assert.Equal(t, "database unavailable", run.Error)
	})

	t.Run("recovers panics", func(t *testing.T) {
		s := newTestScheduler(t, Config{})
		require.NoError(t, s.Register("@monthly", &funcJob{name: "panics", run: func(context.Context) error {
			panic("nil map")
		}}))

		err := s.RunNow(context.Background(), "panics")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
		run, _ := s.LastRun("panics")
		assert.Equal(t, JobStatusFailed, run.Status)
	})

	t.Run("applies job timeout", func(t *testing.T) {
		s := newTestScheduler(t, Config{JobTimeout: 20 * time.Millisecond})
		require.NoError(t, s.Register("@monthly", &funcJob{name: "slow", run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}}))

		err := s.RunNow(context.Background(), "slow")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("unknown job", func(t *testing.T) {
		s := newTestScheduler(t, Config{})
		assert.ErrorIs(t, s.RunNow(context.Background(), "nope"), ErrJobNotFound)
	})

	t.Run("overlapping run is skipped", func(t *testing.T) {
		s := newTestScheduler(t, Config{})
		started := make(chan struct{})
		release := make(chan struct{})
		require.NoError(t, s.Register("@monthly", &funcJob{name: "long", run: func(context.Context) error {
			close(started)
			<-release
			return nil
		}}))

		done := make(chan error, 1)
		go func() { done <- s.RunNow(context.Background(), "long") }()
		<-started

		assert.ErrorIs(t, s.RunNow(context.Background(), "long"), ErrJobRunning)
		close(release)
		assert.NoError(t, <-done)
	})
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := newTestScheduler(t, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
