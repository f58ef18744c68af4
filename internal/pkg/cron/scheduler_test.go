package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunsImmediatelyAndStops(t *testing.T) {
	s := NewScheduler(quietLogger())

	var runs atomic.Int32
	s.AddJob("count", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_RunOnceContinuesAfterFailure(t *testing.T) {
	s := NewScheduler(quietLogger())

	var second bool
	s.AddJob("fails", time.Hour, func(ctx context.Context) error { return errors.New("boom") })
	s.AddJob("succeeds", time.Hour, func(ctx context.Context) error {
		second = true
		return nil
	})

	s.RunOnce(context.Background())
	assert.True(t, second)
}

type stubCloser struct {
	closed int
	err    error
	calls  int
}

func (s *stubCloser) CloseStaleSessions(ctx context.Context) (int, error) {
	s.calls++
	return s.closed, s.err
}

func TestAttendanceJobs(t *testing.T) {
	closer := &stubCloser{closed: 2}
	jobs := NewAttendanceJobs(closer, 15*time.Minute)

	s := NewScheduler(quietLogger())
	jobs.RegisterJobs(s)
	s.RunOnce(context.Background())
	assert.Equal(t, 1, closer.calls)

	closer.err = errors.New("db down")
	err := jobs.AutoCloseStaleSessions(context.Background())
	assert.ErrorContains(t, err, "db down")
}
