package cron

import (
	"context"
	"fmt"
	"time"
)

// StaleSessionCloser force-closes attendance sessions left open too long.
type StaleSessionCloser interface {
	CloseStaleSessions(ctx context.Context) (int, error)
}

type AttendanceJobs struct {
	closer   StaleSessionCloser
	interval time.Duration
}

func NewAttendanceJobs(closer StaleSessionCloser, interval time.Duration) *AttendanceJobs {
	return &AttendanceJobs{closer: closer, interval: interval}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("auto_close_stale_sessions", j.interval, j.AutoCloseStaleSessions)
}

func (j *AttendanceJobs) AutoCloseStaleSessions(ctx context.Context) error {
	if _, err := j.closer.CloseStaleSessions(ctx); err != nil {
		return fmt.Errorf("auto close stale sessions: %w", err)
	}
	return nil
}
