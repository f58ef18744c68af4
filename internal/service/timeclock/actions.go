package timeclock

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/timeclock"
)

const (
	actionClockIn    = "clock_in"
	actionClockOut   = "clock_out"
	actionStartBreak = "break_start"
	actionEndBreak   = "break_end"
)

// ClockIn verifies the current position with the time-tracking service and opens a
// session. Concurrent calls share one attempt. Cancelling ctx only abandons the wait:
// the shared attempt keeps running for the other callers until it finishes or the
// controller is closed.
func (c *Controller) ClockIn(ctx context.Context) (timeclock.ActionResult, error) {
	if err := c.checkLoaded(); err != nil {
		return timeclock.ActionResult{}, err
	}
	return c.do(ctx, actionClockIn, c.clockIn)
}

func (c *Controller) clockIn(ctx context.Context) (timeclock.ActionResult, error) {
	c.mu.Lock()
	fence := c.fence
	shift := c.shift
	c.verifying = true
	c.mu.Unlock()

	evaluation, sample, err := c.evaluateHere(ctx, fence)

	c.mu.Lock()
	c.verifying = false
	c.mu.Unlock()

	if err != nil {
		return timeclock.ActionResult{}, err
	}

	remote, err := evaluation.Authoritative()
	if err != nil {
		return timeclock.ActionResult{}, err
	}
	if !remote.WithinRange {
		return timeclock.ActionResult{}, &timeclock.ServiceError{
			Kind:    timeclock.ErrGeofenceViolation,
			Message: remote.Message,
		}
	}
	if shift != nil && !shift.Active(c.now()) {
		return timeclock.ActionResult{}, timeclock.ErrOutsideShift
	}

	result, err := c.api.ClockIn(ctx, sample)
	if err != nil {
		return timeclock.ActionResult{}, fmt.Errorf("clock in: %w", err)
	}

	c.logger.Info("Clocked in", "latitude", sample.Latitude, "longitude", sample.Longitude)

	c.refresh(ctx, timeclock.StateClockedIn)
	if err := c.syncMonitoring(); err != nil {
		c.logger.Error("Failed to start location monitoring", "error", err)
	}
	c.emitState()
	return result, nil
}

// ClockOut closes the open session. The exit position is best effort: when no fresh fix
// is available the last monitored sample is sent, or none at all.
func (c *Controller) ClockOut(ctx context.Context) (timeclock.ActionResult, error) {
	if err := c.checkLoaded(); err != nil {
		return timeclock.ActionResult{}, err
	}
	if !c.State().Monitored() {
		return timeclock.ActionResult{}, timeclock.ErrNoOpenSession
	}

	var exit *timeclock.LocationSample
	if sample, err := c.locate(ctx); err == nil {
		exit = &sample
	} else {
		c.logger.Info("No fresh exit position, using last known sample", "error", err)
		exit = c.Snapshot().LastSample
	}

	return c.clockOut(ctx, exit, false)
}

func (c *Controller) clockOut(ctx context.Context, exit *timeclock.LocationSample, auto bool) (timeclock.ActionResult, error) {
	return c.do(ctx, actionClockOut, func(ctx context.Context) (timeclock.ActionResult, error) {
		if !c.State().Monitored() {
			return timeclock.ActionResult{}, timeclock.ErrNoOpenSession
		}

		result, err := c.api.ClockOut(ctx, exit, auto)
		if err != nil {
			return timeclock.ActionResult{}, fmt.Errorf("clock out: %w", err)
		}

		c.logger.Info("Clocked out", "auto", auto)

		c.refresh(ctx, timeclock.StateClockedOut)
		if err := c.syncMonitoring(); err != nil {
			c.logger.Error("Failed to sync location monitoring", "error", err)
		}
		c.emitState()
		return result, nil
	})
}

func (c *Controller) StartBreak(ctx context.Context) (timeclock.ActionResult, error) {
	if err := c.checkLoaded(); err != nil {
		return timeclock.ActionResult{}, err
	}
	switch c.State() {
	case timeclock.StateClockedIn:
	case timeclock.StateOnBreak:
		return timeclock.ActionResult{}, timeclock.ErrAlreadyOnBreak
	default:
		return timeclock.ActionResult{}, timeclock.ErrNoOpenSession
	}

	return c.do(ctx, actionStartBreak, func(ctx context.Context) (timeclock.ActionResult, error) {
		result, err := c.api.StartBreak(ctx)
		if err != nil {
			return timeclock.ActionResult{}, fmt.Errorf("start break: %w", err)
		}
		c.refresh(ctx, timeclock.StateOnBreak)
		c.emitState()
		return result, nil
	})
}

func (c *Controller) EndBreak(ctx context.Context) (timeclock.ActionResult, error) {
	if err := c.checkLoaded(); err != nil {
		return timeclock.ActionResult{}, err
	}
	switch c.State() {
	case timeclock.StateOnBreak:
	case timeclock.StateClockedIn:
		return timeclock.ActionResult{}, timeclock.ErrNotOnBreak
	default:
		return timeclock.ActionResult{}, timeclock.ErrNoOpenSession
	}

	return c.do(ctx, actionEndBreak, func(ctx context.Context) (timeclock.ActionResult, error) {
		result, err := c.api.EndBreak(ctx)
		if err != nil {
			return timeclock.ActionResult{}, fmt.Errorf("end break: %w", err)
		}
		c.refresh(ctx, timeclock.StateClockedIn)
		c.emitState()
		return result, nil
	})
}

// History returns past sessions, newest first as ordered by the service.
func (c *Controller) History(ctx context.Context) ([]timeclock.AttendanceSession, error) {
	sessions, err := c.api.GetAttendanceHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("get attendance history: %w", err)
	}
	return sessions, nil
}

func (c *Controller) checkLoaded() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return timeclock.ErrNotLoaded
	}
	return nil
}

// do runs fn once per key for all concurrent callers. fn gets a context detached from
// the first caller's cancellation and bound to the controller's lifetime instead.
func (c *Controller) do(ctx context.Context, key string, fn func(context.Context) (timeclock.ActionResult, error)) (timeclock.ActionResult, error) {
	ch := c.inflight.DoChan(key, func() (any, error) {
		actionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(c.baseCtx, cancel)
		defer stop()
		return fn(actionCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("Joined in-flight action", "action", key)
		}
		if res.Err != nil {
			return timeclock.ActionResult{}, res.Err
		}
		return res.Val.(timeclock.ActionResult), nil
	case <-ctx.Done():
		c.logger.Debug("Stopped waiting for in-flight action", "action", key, "error", ctx.Err())
		return timeclock.ActionResult{}, ctx.Err()
	}
}

// refresh re-reads the session from the service. If that fails the expected state is
// applied so the UI does not stay on the pre-action state.
func (c *Controller) refresh(ctx context.Context, expected timeclock.State) {
	session, err := c.api.GetCurrentSession(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Warn("Failed to refresh attendance session", "error", err, "assumed_state", expected)
		c.state = expected
		return
	}
	c.session = session
	c.state = timeclock.StateOf(session)
}
