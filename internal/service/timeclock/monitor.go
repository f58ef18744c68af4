package timeclock

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/timeclock"
)

// syncMonitoring starts or stops the location watch to match the current state.
func (c *Controller) syncMonitoring() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state.Monitored() && c.monitorCancel == nil:
		return c.startMonitoringLocked()
	case !c.state.Monitored() && c.monitorCancel != nil:
		c.stopMonitoringLocked()
	}
	return nil
}

func (c *Controller) startMonitoringLocked() error {
	ctx, cancel := context.WithCancel(c.baseCtx)
	updates, err := c.positioner.WatchPosition(ctx, timeclock.PositionOptions{HighAccuracy: true})
	if err != nil {
		cancel()
		return fmt.Errorf("watch position: %w", err)
	}

	done := make(chan struct{})
	c.monitorCancel = cancel
	c.monitorDone = done
	c.violations = 0

	go c.monitor(ctx, updates, done)

	c.logger.Info("Location monitoring started", "state", c.state)
	return nil
}

// stopMonitoring cancels the watch without waiting, so it is safe to call from the
// monitor goroutine itself. The returned channel closes once the monitor has exited.
func (c *Controller) stopMonitoring() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopMonitoringLocked()
}

func (c *Controller) stopMonitoringLocked() <-chan struct{} {
	if c.monitorCancel == nil {
		return nil
	}
	done := c.monitorDone
	c.monitorCancel()
	c.monitorCancel = nil
	c.monitorDone = nil
	c.violations = 0

	c.logger.Info("Location monitoring stopped")
	return done
}

func (c *Controller) monitor(ctx context.Context, updates <-chan timeclock.PositionUpdate, done chan struct{}) {
	defer close(done)
	defer func() {
		// The feed ended on its own; let a later state change start a new watch.
		c.mu.Lock()
		if c.monitorDone == done {
			c.monitorCancel()
			c.monitorCancel = nil
			c.monitorDone = nil
		}
		c.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				c.logger.Warn("Location watch closed")
				return
			}
			if update.Err != nil {
				c.logger.Warn("Location watch error", "error", update.Err)
				c.emit(Event{Kind: EventMonitorError, State: c.State(), Err: update.Err})
				continue
			}
			c.processSample(ctx, update.Sample)
		}
	}
}

// processSample runs one monitoring check. Only remote out-of-range results count
// toward the violation threshold; a failed remote check leaves the counter alone.
func (c *Controller) processSample(ctx context.Context, sample timeclock.LocationSample) {
	c.mu.Lock()
	if !c.state.Monitored() {
		c.mu.Unlock()
		return
	}
	c.lastSample = &sample
	local := c.evaluator.Local(sample, c.fence)
	c.lastLocal = &local
	c.mu.Unlock()

	remote, err := c.evaluator.Remote(ctx, sample)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.mu.Lock()
		c.lastRemote = nil
		c.mu.Unlock()
		c.logger.Warn("Monitoring location check failed",
			"error", err,
			"latitude", sample.Latitude,
			"longitude", sample.Longitude,
		)
		c.emit(Event{Kind: EventMonitorError, State: c.State(), Result: &local, Err: err})
		return
	}

	c.mu.Lock()
	if !c.state.Monitored() {
		c.mu.Unlock()
		return
	}
	c.lastRemote = &remote
	if remote.WithinRange {
		c.violations = 0
	} else {
		c.violations++
	}
	violations := c.violations
	trigger := violations >= c.cfg.ViolationThreshold
	if trigger {
		c.violations = 0
	}
	state := c.state
	c.mu.Unlock()

	c.emit(Event{Kind: EventLocationChecked, State: state, Result: &remote, Violations: violations})

	if !remote.WithinRange {
		c.logger.Info("Outside geofence during session",
			"consecutive", violations,
			"threshold", c.cfg.ViolationThreshold,
			"distance", remote.Distance,
		)
	}

	if trigger {
		c.autoClockOut(sample, remote)
	}
}

func (c *Controller) autoClockOut(sample timeclock.LocationSample, remote timeclock.VerificationResult) {
	c.logger.Warn("Automatic clock-out: left the restaurant geofence", "message", remote.Message)

	// Clocking out stops monitoring and cancels the monitor context, so run on baseCtx.
	result, err := c.clockOut(c.baseCtx, &sample, true)
	if err != nil {
		c.logger.Error("Automatic clock-out failed", "error", err)
		c.emit(Event{Kind: EventMonitorError, State: c.State(), Result: &remote, Err: err})
		return
	}

	snap := c.Snapshot()
	c.emit(Event{
		Kind:    EventAutoClockOut,
		State:   snap.State,
		Session: snap.Session,
		Result:  &timeclock.VerificationResult{WithinRange: false, Message: result.Message, Distance: remote.Distance},
	})
}
