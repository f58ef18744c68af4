package timeclock

import (
	"context"
	"errors"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/timeclock"
)

// locate asks for a high-accuracy fix and falls back once to a low-accuracy request that
// tolerates a cached fix. Permission denial is not retried.
func (c *Controller) locate(ctx context.Context) (timeclock.LocationSample, error) {
	sample, err := c.positioner.CurrentPosition(ctx, timeclock.PositionOptions{
		HighAccuracy: true,
		Timeout:      c.cfg.HighAccuracyTimeout,
	})
	if err == nil {
		c.rememberSample(sample)
		return sample, nil
	}
	if errors.Is(err, timeclock.ErrPermissionDenied) || ctx.Err() != nil {
		return timeclock.LocationSample{}, err
	}

	c.logger.Info("High accuracy position failed, retrying with low accuracy", "error", err)

	sample, err = c.positioner.CurrentPosition(ctx, timeclock.PositionOptions{
		HighAccuracy: false,
		Timeout:      c.cfg.LowAccuracyTimeout,
		MaximumAge:   c.cfg.LowAccuracyMaxAge,
	})
	if err != nil {
		return timeclock.LocationSample{}, err
	}
	c.rememberSample(sample)
	return sample, nil
}

func (c *Controller) rememberSample(sample timeclock.LocationSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSample = &sample
}
