package timeclock

import (
	"context"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-go/internal/service/geofence"
)

// Eligibility is the advisory clock-in gate shown to the employee. The remote check is
// re-run when ClockIn is actually called.
type Eligibility struct {
	Eligible    bool
	InRange     bool
	ShiftActive bool
	Loading     bool
	Verifying   bool
	Message     string
}

func (c *Controller) Eligibility() Eligibility {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := Eligibility{
		ShiftActive: c.shift == nil || c.shift.Active(c.now()),
		Loading:     c.loading || !c.loaded,
		Verifying:   c.verifying,
	}

	switch {
	case c.lastRemote != nil:
		e.InRange = c.lastRemote.WithinRange
		e.Message = c.lastRemote.Message
	case c.lastLocal != nil:
		e.InRange = c.lastLocal.WithinRange
		e.Message = c.lastLocal.Message
	}

	e.Eligible = e.InRange && e.ShiftActive && !e.Loading && !e.Verifying
	return e
}

// CheckLocation takes a fresh fix and evaluates it locally and remotely. A remote
// failure is reported in the evaluation, not as an error.
func (c *Controller) CheckLocation(ctx context.Context) (geofence.Evaluation, error) {
	c.mu.Lock()
	if !c.loaded {
		c.mu.Unlock()
		return geofence.Evaluation{}, timeclock.ErrNotLoaded
	}
	fence := c.fence
	c.verifying = true
	c.mu.Unlock()

	evaluation, _, err := c.evaluateHere(ctx, fence)

	c.mu.Lock()
	c.verifying = false
	c.mu.Unlock()

	if err != nil {
		return geofence.Evaluation{}, err
	}

	display := evaluation.Display()
	c.emit(Event{Kind: EventLocationChecked, State: c.State(), Result: &display, Err: evaluation.RemoteErr})
	return evaluation, nil
}

// evaluateHere locates the device and records both results.
func (c *Controller) evaluateHere(ctx context.Context, fence timeclock.Geofence) (geofence.Evaluation, timeclock.LocationSample, error) {
	sample, err := c.locate(ctx)
	if err != nil {
		return geofence.Evaluation{}, timeclock.LocationSample{}, err
	}

	c.mu.Lock()
	local := c.evaluator.Local(sample, fence)
	c.lastLocal = &local
	c.mu.Unlock()

	evaluation := geofence.Evaluation{Local: local}
	remote, err := c.evaluator.Remote(ctx, sample)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		// A remote result for an older sample must not outrank this local one.
		c.lastRemote = nil
		evaluation.RemoteErr = err
		return evaluation, sample, nil
	}
	evaluation.Remote = &remote
	c.lastRemote = &remote
	return evaluation, sample, nil
}
