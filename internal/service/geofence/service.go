package geofence

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/timeclock"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/geo"
)

// Verifier is the authoritative location check of the time-tracking service.
type Verifier interface {
	VerifyLocation(ctx context.Context, latitude, longitude float64) (timeclock.VerificationResult, error)
}

// Evaluation holds both tiers of a geofence check. Remote is nil when RemoteErr is set.
type Evaluation struct {
	Local     timeclock.VerificationResult
	Remote    *timeclock.VerificationResult
	RemoteErr error
}

// Authoritative returns the remote result, or the remote error. The local result is
// never substituted.
func (e Evaluation) Authoritative() (timeclock.VerificationResult, error) {
	if e.RemoteErr != nil {
		return timeclock.VerificationResult{}, e.RemoteErr
	}
	if e.Remote == nil {
		return timeclock.VerificationResult{}, timeclock.ErrServiceUnavailable
	}
	return *e.Remote, nil
}

// Display returns the result to show the employee: remote when available, local otherwise.
func (e Evaluation) Display() timeclock.VerificationResult {
	if e.Remote != nil {
		return *e.Remote
	}
	return e.Local
}

type Evaluator struct {
	verifier Verifier
}

func NewEvaluator(verifier Verifier) *Evaluator {
	return &Evaluator{verifier: verifier}
}

// Local classifies the sample against fence on the device. Advisory only.
func (e *Evaluator) Local(sample timeclock.LocationSample, fence timeclock.Geofence) timeclock.VerificationResult {
	distance := geo.Distance(sample.Point, fence.Center)
	result := timeclock.VerificationResult{
		WithinRange: distance <= fence.Radius,
		Distance:    &distance,
	}

	name := fence.Name
	if name == "" {
		name = "the restaurant"
	}
	if result.WithinRange {
		result.Message = fmt.Sprintf("You are within %s area (%.0f m away)", name, distance)
	} else {
		result.Message = fmt.Sprintf("You are %.0f m away from %s; the allowed radius is %.0f m", distance, name, fence.Radius)
	}
	return result
}

// Remote asks the time-tracking service. Failures come back as errors; callers must
// not treat them as in-range or out-of-range.
func (e *Evaluator) Remote(ctx context.Context, sample timeclock.LocationSample) (timeclock.VerificationResult, error) {
	result, err := e.verifier.VerifyLocation(ctx, sample.Latitude, sample.Longitude)
	if err != nil {
		return timeclock.VerificationResult{}, fmt.Errorf("verify location: %w", err)
	}
	return result, nil
}

// Evaluate runs the local check and then the remote one.
func (e *Evaluator) Evaluate(ctx context.Context, sample timeclock.LocationSample, fence timeclock.Geofence) Evaluation {
	evaluation := Evaluation{Local: e.Local(sample, fence)}

	remote, err := e.Remote(ctx, sample)
	if err != nil {
		evaluation.RemoteErr = err
		return evaluation
	}
	evaluation.Remote = &remote
	return evaluation
}
