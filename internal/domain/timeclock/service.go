package timeclock

import (
	"context"
	"time"
)

// TimeTrackingService is the remote authority for attendance state.
type TimeTrackingService interface {
	// GetRestaurantGeofence returns the employee's restaurant zone.
	GetRestaurantGeofence(ctx context.Context) (Geofence, error)

	// GetShiftWindow returns nil when the employee has no shift data.
	GetShiftWindow(ctx context.Context) (*ShiftWindow, error)

	VerifyLocation(ctx context.Context, latitude, longitude float64) (VerificationResult, error)

	ClockIn(ctx context.Context, sample LocationSample) (ActionResult, error)

	// ClockOut closes the open session. sample is the best-effort exit location and may
	// be nil. auto marks a forced geofence clock-out.
	ClockOut(ctx context.Context, sample *LocationSample, auto bool) (ActionResult, error)

	StartBreak(ctx context.Context) (ActionResult, error)
	EndBreak(ctx context.Context) (ActionResult, error)

	// GetCurrentSession returns nil when there is no session today.
	GetCurrentSession(ctx context.Context) (*AttendanceSession, error)

	GetAttendanceHistory(ctx context.Context) ([]AttendanceSession, error)
}

// PositionOptions mirrors the device positioning knobs.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// PositionUpdate is one item of a position watch: a sample or a classified error.
type PositionUpdate struct {
	Sample LocationSample
	Err    error
}

// Positioner is the device positioning API.
type Positioner interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (LocationSample, error)

	// WatchPosition streams updates until ctx is cancelled, then closes the channel.
	WatchPosition(ctx context.Context, opts PositionOptions) (<-chan PositionUpdate, error)
}
