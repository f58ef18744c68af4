package attendance

import (
	"context"
)

// AttendanceService defines business logic for the employee time clock.
// Identity (employee and restaurant) comes from the JWT claims in ctx.
type AttendanceService interface {
	GetGeofence(ctx context.Context) (GeofenceResponse, error)

	// GetShiftWindow returns nil when no shift is scheduled today.
	GetShiftWindow(ctx context.Context) (*ShiftWindowResponse, error)

	VerifyLocation(ctx context.Context, req VerifyLocationRequest) (VerifyLocationResponse, error)

	ClockIn(ctx context.Context, req ClockInRequest) (ClockResponse, error)

	ClockOut(ctx context.Context, req ClockOutRequest) (ClockResponse, error)

	StartBreak(ctx context.Context) (BreakResponse, error)

	EndBreak(ctx context.Context) (BreakResponse, error)

	// GetCurrentSession returns the open session, or today's latest session, or nil.
	GetCurrentSession(ctx context.Context) (*SessionResponse, error)

	GetHistory(ctx context.Context, filter HistoryFilter) (ListSessionResponse, error)

	// CloseStaleSessions force-closes sessions left open too long. Used by cron.
	CloseStaleSessions(ctx context.Context) (int, error)
}
