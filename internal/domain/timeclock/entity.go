package timeclock

import (
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/pkg/geo"
)

// DefaultGeofenceRadius is used when the restaurant has no radius configured.
const DefaultGeofenceRadius = 100.0

// LocationSample is one fix reported by the device positioning subsystem.
type LocationSample struct {
	geo.Point
	Accuracy   *float64 // meters
	CapturedAt time.Time
}

// Geofence is the restaurant's permitted zone.
type Geofence struct {
	Center geo.Point
	Radius float64 // meters
	Name   string
}

// WithDefaults fills in the default radius when the server omitted it.
func (g Geofence) WithDefaults() Geofence {
	if g.Radius <= 0 {
		g.Radius = DefaultGeofenceRadius
	}
	return g
}

// ShiftWindow is the employee's scheduled working window.
type ShiftWindow struct {
	StartTime time.Time
	EndTime   time.Time
}

// Active reports whether now falls inside the window, both ends inclusive.
func (w ShiftWindow) Active(now time.Time) bool {
	return !now.Before(w.StartTime) && !now.After(w.EndTime)
}

// AttendanceSession is the client-side copy of one work period.
// The time-tracking service owns the record; this copy is refreshed after each mutation.
type AttendanceSession struct {
	ID               string
	ClockInTime      time.Time
	ClockOutTime     *time.Time
	IsBreak          bool
	BreakStart       *time.Time
	BreakEnd         *time.Time
	VerifiedLocation bool
}

// Open reports whether the session has not been clocked out.
func (s AttendanceSession) Open() bool {
	return s.ClockOutTime == nil
}

// VerificationResult is the outcome of a single geofence check.
type VerificationResult struct {
	WithinRange bool
	Message     string
	Distance    *float64 // meters, when known
}

// ActionResult is the acknowledgement returned by mutating operations.
type ActionResult struct {
	Message string
	At      *time.Time
}

// State is the attendance state machine position.
type State string

const (
	StateNoSession  State = "no_session"
	StateClockedIn  State = "clocked_in"
	StateOnBreak    State = "on_break"
	StateClockedOut State = "clocked_out"
)

// StateOf derives the controller state from the latest server session.
func StateOf(session *AttendanceSession) State {
	switch {
	case session == nil:
		return StateNoSession
	case !session.Open():
		return StateClockedOut
	case session.IsBreak:
		return StateOnBreak
	default:
		return StateClockedIn
	}
}

// Monitored reports whether continuous location monitoring runs in this state.
func (s State) Monitored() bool {
	return s == StateClockedIn || s == StateOnBreak
}
