package attendance

import "errors"

// Attendance domain errors
var (
	// Clock-in errors
	ErrOutsideGeofence    = errors.New("you are outside the restaurant geofence")
	ErrOutsideShift       = errors.New("you are outside your scheduled shift")
	ErrSessionAlreadyOpen = errors.New("you already have an open attendance session")

	// Clock-out and break errors
	ErrNoOpenSession  = errors.New("you have not clocked in")
	ErrAlreadyOnBreak = errors.New("you are already on a break")
	ErrNotOnBreak     = errors.New("you are not on a break")

	// General errors
	ErrSessionNotFound = errors.New("attendance session not found")
	ErrMissingIdentity = errors.New("employee_id or restaurant_id claim is missing")
)

// Error codes carried in API error responses. The time-clock agent maps them back to
// its own error kinds.
const (
	CodeOutsideGeofence       = "OUTSIDE_GEOFENCE"
	CodeOutsideShift          = "OUTSIDE_SHIFT"
	CodeSessionAlreadyOpen    = "SESSION_ALREADY_OPEN"
	CodeNoOpenSession         = "NO_OPEN_SESSION"
	CodeAlreadyOnBreak        = "ALREADY_ON_BREAK"
	CodeNotOnBreak            = "NOT_ON_BREAK"
	CodeGeofenceNotConfigured = "GEOFENCE_NOT_CONFIGURED"
)

// RejectionError explains why an attendance action was refused, in words for the employee.
type RejectionError struct {
	Kind   error
	Detail string
}

func (e *RejectionError) Error() string {
	return e.Kind.Error() + ": " + e.Detail
}

func (e *RejectionError) Unwrap() error {
	return e.Kind
}
