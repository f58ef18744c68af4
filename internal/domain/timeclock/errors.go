package timeclock

import (
	"errors"
	"fmt"
)

// Time clock errors
var (
	// Positioning errors
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrPositionTimeout     = errors.New("position request timed out")

	// Verification and service errors
	ErrGeofenceViolation  = errors.New("outside the restaurant geofence")
	ErrOutsideShift       = errors.New("outside the scheduled shift window")
	ErrServiceUnavailable = errors.New("time tracking service unavailable")
	ErrInvariantViolation = errors.New("attendance session state rejected by service")

	// Controller errors
	ErrNotLoaded      = errors.New("time clock not loaded")
	ErrNoOpenSession  = errors.New("no open attendance session")
	ErrNotOnBreak     = errors.New("not on break")
	ErrAlreadyOnBreak = errors.New("already on break")
)

// ServiceError carries the server's code and message alongside a sentinel kind.
type ServiceError struct {
	Kind       error
	Code       string
	Message    string
	StatusCode int
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Kind
}

// UserMessage renders an error as text suitable for the employee.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var svcErr *ServiceError
	hasServerMessage := errors.As(err, &svcErr) && svcErr.Message != ""

	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Location access is blocked. Allow location permission for the time clock and try again."
	case errors.Is(err, ErrPositionTimeout):
		return "Getting your location took too long. Move to an open area and press Retry."
	case errors.Is(err, ErrPositionUnavailable):
		return "Your location is currently unavailable. Check that location services are on and press Retry."
	case errors.Is(err, ErrGeofenceViolation):
		if hasServerMessage {
			return svcErr.Message
		}
		return "You are outside the restaurant area. Move closer to the restaurant to clock in or out."
	case errors.Is(err, ErrOutsideShift):
		if hasServerMessage {
			return svcErr.Message
		}
		return "You can only clock in during your scheduled shift."
	case errors.Is(err, ErrNoOpenSession):
		return "You are not clocked in."
	case errors.Is(err, ErrAlreadyOnBreak):
		return "You are already on a break."
	case errors.Is(err, ErrNotOnBreak):
		return "You are not on a break."
	case errors.Is(err, ErrInvariantViolation):
		if hasServerMessage {
			return svcErr.Message
		}
		return "Your attendance has changed elsewhere. Refresh and try again."
	case errors.Is(err, ErrNotLoaded):
		return "The time clock is still loading."
	default:
		return "The time tracking service is unavailable. Please try again."
	}
}
