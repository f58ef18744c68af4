package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/attendance"
	"github.com/cmlabs-hris/timeclock-go/internal/domain/restaurant"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Identity
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, "Invalid or missing access token")
	case errors.Is(err, jwt.ErrMissingClaims), errors.Is(err, attendance.ErrMissingIdentity):
		Forbidden(w, "Access token is not bound to an employee and restaurant")

	// Attendance domain errors. Geofence and shift messages carry the details.
	case errors.Is(err, attendance.ErrOutsideGeofence):
		ErrorWithCode(w, http.StatusUnprocessableEntity, attendance.CodeOutsideGeofence, detail(err, "You are outside the restaurant area"))
	case errors.Is(err, attendance.ErrOutsideShift):
		ErrorWithCode(w, http.StatusUnprocessableEntity, attendance.CodeOutsideShift, detail(err, "You are outside your scheduled shift"))
	case errors.Is(err, attendance.ErrSessionAlreadyOpen):
		ErrorWithCode(w, http.StatusConflict, attendance.CodeSessionAlreadyOpen, "You already have an open attendance session")
	case errors.Is(err, attendance.ErrNoOpenSession):
		ErrorWithCode(w, http.StatusConflict, attendance.CodeNoOpenSession, "You have not clocked in")
	case errors.Is(err, attendance.ErrAlreadyOnBreak):
		ErrorWithCode(w, http.StatusConflict, attendance.CodeAlreadyOnBreak, "You are already on a break")
	case errors.Is(err, attendance.ErrNotOnBreak):
		ErrorWithCode(w, http.StatusConflict, attendance.CodeNotOnBreak, "You are not on a break")
	case errors.Is(err, attendance.ErrSessionNotFound):
		NotFound(w, "Attendance session not found")

	// Restaurant domain errors
	case errors.Is(err, restaurant.ErrRestaurantNotFound):
		NotFound(w, "Restaurant not found")
	case errors.Is(err, restaurant.ErrGeofenceNotConfigured):
		ErrorWithCode(w, http.StatusConflict, attendance.CodeGeofenceNotConfigured, "The restaurant location has not been configured")
	case errors.Is(err, restaurant.ErrManagerRequired):
		Forbidden(w, "Manager access required")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

func detail(err error, fallback string) string {
	var rejection *attendance.RejectionError
	if errors.As(err, &rejection) && rejection.Detail != "" {
		return rejection.Detail
	}
	return fallback
}
