package attendance

import (
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/validator"
)

// ========================================
// LOCATION DTOs
// ========================================

type LocationRequest struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

func (r *LocationRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidLatitude(r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if !validator.IsValidLongitude(r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if r.Accuracy != nil && *r.Accuracy < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "accuracy",
			Message: "accuracy must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type VerifyLocationRequest = LocationRequest

type ClockInRequest = LocationRequest

// ClockOutRequest carries a best-effort exit location; coordinates may be omitted.
type ClockOutRequest struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	// Auto marks a clock-out forced by sustained geofence violation.
	Auto bool `json:"auto"`
}

func (r *ClockOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if (r.Latitude == nil) != (r.Longitude == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude and longitude must be provided together",
		})
	}

	if r.Latitude != nil && r.Longitude != nil {
		loc := LocationRequest{Latitude: *r.Latitude, Longitude: *r.Longitude, Accuracy: r.Accuracy}
		if err := loc.Validate(); err != nil {
			if locErrs, ok := err.(validator.ValidationErrors); ok {
				errs = append(errs, locErrs...)
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type VerifyLocationResponse struct {
	WithinRange    bool    `json:"within_range"`
	Message        string  `json:"message,omitempty"`
	DistanceMeters float64 `json:"distance_meters"`
	RadiusMeters   float64 `json:"radius_meters"`
}

type GeofenceResponse struct {
	RestaurantID   string   `json:"restaurant_id"`
	RestaurantName string   `json:"restaurant_name"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Radius         *float64 `json:"radius,omitempty"`
}

type ShiftWindowResponse struct {
	StartTime string `json:"start_time"` // RFC3339
	EndTime   string `json:"end_time"`   // RFC3339
}

// ========================================
// SESSION DTOs
// ========================================

type ClockResponse struct {
	Message      string           `json:"message"`
	ClockInTime  *string          `json:"clock_in_time,omitempty"`
	ClockOutTime *string          `json:"clock_out_time,omitempty"`
	Session      *SessionResponse `json:"session,omitempty"`
}

type BreakResponse struct {
	Message    string  `json:"message"`
	BreakStart *string `json:"break_start,omitempty"`
	BreakEnd   *string `json:"break_end,omitempty"`
}

type SessionResponse struct {
	ID                string   `json:"id"`
	EmployeeID        string   `json:"employee_id"`
	RestaurantID      string   `json:"restaurant_id"`
	Date              string   `json:"date"`
	ClockInTime       string   `json:"clock_in_time"`
	ClockOutTime      *string  `json:"clock_out_time"`
	ClockInLatitude   float64  `json:"clock_in_latitude"`
	ClockInLongitude  float64  `json:"clock_in_longitude"`
	ClockOutLatitude  *float64 `json:"clock_out_latitude,omitempty"`
	ClockOutLongitude *float64 `json:"clock_out_longitude,omitempty"`
	ClockOutReason    *string  `json:"clock_out_reason,omitempty"`
	IsBreak           bool     `json:"is_break"`
	BreakStart        *string  `json:"break_start"`
	BreakEnd          *string  `json:"break_end"`
	VerifiedLocation  bool     `json:"verified_location"`
	WorkedMinutes     *int     `json:"worked_minutes,omitempty"`
}

type HistoryFilter struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *HistoryFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1 // Default page
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20 // Default limit
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ListSessionResponse struct {
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
	Showing    string            `json:"showing"`
	Sessions   []SessionResponse `json:"sessions"`
}
