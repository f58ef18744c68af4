package restaurant

import (
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/validator"
)

// UpdateGeofenceRequest lets a manager move or resize the restaurant geofence.
type UpdateGeofenceRequest struct {
	RestaurantID string  `json:"-"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

func (r *UpdateGeofenceRequest) Validate() error {
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

	if r.RadiusMeters <= 0 || r.RadiusMeters > 5000 {
		errs = append(errs, validator.ValidationError{
			Field:   "radius_meters",
			Message: "radius_meters must be between 1 and 5000",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type RestaurantResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	RadiusMeters *float64 `json:"radius_meters"`
	Timezone     string   `json:"timezone"`
	UpdatedAt    string   `json:"updated_at"`
}
