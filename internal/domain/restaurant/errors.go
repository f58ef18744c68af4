package restaurant

import "errors"

var (
	ErrRestaurantNotFound    = errors.New("restaurant not found")
	ErrGeofenceNotConfigured = errors.New("restaurant geofence is not configured")
	ErrManagerRequired       = errors.New("manager or owner role required")
)
