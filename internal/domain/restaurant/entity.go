package restaurant

import (
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/pkg/geo"
)

type Restaurant struct {
	ID           string
	Name         string
	Latitude     *float64
	Longitude    *float64
	RadiusMeters *float64
	Timezone     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Center returns the geofence center, or false when no location is registered.
func (r Restaurant) Center() (geo.Point, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Latitude: *r.Latitude, Longitude: *r.Longitude}, true
}

// Location loads the restaurant timezone, falling back to UTC.
func (r Restaurant) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil || r.Timezone == "" {
		return time.UTC
	}
	return loc
}
