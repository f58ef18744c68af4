package restaurant

import "context"

// RestaurantService manages the caller's restaurant. Identity comes from JWT claims.
type RestaurantService interface {
	GetMine(ctx context.Context) (RestaurantResponse, error)
	UpdateGeofence(ctx context.Context, req UpdateGeofenceRequest) (RestaurantResponse, error)
}
