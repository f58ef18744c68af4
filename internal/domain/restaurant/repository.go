package restaurant

import "context"

type RestaurantRepository interface {
	GetByID(ctx context.Context, id string) (Restaurant, error)
	UpdateGeofence(ctx context.Context, req UpdateGeofenceRequest) error
}
