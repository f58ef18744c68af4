package restaurant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/restaurant"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/jwt"
)

type RestaurantServiceImpl struct {
	restaurant.RestaurantRepository
}

func NewRestaurantService(repo restaurant.RestaurantRepository) *RestaurantServiceImpl {
	return &RestaurantServiceImpl{RestaurantRepository: repo}
}

// GetMine implements restaurant.RestaurantService.
func (s *RestaurantServiceImpl) GetMine(ctx context.Context) (restaurant.RestaurantResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return restaurant.RestaurantResponse{}, err
	}

	rest, err := s.RestaurantRepository.GetByID(ctx, claims.RestaurantID)
	if err != nil {
		return restaurant.RestaurantResponse{}, err
	}
	return toResponse(rest), nil
}

// UpdateGeofence implements restaurant.RestaurantService.
func (s *RestaurantServiceImpl) UpdateGeofence(ctx context.Context, req restaurant.UpdateGeofenceRequest) (restaurant.RestaurantResponse, error) {
	if err := req.Validate(); err != nil {
		return restaurant.RestaurantResponse{}, err
	}

	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return restaurant.RestaurantResponse{}, err
	}
	if !claims.IsManager() {
		return restaurant.RestaurantResponse{}, restaurant.ErrManagerRequired
	}

	// The target restaurant is always the caller's own.
	req.RestaurantID = claims.RestaurantID
	if err := s.RestaurantRepository.UpdateGeofence(ctx, req); err != nil {
		return restaurant.RestaurantResponse{}, fmt.Errorf("update geofence: %w", err)
	}

	slog.Info("Restaurant geofence updated",
		"restaurant_id", req.RestaurantID,
		"updated_by", claims.UserID,
		"radius_meters", req.RadiusMeters,
	)

	rest, err := s.RestaurantRepository.GetByID(ctx, req.RestaurantID)
	if err != nil {
		return restaurant.RestaurantResponse{}, err
	}
	return toResponse(rest), nil
}

func toResponse(r restaurant.Restaurant) restaurant.RestaurantResponse {
	return restaurant.RestaurantResponse{
		ID:           r.ID,
		Name:         r.Name,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		RadiusMeters: r.RadiusMeters,
		Timezone:     r.Timezone,
		UpdatedAt:    r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
