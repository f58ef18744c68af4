package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/restaurant"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type restaurantRepository struct {
	db *database.DB
}

func NewRestaurantRepository(db *database.DB) restaurant.RestaurantRepository {
	return &restaurantRepository{db: db}
}

// GetByID implements restaurant.RestaurantRepository.
func (r *restaurantRepository) GetByID(ctx context.Context, id string) (restaurant.Restaurant, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, latitude, longitude, radius_meters, timezone, created_at, updated_at
		FROM restaurants
		WHERE id = $1
	`

	var rest restaurant.Restaurant
	err := q.QueryRow(ctx, query, id).Scan(
		&rest.ID, &rest.Name, &rest.Latitude, &rest.Longitude, &rest.RadiusMeters,
		&rest.Timezone, &rest.CreatedAt, &rest.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return restaurant.Restaurant{}, restaurant.ErrRestaurantNotFound
		}
		return restaurant.Restaurant{}, fmt.Errorf("failed to get restaurant: %w", err)
	}

	return rest, nil
}

// UpdateGeofence implements restaurant.RestaurantRepository.
func (r *restaurantRepository) UpdateGeofence(ctx context.Context, req restaurant.UpdateGeofenceRequest) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE restaurants
		SET latitude = $2, longitude = $3, radius_meters = $4, updated_at = now()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, req.RestaurantID, req.Latitude, req.Longitude, req.RadiusMeters)
	if err != nil {
		return fmt.Errorf("failed to update restaurant geofence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return restaurant.ErrRestaurantNotFound
	}

	return nil
}
