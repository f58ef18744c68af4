package restaurant

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/restaurant"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/validator"
	"github.com/cmlabs-hris/timeclock-go/internal/repository/memory"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const restaurantID = "0195a3b0-0000-7000-8000-000000000001"

func contextAs(t *testing.T, role string) context.Context {
	t.Helper()
	svc := jwt.NewJWTService("test-secret-key-for-jwt", "1h")
	tokenString, _, err := svc.GenerateAccessToken(jwt.Claims{
		UserID:       "user-1",
		EmployeeID:   "employee-1",
		RestaurantID: restaurantID,
		Role:         role,
	})
	require.NoError(t, err)
	token, err := svc.JWTAuth().Decode(tokenString)
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func newService() (*RestaurantServiceImpl, *memory.Store) {
	store := memory.NewStore()
	store.PutRestaurant(restaurant.Restaurant{ID: restaurantID, Name: "Warung Sate", Timezone: "UTC"})
	return NewRestaurantService(store.RestaurantRepository()), store
}

func TestGetMine(t *testing.T) {
	svc, _ := newService()

	resp, err := svc.GetMine(contextAs(t, jwt.RoleEmployee))
	require.NoError(t, err)
	assert.Equal(t, "Warung Sate", resp.Name)
	assert.Nil(t, resp.Latitude)

	_, err = svc.GetMine(context.Background())
	assert.Error(t, err)
}

func TestUpdateGeofence(t *testing.T) {
	valid := restaurant.UpdateGeofenceRequest{Latitude: -6.2, Longitude: 106.8, RadiusMeters: 75}

	t.Run("manager moves the fence", func(t *testing.T) {
		svc, store := newService()

		resp, err := svc.UpdateGeofence(contextAs(t, jwt.RoleManager), valid)
		require.NoError(t, err)
		require.NotNil(t, resp.RadiusMeters)
		assert.Equal(t, 75.0, *resp.RadiusMeters)

		stored, err := store.RestaurantRepository().GetByID(context.Background(), restaurantID)
		require.NoError(t, err)
		center, ok := stored.Center()
		require.True(t, ok)
		assert.Equal(t, -6.2, center.Latitude)
	})

	t.Run("owner is a manager too", func(t *testing.T) {
		svc, _ := newService()

		_, err := svc.UpdateGeofence(contextAs(t, jwt.RoleOwner), valid)
		assert.NoError(t, err)
	})

	t.Run("employee refused", func(t *testing.T) {
		svc, _ := newService()

		_, err := svc.UpdateGeofence(contextAs(t, jwt.RoleEmployee), valid)
		assert.ErrorIs(t, err, restaurant.ErrManagerRequired)
	})

	t.Run("invalid radius", func(t *testing.T) {
		svc, _ := newService()

		req := valid
		req.RadiusMeters = 0
		_, err := svc.UpdateGeofence(contextAs(t, jwt.RoleManager), req)
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Contains(t, verrs.ToMap(), "radius_meters")
	})
}
