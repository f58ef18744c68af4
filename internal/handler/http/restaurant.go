package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/restaurant"
	"github.com/cmlabs-hris/timeclock-go/internal/handler/http/response"
)

type RestaurantHandler interface {
	GetMine(w http.ResponseWriter, r *http.Request)
	UpdateGeofence(w http.ResponseWriter, r *http.Request)
}

type restaurantHandlerImpl struct {
	restaurantService restaurant.RestaurantService
}

func NewRestaurantHandler(restaurantService restaurant.RestaurantService) RestaurantHandler {
	return &restaurantHandlerImpl{restaurantService: restaurantService}
}

// GetMine implements RestaurantHandler.
func (h *restaurantHandlerImpl) GetMine(w http.ResponseWriter, r *http.Request) {
	result, err := h.restaurantService.GetMine(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// UpdateGeofence implements RestaurantHandler.
func (h *restaurantHandlerImpl) UpdateGeofence(w http.ResponseWriter, r *http.Request) {
	var req restaurant.UpdateGeofenceRequest
	if err := decodeJSON(r, &req); err != nil {
		slog.Debug("Failed to decode geofence request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.restaurantService.UpdateGeofence(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Geofence updated", result)
}
