package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/timeclock-go/internal/domain/restaurant"
	"github.com/cmlabs-hris/timeclock-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/jwt"
)

// RequireManager requires manager or owner role
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := jwt.ClaimsFromContext(r.Context())
		if err != nil {
			response.HandleError(w, err)
			return
		}

		if !claims.IsManager() {
			response.HandleError(w, restaurant.ErrManagerRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
