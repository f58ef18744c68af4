package http

import (
	"log/slog"

	"github.com/cmlabs-hris/timeclock-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	AllowedOrigins []string
	LogLevel       slog.Level
}

func NewRouter(logger *slog.Logger, opts RouterOptions, JWTService jwt.Service, attendanceHandler AttendanceHandler, restaurantHandler RestaurantHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		ja := JWTService.JWTAuth()

		r.Route("/attendance", func(r chi.Router) {
			// EventSource cannot set headers, so the stream also accepts ?jwt=
			r.With(
				jwtauth.Verify(ja, jwtauth.TokenFromHeader, jwtauth.TokenFromQuery),
				middleware.AuthRequired,
			).Get("/events", attendanceHandler.Events)

			// Requires authentication
			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(ja))
				r.Use(middleware.AuthRequired)

				r.Get("/geofence", attendanceHandler.GetGeofence)
				r.Get("/shift", attendanceHandler.GetShift)
				r.Get("/current", attendanceHandler.GetCurrent)
				r.Get("/history", attendanceHandler.GetHistory)
				r.Post("/verify-location", attendanceHandler.VerifyLocation)
				r.Post("/clock-in", attendanceHandler.ClockIn)
				r.Post("/clock-out", attendanceHandler.ClockOut)
				r.Route("/break", func(r chi.Router) {
					r.Post("/start", attendanceHandler.StartBreak)
					r.Post("/end", attendanceHandler.EndBreak)
				})
			})
		})

		r.Route("/restaurants/my", func(r chi.Router) {
			r.Use(jwtauth.Verifier(ja))
			r.Use(middleware.AuthRequired)

			r.Get("/", restaurantHandler.GetMine)

			// Manager only
			r.With(middleware.RequireManager).Put("/geofence", restaurantHandler.UpdateGeofence)
		})
	})
	return r
}
