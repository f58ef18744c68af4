package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/timeclock-go/internal/config"
	appHTTP "github.com/cmlabs-hris/timeclock-go/internal/handler/http"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/cron"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/database"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timeclock-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/timeclock-go/internal/service/attendance"
	restaurantService "github.com/cmlabs-hris/timeclock-go/internal/service/restaurant"
	"github.com/go-chi/httplog/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logLevel := config.SlogLevel(cfg.App.LogLevel)
	logFormat := httplog.SchemaECS.Concise(cfg.App.Env == "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       logLevel,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "restaurant-timeclock"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		logger.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgresql.EnsureSchema(ctx, db); err != nil {
			logger.Error("Error applying schema", "error", err)
			os.Exit(1)
		}
		logger.Info("Database schema applied")
	}

	sessionRepo := postgresql.NewSessionRepository(db)
	restaurantRepo := postgresql.NewRestaurantRepository(db)
	shiftRepo := postgresql.NewShiftRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	hub := sse.NewHub()

	attendanceSvc := attendanceService.NewAttendanceService(
		postgresql.Transactor(db),
		sessionRepo,
		restaurantRepo,
		shiftRepo,
		hub,
		attendanceService.Options{
			DefaultRadiusMeters: cfg.Attendance.DefaultRadiusMeters,
			StaleSessionAfter:   cfg.Attendance.StaleSessionAfter,
		},
	)
	restaurantSvc := restaurantService.NewRestaurantService(restaurantRepo)

	scheduler := cron.NewScheduler(logger)
	cron.NewAttendanceJobs(attendanceSvc, cfg.Attendance.CronInterval).RegisterJobs(scheduler)
	scheduler.Start()

	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc, hub)
	restaurantHandler := appHTTP.NewRestaurantHandler(restaurantSvc)

	router := appHTTP.NewRouter(
		logger,
		appHTTP.RouterOptions{
			AllowedOrigins: cfg.App.AllowedOrigins,
			LogLevel:       logLevel,
		},
		JWTService,
		attendanceHandler,
		restaurantHandler,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	scheduler.Stop()
}
