package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Attendance AttendanceConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	// AutoMigrate applies the embedded schema at startup.
	AutoMigrate bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// AttendanceConfig holds server-side time clock policy
type AttendanceConfig struct {
	DefaultRadiusMeters float64
	StaleSessionAfter   time.Duration
	CronInterval        time.Duration
}

// AgentConfig configures the employee time-clock agent.
type AgentConfig struct {
	APIBaseURL     string
	AccessToken    string
	PositionSource string
	LogLevel       string
	RequestTimeout time.Duration

	HighAccuracyTimeout time.Duration
	LowAccuracyTimeout  time.Duration
	LowAccuracyMaxAge   time.Duration
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}
}

func Load() (*Config, error) {
	loadDotEnv()

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	autoMigrate, err := strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "restaurant-timeclock"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),

		AutoMigrate: autoMigrate,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}
	if len(config.App.AllowedOrigins) == 0 {
		config.App.AllowedOrigins = []string{"http://localhost:3000"}
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "12h"),
	}

	// Attendance policy
	radius, err := strconv.ParseFloat(getEnv("ATTENDANCE_DEFAULT_RADIUS_METERS", "100"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_DEFAULT_RADIUS_METERS: %w", err)
	}
	staleAfter, err := time.ParseDuration(getEnv("ATTENDANCE_STALE_AFTER", "16h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_STALE_AFTER: %w", err)
	}
	cronInterval, err := time.ParseDuration(getEnv("ATTENDANCE_CRON_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_CRON_INTERVAL: %w", err)
	}

	config.Attendance = AttendanceConfig{
		DefaultRadiusMeters: radius,
		StaleSessionAfter:   staleAfter,
		CronInterval:        cronInterval,
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}
	if c.Attendance.DefaultRadiusMeters <= 0 {
		return fmt.Errorf("ATTENDANCE_DEFAULT_RADIUS_METERS must be positive")
	}
	if c.Attendance.CronInterval <= 0 {
		return fmt.Errorf("ATTENDANCE_CRON_INTERVAL must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// LoadAgent reads the time-clock agent configuration.
func LoadAgent() (*AgentConfig, error) {
	loadDotEnv()

	cfg := &AgentConfig{
		APIBaseURL:     getEnv("TIMECLOCK_API_URL", "http://localhost:8080/api/v1"),
		AccessToken:    getEnv("TIMECLOCK_ACCESS_TOKEN", ""),
		PositionSource: getEnv("TIMECLOCK_POSITION_SOURCE", "-"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"TIMECLOCK_REQUEST_TIMEOUT", "15s", &cfg.RequestTimeout},
		{"TIMECLOCK_HIGH_ACCURACY_TIMEOUT", "10s", &cfg.HighAccuracyTimeout},
		{"TIMECLOCK_LOW_ACCURACY_TIMEOUT", "20s", &cfg.LowAccuracyTimeout},
		{"TIMECLOCK_LOW_ACCURACY_MAX_AGE", "30s", &cfg.LowAccuracyMaxAge},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the agent configuration
func (c *AgentConfig) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("TIMECLOCK_ACCESS_TOKEN is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("TIMECLOCK_API_URL must be an absolute URL")
	}
	if c.HighAccuracyTimeout <= 0 || c.LowAccuracyTimeout <= 0 {
		return fmt.Errorf("positioning timeouts must be positive")
	}
	if c.LowAccuracyMaxAge <= 0 {
		return fmt.Errorf("TIMECLOCK_LOW_ACCURACY_MAX_AGE must be positive")
	}
	return nil
}

// SlogLevel maps a LOG_LEVEL value onto slog.Level.
func SlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string = strings.Split(value, ",")
	return result
}
