package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database     DatabaseConfig
	JWT          JWTConfig
	App          AppConfig
	Office       OfficeConfig
	FaceVerify   FaceVerifyConfig
	Verification VerificationConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret            string
	AccessExpiration  string
	RefreshExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	FrontendURL string
	// Timezone is the deployment's reference timezone used to decide which
	// calendar day an attendance record belongs to.
	Timezone string
}

// OfficeConfig is the static geofence for the deployment: a single reference
// point plus an allowed radius.
type OfficeConfig struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	// LateCutoffHour: checking in at or after this local hour marks the record late.
	LateCutoffHour int
}

// FaceVerifyConfig configures the external face verification service.
type FaceVerifyConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// VerificationConfig tunes the check-in/check-out verification flows.
type VerificationConfig struct {
	// MaxFaceRetries is the attempt budget for the face factor.
	MaxFaceRetries int
	// ProbeFreshness is how old a device position report may be before it is
	// rejected as a cached fix.
	ProbeFreshness time.Duration
	// SessionTTL is how long an abandoned verification session is kept before
	// the sweeper discards it.
	SessionTTL time.Duration
}

func Load() (*Config, error) {
	// .env is optional outside development
	_ = godotenv.Load()

	config := &Config{}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "presensia"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		Timezone:    getEnv("APP_TIMEZONE", "Asia/Jakarta"),
	}

	config.JWT = JWTConfig{
		Secret:            getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration:  getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
		RefreshExpiration: getEnv("JWT_REFRESH_EXPIRATION_TIME", "168h"),
	}

	officeLat, err := strconv.ParseFloat(getEnv("OFFICE_LATITUDE", ""), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OFFICE_LATITUDE: %w", err)
	}
	officeLng, err := strconv.ParseFloat(getEnv("OFFICE_LONGITUDE", ""), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OFFICE_LONGITUDE: %w", err)
	}
	officeRadius, err := strconv.ParseFloat(getEnv("OFFICE_RADIUS_METERS", "70"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OFFICE_RADIUS_METERS: %w", err)
	}
	lateCutoff, err := strconv.Atoi(getEnv("LATE_CUTOFF_HOUR", "9"))
	if err != nil {
		return nil, fmt.Errorf("invalid LATE_CUTOFF_HOUR: %w", err)
	}

	config.Office = OfficeConfig{
		Latitude:       officeLat,
		Longitude:      officeLng,
		RadiusMeters:   officeRadius,
		LateCutoffHour: lateCutoff,
	}

	faceTimeout, err := time.ParseDuration(getEnv("FACE_VERIFY_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FACE_VERIFY_TIMEOUT: %w", err)
	}

	config.FaceVerify = FaceVerifyConfig{
		BaseURL:      getEnv("FACE_VERIFY_BASE_URL", ""),
		TokenURL:     getEnv("FACE_VERIFY_TOKEN_URL", ""),
		ClientID:     getEnv("FACE_VERIFY_CLIENT_ID", ""),
		ClientSecret: getEnv("FACE_VERIFY_CLIENT_SECRET", ""),
		Timeout:      faceTimeout,
	}

	maxRetries, err := strconv.Atoi(getEnv("FACE_MAX_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid FACE_MAX_RETRIES: %w", err)
	}
	probeFreshness, err := time.ParseDuration(getEnv("PROBE_FRESHNESS", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_FRESHNESS: %w", err)
	}
	sessionTTL, err := time.ParseDuration(getEnv("VERIFICATION_SESSION_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid VERIFICATION_SESSION_TTL: %w", err)
	}

	config.Verification = VerificationConfig{
		MaxFaceRetries: maxRetries,
		ProbeFreshness: probeFreshness,
		SessionTTL:     sessionTTL,
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
	if c.FaceVerify.BaseURL == "" {
		return fmt.Errorf("FACE_VERIFY_BASE_URL is required")
	}
	if c.FaceVerify.TokenURL == "" {
		return fmt.Errorf("FACE_VERIFY_TOKEN_URL is required")
	}
	if c.FaceVerify.ClientID == "" || c.FaceVerify.ClientSecret == "" {
		return fmt.Errorf("FACE_VERIFY_CLIENT_ID and FACE_VERIFY_CLIENT_SECRET are required")
	}
	if c.Office.RadiusMeters <= 0 {
		return fmt.Errorf("OFFICE_RADIUS_METERS must be positive")
	}
	if c.Office.LateCutoffHour < 0 || c.Office.LateCutoffHour > 23 {
		return fmt.Errorf("LATE_CUTOFF_HOUR must be between 0 and 23")
	}
	if c.Verification.MaxFaceRetries < 1 {
		return fmt.Errorf("FACE_MAX_RETRIES must be at least 1")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
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

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
