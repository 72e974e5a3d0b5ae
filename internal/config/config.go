package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"sports_club_backend/internal/services"
	"sports_club_backend/pkg/utils"
)

// Config holds all configuration for the API server.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	DatabaseURL  string // empty keeps the sports club registry in memory
	DBMigrations bool
	DBMaxConns   int

	DataDir              string // empty keeps every workbook in memory
	DefaultSpreadsheetID string
	DefaultEditors       []string
	DefaultViewers       []string

	AuthMode         string
	JWTSecret        string
	TokenTTL         time.Duration
	IntrospectionURL string

	LockTimeout        time.Duration
	CORSAllowedOrigins []string
	MetricsEnabled     bool
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Port:      utils.Getenv("PORT", "8080"),
		LogLevel:  utils.Getenv("LOG_LEVEL", "info"),
		LogFormat: utils.Getenv("LOG_FORMAT", "console"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DBMigrations: utils.GetenvBool("DB_MIGRATIONS", true),
		DBMaxConns:   utils.GetenvInt("DB_MAX_OPEN_CONNS", 25),

		DataDir:              utils.Getenv("DATA_DIR", "data"),
		DefaultSpreadsheetID: utils.Getenv("DEFAULT_SPREADSHEET_ID", "default"),
		DefaultEditors:       utils.GetenvList("DEFAULT_EDITORS", nil),
		DefaultViewers:       utils.GetenvList("DEFAULT_VIEWERS", nil),

		AuthMode:         strings.ToLower(utils.Getenv("AUTH_MODE", services.AuthModeJWT)),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		TokenTTL:         utils.GetenvDuration("TOKEN_TTL", 24*time.Hour),
		IntrospectionURL: os.Getenv("TOKEN_INTROSPECTION_URL"),

		LockTimeout:        utils.GetenvDuration("LOCK_TIMEOUT", services.DefaultLockTimeout),
		CORSAllowedOrigins: utils.GetenvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001"}),
		MetricsEnabled:     utils.GetenvBool("METRICS_ENABLED", true),
	}

	switch cfg.AuthMode {
	case services.AuthModeJWT:
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required when AUTH_MODE=%s", services.AuthModeJWT)
		}
	case services.AuthModeIntrospection:
		if cfg.IntrospectionURL == "" {
			return nil, fmt.Errorf("TOKEN_INTROSPECTION_URL environment variable is required when AUTH_MODE=%s", services.AuthModeIntrospection)
		}
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.AuthMode)
	}
	return cfg, nil
}

// AuthConfig returns the token validator settings.
func (c *Config) AuthConfig() services.AuthConfig {
	return services.AuthConfig{
		Mode:             c.AuthMode,
		JWTSecret:        c.JWTSecret,
		TokenTTL:         c.TokenTTL,
		IntrospectionURL: c.IntrospectionURL,
	}
}

// DefaultStore returns the store used by requests without a sportsClubId.
func (c *Config) DefaultStore() services.DefaultStore {
	return services.DefaultStore{
		SpreadsheetID: c.DefaultSpreadsheetID,
		Editors:       c.DefaultEditors,
		Viewers:       c.DefaultViewers,
	}
}
