/*
Package config loads server settings from the environment.

SOURCES (later wins):
  1. built-in defaults
  2. .env file in the working directory, if present
  3. process environment

KEYS:
  PORT                        HTTP listen port (8080)
  DB_DRIVER                   sqlite | postgres (sqlite)
  DB_PATH                     SQLite file (./data/workforce.db)
  DATABASE_URL                PostgreSQL URL, required for DB_DRIVER=postgres
  LOG_LEVEL                   debug | info | warn | error (info)
  LOG_FORMAT                  text | json (text)
  TIMEZONE                    IANA zone defining "today" (UTC)
  MONTHLY_OFF_CAP             leave days allowed per month (2)
  REDUNDANCY_THRESHOLD_HOURS  monthly hours floor (160)
  DEFAULT_ANNUAL_LEAVE_DAYS   annual balance for new users (21)
  DEFAULT_SICK_LEAVE_DAYS     sick balance for new users (30)
  EXPIRE_INTERVAL             stale leave sweep period, 0 disables (1h)
  REGISTER_RATE_LIMIT         per-IP limit on POST /api/users, e.g. 20-M; "off" disables (20-M)
  CORS_ALLOWED_ORIGINS        comma-separated origins (http://localhost:5173,http://localhost:8080)
*/
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/warp/workforce-engine/workforce"
)

// Driver names a store backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Config holds application configuration.
type Config struct {
	Port           string
	Driver         Driver
	DBPath         string
	DatabaseURL    string
	LogLevel       slog.Level
	LogFormat      string
	Location       *time.Location
	Policy         workforce.Policy
	ExpireInterval time.Duration

	RegisterRateLimit  string
	CORSAllowedOrigins []string
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	defaults := workforce.DefaultPolicy()
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_DRIVER", string(DriverSQLite))
	v.SetDefault("DB_PATH", "./data/workforce.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("MONTHLY_OFF_CAP", defaults.MonthlyOffCap)
	v.SetDefault("REDUNDANCY_THRESHOLD_HOURS", defaults.RedundancyThresholdHours)
	v.SetDefault("DEFAULT_ANNUAL_LEAVE_DAYS", defaults.AnnualLeaveDays)
	v.SetDefault("DEFAULT_SICK_LEAVE_DAYS", defaults.SickLeaveDays)
	v.SetDefault("EXPIRE_INTERVAL", "1h")
	v.SetDefault("REGISTER_RATE_LIMIT", "20-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080")
	v.AutomaticEnv()

	cfg := &Config{
		Port:              v.GetString("PORT"),
		Driver:            Driver(strings.ToLower(v.GetString("DB_DRIVER"))),
		DBPath:            v.GetString("DB_PATH"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		LogFormat:         strings.ToLower(v.GetString("LOG_FORMAT")),
		RegisterRateLimit: strings.TrimSpace(v.GetString("REGISTER_RATE_LIMIT")),
		Policy: workforce.Policy{
			MonthlyOffCap:            v.GetInt("MONTHLY_OFF_CAP"),
			RedundancyThresholdHours: v.GetFloat64("REDUNDANCY_THRESHOLD_HOURS"),
			AnnualLeaveDays:          v.GetInt("DEFAULT_ANNUAL_LEAVE_DAYS"),
			SickLeaveDays:            v.GetInt("DEFAULT_SICK_LEAVE_DAYS"),
		},
	}

	switch cfg.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Driver)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	interval, err := time.ParseDuration(v.GetString("EXPIRE_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXPIRE_INTERVAL: %w", err)
	}
	cfg.ExpireInterval = interval

	if strings.EqualFold(cfg.RegisterRateLimit, "off") {
		cfg.RegisterRateLimit = ""
	}
	for _, origin := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Logger builds the process logger described by the config.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
