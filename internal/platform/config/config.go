package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	DefaultAddr                  = ":8080"
	DefaultStaleThreshold        = 5 * 24 * time.Hour
	DefaultNotificationRetention = 30 * 24 * time.Hour
	DefaultScanSchedule          = "0 * * * *"
	DefaultCleanupSchedule       = "30 3 * * *"

	devSigningKey    = "dev-secret-key-change-in-production"
	minSigningKeyLen = 16
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// Database points at PostgreSQL. An empty URL selects the in-memory stores.
type Database struct {
	URL string
}

type Log struct {
	Level  string
	Format string
}

// Scheduler configures the pending-request scan and notification cleanup.
type Scheduler struct {
	Enabled               bool
	StaleThreshold        time.Duration
	ScanSchedule          string
	CleanupSchedule       string
	NotificationRetention time.Duration
}

// Document selects the delivery receipt format: text or xlsx.
type Document struct {
	Format string
}

type Config struct {
	Server    Server
	Database  Database
	Log       Log
	Scheduler Scheduler
	Document  Document

	// problems found while reading the environment, reported by Validate.
	problems []error
}

// LoadDotEnv loads the given env files, or ".env" when none is given.
// Missing files are not an error; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv builds a Config from environment variables so main stays lean.
// Unparseable values fall back to their defaults and are reported by Validate.
func FromEnv() Config {
	cfg := Config{
		Server: Server{
			Addr:          envOr("DESARQ_ADDR", DefaultAddr),
			JWTSigningKey: envOr("JWT_SIGNING_KEY", devSigningKey),
			JWTIssuer:     os.Getenv("JWT_ISSUER"),
			JWTAudience:   os.Getenv("JWT_AUDIENCE"),
		},
		Database: Database{
			URL: os.Getenv("DATABASE_URL"),
		},
		Log: Log{
			Level:  strings.ToLower(envOr("LOG_LEVEL", "info")),
			Format: strings.ToLower(envOr("LOG_FORMAT", "json")),
		},
		Document: Document{
			Format: strings.ToLower(envOr("DOCUMENT_FORMAT", "text")),
		},
		Scheduler: Scheduler{
			ScanSchedule:    envOr("SCAN_SCHEDULE", DefaultScanSchedule),
			CleanupSchedule: envOr("CLEANUP_SCHEDULE", DefaultCleanupSchedule),
		},
	}
	cfg.Scheduler.Enabled = cfg.boolEnv("SCHEDULER_ENABLED", true)
	cfg.Scheduler.StaleThreshold = cfg.durationEnv("STALE_THRESHOLD", DefaultStaleThreshold)
	cfg.Scheduler.NotificationRetention = cfg.durationEnv("NOTIFICATION_RETENTION", DefaultNotificationRetention)
	return cfg
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	problems := append([]error(nil), c.problems...)

	if c.Server.Addr == "" {
		problems = append(problems, errors.New("DESARQ_ADDR must not be empty"))
	}
	if len(c.Server.JWTSigningKey) < minSigningKeyLen {
		problems = append(problems, fmt.Errorf("JWT_SIGNING_KEY must be at least %d bytes", minSigningKeyLen))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		problems = append(problems, fmt.Errorf("LOG_FORMAT %q must be json or text", c.Log.Format))
	}
	if c.Document.Format != "text" && c.Document.Format != "xlsx" {
		problems = append(problems, fmt.Errorf("DOCUMENT_FORMAT %q must be text or xlsx", c.Document.Format))
	}
	if c.Scheduler.StaleThreshold <= 0 {
		problems = append(problems, errors.New("STALE_THRESHOLD must be positive"))
	}
	if c.Scheduler.NotificationRetention <= 0 {
		problems = append(problems, errors.New("NOTIFICATION_RETENTION must be positive"))
	}
	if _, err := cron.ParseStandard(c.Scheduler.ScanSchedule); err != nil {
		problems = append(problems, fmt.Errorf("SCAN_SCHEDULE: %w", err))
	}
	if _, err := cron.ParseStandard(c.Scheduler.CleanupSchedule); err != nil {
		problems = append(problems, fmt.Errorf("CLEANUP_SCHEDULE: %w", err))
	}
	return errors.Join(problems...)
}

// UsesDevSigningKey reports whether the built-in development key is in use.
func (c Config) UsesDevSigningKey() bool {
	return c.Server.JWTSigningKey == devSigningKey
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (c *Config) durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		c.problems = append(c.problems, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (c *Config) boolEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		c.problems = append(c.problems, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}
