package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port           string
	AllowedOrigins []string

	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
	Import   ImportConfig
	Sensors  SensorConfig
	Jobs     JobsConfig
}

// DatabaseConfig selects the store. URL wins over Path when both are set.
type DatabaseConfig struct {
	Path string
	URL  string
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string
}

type LogConfig struct {
	Level  string
	Format string
}

type ImportConfig struct {
	DataDir         string
	ImportOnStartup bool
	SeedSensors     bool
}

type SensorConfig struct {
	CalibrationInterval time.Duration
	FirmwareUpdateDelay time.Duration
	ThresholdsFile      string
}

type JobsConfig struct {
	CalibrationCheckSpec string
	RetentionPurgeSpec   string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", defaultDatabasePath()),
			URL:  os.Getenv("DATABASE_URL"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "change-me"),
			AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Import: ImportConfig{
			DataDir: getEnv("DATA_DIR", "./data"),
		},
		Sensors: SensorConfig{
			ThresholdsFile: os.Getenv("THRESHOLDS_FILE"),
		},
		Jobs: JobsConfig{
			CalibrationCheckSpec: getEnv("CALIBRATION_CHECK_SPEC", "@daily"),
			RetentionPurgeSpec:   getEnv("RETENTION_PURGE_SPEC", "@daily"),
		},
	}

	var err error
	if cfg.Auth.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Sensors.CalibrationInterval, err = getDuration("CALIBRATION_INTERVAL", 90*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Sensors.FirmwareUpdateDelay, err = getDuration("FIRMWARE_UPDATE_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.Import.ImportOnStartup, err = getBool("IMPORT_ON_STARTUP", true); err != nil {
		return nil, err
	}
	if cfg.Import.SeedSensors, err = getBool("SEED_SENSORS", true); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultDatabasePath puts the database in the per-user app-data directory,
// falling back to the working directory when the platform has none.
func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "envmon.db"
	}
	return filepath.Join(dir, "envmon", "envmon.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
