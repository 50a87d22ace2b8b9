// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// State backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds the application configuration.
type Config struct {
	DataPath         string
	DatabasePath     string
	ConfigFile       string
	StateBackend     string
	RedisAddr        string
	RedisPassword    string
	GatewayURL       string
	ClientVersion    string
	Schedule         string
	ListenAddr       string
	APIKey           string
	LogLevel         string
	LogEncoding      string
	Notifiers        []string
	RequestTimeout   time.Duration
	MaxLoginFailures int
	RetentionDays    int
	Dev              bool
}

// Default values
const (
	defaultSchedule         = "0 20 * * *"
	defaultListenAddr       = ":8080"
	defaultGatewayURL       = "http://127.0.0.1:8000/telecom"
	defaultRequestTimeout   = 30 * time.Second
	defaultMaxLoginFailures = 5
	defaultRetentionDays    = 90
	defaultNotifiers        = "console"
	defaultConfigFile       = "telecom_config.json"
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	dataPath := getEnvString("TELECOM_DATA_PATH", getDefaultDataPath())

	cfg := &Config{
		DataPath:         dataPath,
		DatabasePath:     getEnvString("TELECOM_DATABASE_PATH", filepath.Join(dataPath, "telecom.db")),
		ConfigFile:       getEnvString("TELECOM_CONFIG_FILE", defaultConfigFile),
		StateBackend:     strings.ToLower(getEnvString("TELECOM_STATE_BACKEND", BackendSQLite)),
		RedisAddr:        getEnvString("TELECOM_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:    getEnvString("TELECOM_REDIS_PASSWORD", ""),
		GatewayURL:       getEnvString("TELECOM_GATEWAY_URL", defaultGatewayURL),
		ClientVersion:    getEnvString("TELECOM_CLIENT_VERSION", ""),
		RequestTimeout:   getEnvDuration("TELECOM_TIMEOUT", defaultRequestTimeout),
		Schedule:         getEnvString("TELECOM_SCHEDULE", defaultSchedule),
		ListenAddr:       listenAddr(),
		APIKey:           getEnvString("TELECOM_API_KEY", ""),
		LogLevel:         getEnvString("TELECOM_LOG_LEVEL", "info"),
		LogEncoding:      getEnvString("TELECOM_LOG_ENCODING", "console"),
		Dev:              getEnvBool("TELECOM_DEV", false),
		Notifiers:        splitList(getEnvString("TELECOM_NOTIFIERS", defaultNotifiers)),
		MaxLoginFailures: getEnvInt("TELECOM_MAX_LOGIN_FAILURES", defaultMaxLoginFailures),
		RetentionDays:    getEnvInt("TELECOM_RETENTION_DAYS", defaultRetentionDays),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field values and prepares the data directory.
func (c *Config) Validate() error {
	var errs []error

	switch c.StateBackend {
	case BackendSQLite, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown state backend %q (want %s or %s)", c.StateBackend, BackendSQLite, BackendRedis))
	}
	if c.StateBackend == BackendRedis && c.RedisAddr == "" {
		errs = append(errs, errors.New("TELECOM_REDIS_ADDR is required for the redis backend"))
	}
	if u, err := url.Parse(c.GatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid gateway url %q", c.GatewayURL))
	}
	if c.MaxLoginFailures < 1 {
		errs = append(errs, fmt.Errorf("max login failures must be positive, got %d", c.MaxLoginFailures))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %v", c.RequestTimeout))
	}
	if c.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("retention days must not be negative, got %d", c.RetentionDays))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Ensure database directory exists
	if c.StateBackend == BackendSQLite {
		if err := ensureDir(filepath.Dir(c.DatabasePath)); err != nil {
			return err
		}
	}
	return nil
}

// LogFile returns the log file written in addition to stdout.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataPath, "log", "app.log")
}

// listenAddr honours TELECOM_PROT, a bare port, before TELECOM_LISTEN_ADDR.
func listenAddr() string {
	if port := os.Getenv("TELECOM_PROT"); port != "" {
		return ":" + strings.TrimPrefix(port, ":")
	}
	return getEnvString("TELECOM_LISTEN_ADDR", defaultListenAddr)
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "telecom-monitor", ".env"),
			filepath.Join(home, ".telecom-monitor", ".env"),
		)
	}

	// Parent directory (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(cwd), ".env"))
	}

	return paths
}

// getDefaultDataPath returns the default directory for state and logs.
func getDefaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".config", "telecom-monitor")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
