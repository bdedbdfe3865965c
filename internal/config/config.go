package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/anime-shed/authenticity-validator-go/pkg/validation"
)

const minSessionSecretLength = 16

// Config is resolved once at startup and treated as read-only afterwards.
type Config struct {
	Host           string
	Port           string
	RequestTimeout time.Duration

	// ServiceURL is the validation service base endpoint, already validated
	ServiceURL     *url.URL
	ServiceTimeout time.Duration
	MaxUploadSize  int64

	SessionSecret string
	// SessionSecretGenerated is set when SESSION_SECRET was unset and a
	// random per-process secret is in use
	SessionSecretGenerated bool
	SessionIdleTimeout     time.Duration

	// CORSAllowedOrigins lists browser origins allowed to call the JSON API
	CORSAllowedOrigins []string

	HistoryDBPath string

	AzureAccountName      string
	AzureAccountKey       string
	AzureArchiveContainer string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// HistoryEnabled reports whether attempts should be persisted
func (c *Config) HistoryEnabled() bool {
	return c.HistoryDBPath != ""
}

// ArchiveEnabled reports whether successful verdicts should be archived to blob storage
func (c *Config) ArchiveEnabled() bool {
	return c.AzureAccountName != "" && c.AzureAccountKey != "" && c.AzureArchiveContainer != ""
}

// LoadDotEnv loads variables from .env files if present. A missing file is not an error.
func LoadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:                  getEnvOrDefault("HOST", "0.0.0.0"),
		Port:                  getEnvOrDefault("PORT", "8080"),
		SessionSecret:         os.Getenv("SESSION_SECRET"),
		CORSAllowedOrigins:    splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		HistoryDBPath:         strings.TrimSpace(os.Getenv("HISTORY_DB_PATH")),
		AzureAccountName:      strings.TrimSpace(os.Getenv("AZURE_STORAGE_ACCOUNT")),
		AzureAccountKey:       strings.TrimSpace(os.Getenv("AZURE_STORAGE_KEY")),
		AzureArchiveContainer: strings.TrimSpace(os.Getenv("AZURE_ARCHIVE_CONTAINER")),
	}

	var err error
	if cfg.RequestTimeout, err = parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.ServiceTimeout, err = parseDurationOrDefault("SERVICE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTimeout, err = parseDurationOrDefault("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MaxUploadSize, err = parseIntOrDefault("MAX_UPLOAD_SIZE", 10*1024*1024); err != nil { // 10MB
		return nil, err
	}

	serviceURL, err := validation.NewEndpointValidator().
		ValidateEndpoint(getEnvOrDefault("VALIDATION_SERVICE_URL", "http://localhost:8000"))
	if err != nil {
		return nil, fmt.Errorf("invalid VALIDATION_SERVICE_URL: %w", err)
	}
	cfg.ServiceURL = serviceURL

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_SIZE must be > 0 (got %d)", cfg.MaxUploadSize)
	}
	if cfg.RequestTimeout <= 0 || cfg.SessionIdleTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, session_idle=%s)",
			cfg.RequestTimeout, cfg.SessionIdleTimeout)
	}

	switch {
	case cfg.SessionSecret == "":
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		cfg.SessionSecret = secret
		cfg.SessionSecretGenerated = true
	case len(cfg.SessionSecret) < minSessionSecretLength:
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDurationOrDefault accepts "0" so SERVICE_TIMEOUT can be switched off
func parseDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	if duration < 0 {
		return 0, fmt.Errorf("%s must be >= 0 (got %s)", key, duration)
	}
	return duration, nil
}

func parseIntOrDefault(key string, defaultValue int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return intValue, nil
}

// randomSecret signs session cookies when no secret is configured; sessions
// then do not survive a restart
func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
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
