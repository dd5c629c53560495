package config

import (
	"os"
	"strings"
	"time"
)

const (
	apiURLEnvVar  = "SENTINEL_API_URL"
	authURLEnvVar = "SENTINEL_AUTH_URL"
	dataDirEnvVar = "SENTINEL_DATA_DIR"
	timeoutEnvVar = "SENTINEL_HTTP_TIMEOUT"
	logFileEnvVar = "SENTINEL_LOG_FILE"

	// DefaultAPIBaseURL is the fraud-detection service address.
	DefaultAPIBaseURL = "http://localhost:8000"
	// DefaultAuthBaseURL is the core-banking service address (token issuer).
	DefaultAuthBaseURL = "http://localhost:8001"

	defaultDataDir = "./data"
	defaultTimeout = 30 * time.Second
)

// Config holds the console's runtime settings.
type Config struct {
	APIBaseURL  string        // fraud-detection service
	AuthBaseURL string        // core-banking service
	DataDir     string        // directory for persisted tokens
	HTTPTimeout time.Duration // per-request timeout for API calls
	LogFile     string        // optional log file path; empty logs to stderr
}

// FromEnv builds a Config from environment variables, falling back to
// local-development defaults.
func FromEnv() Config {
	return Config{
		APIBaseURL:  baseURL(getEnv(apiURLEnvVar, DefaultAPIBaseURL)),
		AuthBaseURL: baseURL(getEnv(authURLEnvVar, DefaultAuthBaseURL)),
		DataDir:     getEnv(dataDirEnvVar, defaultDataDir),
		HTTPTimeout: timeout(os.Getenv(timeoutEnvVar)),
		LogFile:     os.Getenv(logFileEnvVar),
	}
}

func getEnv(envVar, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(envVar))
	if value == "" {
		return defaultValue
	}
	return value
}

func baseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

func timeout(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}
