package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brackethq/circuit-metrics/internal/platform/logging"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	LogLevel       logging.Level

	StorePath string

	RemoteEnabled            bool
	StartggBaseURL           string
	StartggToken             string
	StartggTimeout           time.Duration
	StartggMaxRetries        int
	StartggCircuitEnabled    bool
	StartggCircuitFailures   int
	StartggCircuitOpenFor    time.Duration
	StartggCircuitHalfOpen   int
	ResponseCacheDir         string
	ResponseCacheTTL         time.Duration

	DiscoveryStaleAfter time.Duration
	BundleWorkers       int
	DefaultVideogameID  int

	RateLimitRequests int
	RateLimitWindow   time.Duration

	CORSAllowedOrigins []string
	ReadCacheTTL       time.Duration

	PprofEnabled bool
	PprofAddr    string
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("HTTP_READ_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("HTTP_WRITE_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_WRITE_TIMEOUT: %w", err)
	}

	remoteEnabled, err := strconv.ParseBool(getEnv("REMOTE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REMOTE_ENABLED: %w", err)
	}
	startggToken := strings.TrimSpace(getEnv("STARTGG_API_TOKEN", ""))
	if remoteEnabled && startggToken == "" {
		return Config{}, fmt.Errorf("STARTGG_API_TOKEN is required when REMOTE_ENABLED=true")
	}
	startggTimeout, err := time.ParseDuration(getEnv("STARTGG_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STARTGG_TIMEOUT: %w", err)
	}
	if startggTimeout <= 0 {
		return Config{}, fmt.Errorf("STARTGG_TIMEOUT must be > 0")
	}
	startggMaxRetries, err := getEnvAsInt("STARTGG_MAX_RETRIES", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse STARTGG_MAX_RETRIES: %w", err)
	}
	if startggMaxRetries < 1 {
		return Config{}, fmt.Errorf("STARTGG_MAX_RETRIES must be >= 1")
	}

	circuitEnabled, err := strconv.ParseBool(getEnv("STARTGG_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STARTGG_CIRCUIT_ENABLED: %w", err)
	}
	circuitFailures, err := getEnvAsInt("STARTGG_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse STARTGG_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	circuitOpenFor, err := time.ParseDuration(getEnv("STARTGG_CIRCUIT_OPEN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STARTGG_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	circuitHalfOpen, err := getEnvAsInt("STARTGG_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse STARTGG_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}

	responseCacheTTL, err := time.ParseDuration(getEnv("RESPONSE_CACHE_TTL", "168h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RESPONSE_CACHE_TTL: %w", err)
	}
	discoveryStaleAfter, err := time.ParseDuration(getEnv("DISCOVERY_STALE_AFTER", "168h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DISCOVERY_STALE_AFTER: %w", err)
	}
	if discoveryStaleAfter <= 0 {
		return Config{}, fmt.Errorf("DISCOVERY_STALE_AFTER must be > 0")
	}

	bundleWorkers, err := getEnvAsInt("BUNDLE_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse BUNDLE_WORKERS: %w", err)
	}
	if bundleWorkers < 1 {
		return Config{}, fmt.Errorf("BUNDLE_WORKERS must be >= 1")
	}
	defaultVideogameID, err := getEnvAsInt("DEFAULT_VIDEOGAME_ID", 1386)
	if err != nil {
		return Config{}, fmt.Errorf("parse DEFAULT_VIDEOGAME_ID: %w", err)
	}

	rateLimitRequests, err := getEnvAsInt("RATE_LIMIT_REQUESTS", 60)
	if err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_REQUESTS: %w", err)
	}
	if rateLimitRequests < 1 {
		return Config{}, fmt.Errorf("RATE_LIMIT_REQUESTS must be >= 1")
	}
	rateLimitWindow, err := time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_WINDOW: %w", err)
	}
	if rateLimitWindow <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}

	readCacheTTL, err := time.ParseDuration(getEnv("READ_CACHE_TTL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse READ_CACHE_TTL: %w", err)
	}

	var corsOrigins []string
	for _, origin := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			corsOrigins = append(corsOrigins, trimmed)
		}
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}

	return Config{
		AppEnv:         appEnv,
		ServiceName:    getEnv("SERVICE_NAME", "circuit-metrics"),
		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		LogLevel:       logging.ParseLevel(getEnv("LOG_LEVEL", "info")),

		StorePath: getEnv("STORE_PATH", "circuit-metrics.db"),

		RemoteEnabled:          remoteEnabled,
		StartggBaseURL:         strings.TrimSpace(getEnv("STARTGG_BASE_URL", "")),
		StartggToken:           startggToken,
		StartggTimeout:         startggTimeout,
		StartggMaxRetries:      startggMaxRetries,
		StartggCircuitEnabled:  circuitEnabled,
		StartggCircuitFailures: circuitFailures,
		StartggCircuitOpenFor:  circuitOpenFor,
		StartggCircuitHalfOpen: circuitHalfOpen,
		ResponseCacheDir:       strings.TrimSpace(getEnv("RESPONSE_CACHE_DIR", "")),
		ResponseCacheTTL:       responseCacheTTL,

		DiscoveryStaleAfter: discoveryStaleAfter,
		BundleWorkers:       bundleWorkers,
		DefaultVideogameID:  defaultVideogameID,

		RateLimitRequests: rateLimitRequests,
		RateLimitWindow:   rateLimitWindow,

		CORSAllowedOrigins: corsOrigins,
		ReadCacheTTL:       readCacheTTL,

		PprofEnabled: pprofEnabled,
		PprofAddr:    getEnv("PPROF_ADDR", ":6060"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	return value, nil
}

func parseAppEnv(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case EnvDev, "development", "":
		return EnvDev, nil
	case EnvProd, "production":
		return EnvProd, nil
	default:
		return "", fmt.Errorf("unsupported APP_ENV %q", v)
	}
}
