package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gridstats/nfldb/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	StoreBackendMongo  = "mongo"
	StoreBackendMemory = "memory"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv         string `validate:"oneof=dev stage prod"`
	ServiceName    string `validate:"required"`
	ServiceVersion string
	LogLevel       logging.Level

	StoreBackend string `validate:"oneof=mongo memory"`
	MongoURL     string `validate:"required_if=StoreBackend mongo"`
	MongoDB      string `validate:"required_if=StoreBackend mongo"`

	FeedBaseURL               string `validate:"omitempty,url"`
	FeedToken                 string
	FeedTimeout               time.Duration `validate:"min=0"`
	FeedMaxRetries            int           `validate:"min=0"`
	FeedCircuitEnabled        bool
	FeedCircuitFailureCount   int           `validate:"min=0"`
	FeedCircuitOpenTimeout    time.Duration `validate:"min=0"`
	FeedCircuitHalfOpenMaxReq int           `validate:"min=0"`

	LookupCacheTTL time.Duration `validate:"min=0"`
	SyncWorkers    int           `validate:"min=1"`

	UptraceEnabled bool
	UptraceDSN     string `validate:"required_if=UptraceEnabled true"`

	PyroscopeEnabled       bool
	PyroscopeServerAddress string `validate:"required_if=PyroscopeEnabled true"`
	PyroscopeAppName       string
	PyroscopeAuthToken     string
	PyroscopeUploadRate    time.Duration `validate:"min=0"`
}

var validate = validator.New()

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	logLevel, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	feedTimeout, err := getEnvAsDuration("FEED_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse FEED_TIMEOUT: %w", err)
	}
	feedMaxRetries, err := getEnvAsInt("FEED_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse FEED_MAX_RETRIES: %w", err)
	}
	feedCircuitEnabled, err := strconv.ParseBool(getEnv("FEED_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FEED_CIRCUIT_ENABLED: %w", err)
	}
	feedCircuitFailureCount, err := getEnvAsInt("FEED_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse FEED_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	feedCircuitOpenTimeout, err := getEnvAsDuration("FEED_CIRCUIT_OPEN_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse FEED_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	feedCircuitHalfOpenMaxReq, err := getEnvAsInt("FEED_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse FEED_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}

	lookupCacheTTL, err := getEnvAsDuration("LOOKUP_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("parse LOOKUP_CACHE_TTL: %w", err)
	}
	syncWorkers, err := getEnvAsInt("SYNC_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_WORKERS: %w", err)
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeUploadRate, err := getEnvAsDuration("PYROSCOPE_UPLOAD_RATE", 15*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}

	cfg := Config{
		AppEnv:         appEnv,
		ServiceName:    getEnv("SERVICE_NAME", "nfldb"),
		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
		LogLevel:       logLevel,

		StoreBackend: getEnv("STORE_BACKEND", StoreBackendMongo),
		MongoURL:     mongoURLFromEnv(),
		MongoDB:      getEnv("MONGO_DB", "nfldb"),

		FeedBaseURL:               strings.TrimSpace(getEnv("FEED_BASE_URL", "")),
		FeedToken:                 strings.TrimSpace(getEnv("FEED_TOKEN", "")),
		FeedTimeout:               feedTimeout,
		FeedMaxRetries:            feedMaxRetries,
		FeedCircuitEnabled:        feedCircuitEnabled,
		FeedCircuitFailureCount:   feedCircuitFailureCount,
		FeedCircuitOpenTimeout:    feedCircuitOpenTimeout,
		FeedCircuitHalfOpenMaxReq: feedCircuitHalfOpenMaxReq,

		LookupCacheTTL: lookupCacheTTL,
		SyncWorkers:    syncWorkers,

		UptraceEnabled: uptraceEnabled,
		UptraceDSN:     strings.TrimSpace(getEnv("UPTRACE_DSN", "")),

		PyroscopeEnabled:       pyroscopeEnabled,
		PyroscopeServerAddress: strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAppName:       getEnv("PYROSCOPE_APP_NAME", "nfldb"),
		PyroscopeAuthToken:     strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeUploadRate:    pyroscopeUploadRate,
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func parseAppEnv(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case EnvDev, EnvStage, EnvProd:
		return v, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseLogLevel(v string) (logging.Level, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug, nil
	case "info", "":
		return logging.LevelInfo, nil
	case "warn", "warning":
		return logging.LevelWarn, nil
	case "error":
		return logging.LevelError, nil
	default:
		return logging.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", v)
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}
