package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort       string
	LogLevel       string
	RequestTimeout time.Duration
	ServiceVersion string

	DBDriver         string
	DatabaseURL      string
	DBMaxOpenConns   int
	DBMaxIdleConns   int
	DBConnMaxIdle    time.Duration
	DBConnMaxLife    time.Duration
	DBConnectTimeout time.Duration

	JWTSecret string
	JWTIssuer string

	StorageBackend      string
	SupabaseURL         string
	SupabaseServiceKey  string
	SupabaseBucket      string
	LocalStorageDir     string
	LocalStorageBaseURL string
	StorageTimeout      time.Duration
	SweepGrace          time.Duration

	RedisURL    string
	JobCacheTTL time.Duration

	NATSURL         string
	NATSConnTimeout time.Duration

	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	OTELEndpoint string
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),

		DBDriver:         getEnv("DB_DRIVER", "postgres"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DBMaxOpenConns:   getInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:   getInt("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxIdle:    getDuration("DB_CONN_MAX_IDLE", 5*time.Minute),
		DBConnMaxLife:    getDuration("DB_CONN_MAX_LIFE", 30*time.Minute),
		DBConnectTimeout: getDuration("DB_CONNECT_TIMEOUT", 30*time.Second),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		StorageBackend:      strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		SupabaseURL:         getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:  getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseBucket:      getEnv("SUPABASE_BUCKET", "resumes"),
		LocalStorageDir:     getEnv("LOCAL_STORAGE_DIR", "./data/uploads"),
		LocalStorageBaseURL: getEnv("LOCAL_STORAGE_BASE_URL", "http://localhost:8080/uploads"),
		StorageTimeout:      getDuration("STORAGE_TIMEOUT", 60*time.Second),
		SweepGrace:          getDuration("SWEEP_GRACE", 24*time.Hour),

		RedisURL:    getEnv("REDIS_URL", ""),
		JobCacheTTL: getDuration("JOB_CACHE_TTL", 10*time.Minute),

		NATSURL:         getEnv("NATS_URL", ""),
		NATSConnTimeout: getDuration("NATS_CONN_TIMEOUT", 5*time.Second),

		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "default"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		OTELEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", ""),
	}

	if cfg.DBDriver == "sqlite3" && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "file:jobboard.db?_foreign_keys=on"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.DBDriver {
	case "postgres", "pgx", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported", c.DBDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.StorageBackend {
	case "local":
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for the supabase storage backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND %q is not supported", c.StorageBackend))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
