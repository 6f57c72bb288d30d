package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Profile  string
	HTTPAddr string

	DatabaseDriver string
	DatabaseDSN    string

	RedisAddr string

	AccessTokenPrivateKeyFile string
	AccessTokenPublicKeyFile  string

	AuthRateLimitRPM int

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration
}

func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{
		Profile:  getEnv("APP_PROFILE", "dev"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseDriver: getEnv("DB_DRIVER", "postgres"),
		DatabaseDSN:    getEnv("DB_DSN", ""),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		AccessTokenPrivateKeyFile: getEnv("ACCESS_TOKEN_PRIVATE_KEY_FILE", ""),
		AccessTokenPublicKeyFile:  getEnv("ACCESS_TOKEN_PUBLIC_KEY_FILE", ""),

		AuthRateLimitRPM: getEnvInt("AUTH_RATE_LIMIT_RPM", 30),

		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "auth-service"),
		OTELEnvironment:           getEnv("OTEL_ENVIRONMENT", "dev"),
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure:  getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsEnabled:        getEnvBool("OTEL_METRICS_ENABLED", false),
		OTELTracesEnabled:         getEnvBool("OTEL_TRACES_ENABLED", false),
		OTELLogsEnabled:           getEnvBool("OTEL_LOGS_ENABLED", false),
		OTELMetricsExportInterval: getEnvDuration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second),
	}

	if err := cfg.validate(); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(ctx, cfg.Profile, "success", "none")
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("validate config: DB_DSN is required")
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("validate config: unsupported DB_DRIVER %q", c.DatabaseDriver)
	}
	if c.AccessTokenPrivateKeyFile == "" || c.AccessTokenPublicKeyFile == "" {
		return fmt.Errorf("validate config: access token key files are required")
	}
	if c.AuthRateLimitRPM <= 0 {
		return fmt.Errorf("validate config: AUTH_RATE_LIMIT_RPM must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
