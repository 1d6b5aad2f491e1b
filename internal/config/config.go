package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppEnv          = "dev"
	defaultHTTPAddr        = ":8080"
	defaultDatabaseURL     = "file:roomclean.db?_pragma=busy_timeout(5000)"
	defaultJWTSecret       = "change-me-jwt-secret"
	defaultJWTTTL          = "24h"
	defaultGatewayToken    = "change-me-gateway-token"
	defaultLockTTL         = "10s"
	defaultLockWait        = "2s"
	defaultAMQPExchange    = "roomclean.notifications"
	defaultNotifyInterval  = "2s"
	defaultNotifyBatch     = "50"
	defaultNotifyAttempts  = "8"
	defaultRateLimitRPS    = "5"
	defaultRateLimitBurst  = "10"
	defaultLocale          = "en"
	defaultShutdownTimeout = "10s"
	defaultNotifyRetention = "2160h"
)

type Config struct {
	AppEnv          string
	HTTPAddr        string
	DatabaseURL     string
	JWTSecret       string
	JWTTTL          time.Duration
	GatewayToken    string
	RedisURL        string
	LockTTL         time.Duration
	LockWait        time.Duration
	AMQPURL         string
	AMQPExchange    string
	NotifyInterval  time.Duration
	NotifyBatch     int
	NotifyAttempts  int
	NotifyRetention time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	DefaultLocale   string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", defaultAppEnv)))
	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.GatewayToken = strings.TrimSpace(getEnv("GATEWAY_CALLBACK_TOKEN", defaultGatewayToken))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.AMQPURL = strings.TrimSpace(os.Getenv("AMQP_URL"))
	cfg.AMQPExchange = strings.TrimSpace(getEnv("AMQP_EXCHANGE", defaultAMQPExchange))
	cfg.DefaultLocale = strings.ToLower(strings.TrimSpace(getEnv("DEFAULT_LOCALE", defaultLocale)))
	if extra := os.Getenv("CORS_ALLOWED_ORIGINS"); extra != "" {
		cfg.CORSOrigins = strings.Split(extra, ",")
	}

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = parseDurationEnv("LOCK_TTL", defaultLockTTL); err != nil {
		return nil, err
	}
	if cfg.LockWait, err = parseDurationEnv("LOCK_WAIT", defaultLockWait); err != nil {
		return nil, err
	}
	if cfg.NotifyInterval, err = parseDurationEnv("NOTIFY_INTERVAL", defaultNotifyInterval); err != nil {
		return nil, err
	}
	if cfg.NotifyRetention, err = parseDurationEnv("NOTIFY_RETENTION", defaultNotifyRetention); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.NotifyBatch, err = parseIntEnv("NOTIFY_BATCH", defaultNotifyBatch); err != nil {
		return nil, err
	}
	if cfg.NotifyAttempts, err = parseIntEnv("NOTIFY_MAX_ATTEMPTS", defaultNotifyAttempts); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = parseIntEnv("RATE_LIMIT_BURST", defaultRateLimitBurst); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = parseFloatEnv("RATE_LIMIT_RPS", defaultRateLimitRPS); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProdLike() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be > 0")
	}
	if cfg.LockWait < 0 {
		return fmt.Errorf("LOCK_WAIT must be >= 0")
	}
	if cfg.LockWait >= cfg.LockTTL {
		return fmt.Errorf("LOCK_WAIT must be shorter than LOCK_TTL")
	}
	if cfg.NotifyInterval <= 0 {
		return fmt.Errorf("NOTIFY_INTERVAL must be > 0")
	}
	if cfg.NotifyBatch <= 0 {
		return fmt.Errorf("NOTIFY_BATCH must be > 0")
	}
	if cfg.NotifyAttempts <= 0 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be > 0")
	}
	if cfg.NotifyRetention <= 0 {
		return fmt.Errorf("NOTIFY_RETENTION must be > 0")
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be > 0")
	}
	if cfg.DefaultLocale != "en" && cfg.DefaultLocale != "id" {
		return fmt.Errorf("DEFAULT_LOCALE must be one of: en, id")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.GatewayToken, defaultGatewayToken) {
			return fmt.Errorf("in prod/release GATEWAY_CALLBACK_TOKEN must be set and not default")
		}
		if !strings.HasPrefix(cfg.DatabaseURL, "postgres") {
			return fmt.Errorf("in prod/release DATABASE_URL must point to PostgreSQL")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseFloatEnv(name, fallback string) (float64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return f, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
