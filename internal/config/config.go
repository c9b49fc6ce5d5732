package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"todo-service/internal/auth"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// Config keeps runtime settings for the service.
type Config struct {
	Port           string
	AllowedOrigin  string
	RequestTimeout time.Duration
	LogLevel       string
	RateLimit      RateLimitConfig

	DB   DBConfig
	Auth AuthConfig

	RedisAddr          string
	KafkaBrokers       []string
	KafkaTopic         string
	FieldEncryptionKey string
}

type DBConfig struct {
	Driver string
	Host   string
	Port   string
	User   string
	Pass   string
	Name   string
	// Path is the database file when Driver is sqlite3.
	Path string
}

// RateLimitConfig drives the per-client token bucket.
type RateLimitConfig struct {
	Rate      float64
	Burst     int
	ExpiresIn time.Duration
}

type AuthConfig struct {
	Mode         string
	Secret       string
	TokenTTL     time.Duration
	BcryptCost   int
	CookieSecure bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:               getEnv("PORT", "3001"),
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RedisAddr:          strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "task-topic"),
		FieldEncryptionKey: strings.TrimSpace(os.Getenv("FIELD_ENCRYPTION_KEY")),
		DB: DBConfig{
			Driver: getEnv("DB_DRIVER", DriverMySQL),
			Host:   getEnv("DB_HOST", "127.0.0.1"),
			Port:   getEnv("DB_PORT", "3306"),
			User:   getEnv("DB_USER", "root"),
			Pass:   os.Getenv("DB_PASS"),
			Name:   getEnv("DB_NAME", "todo"),
			Path:   getEnv("DB_PATH", "todo.db"),
		},
		Auth: AuthConfig{
			Mode:   getEnv("AUTH_MODE", auth.ModeJWT),
			Secret: os.Getenv("JWT_SECRET"),
		},
		RateLimit: RateLimitConfig{ExpiresIn: 3 * time.Minute},
	}

	var err error
	if cfg.Auth.TokenTTL, err = ParseTTL(getEnv("JWT_EXPIRES_IN", "1h")); err != nil {
		return cfg, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	if cfg.RequestTimeout, err = time.ParseDuration(getEnv("REQUEST_TIMEOUT", "5s")); err != nil {
		return cfg, fmt.Errorf("REQUEST_TIMEOUT: %w", err)
	}
	if cfg.Auth.BcryptCost, err = strconv.Atoi(getEnv("BCRYPT_COST", strconv.Itoa(auth.DefaultCost))); err != nil {
		return cfg, fmt.Errorf("BCRYPT_COST: %w", err)
	}
	if cfg.RateLimit.Rate, err = strconv.ParseFloat(getEnv("RATE_LIMIT", "10"), 64); err != nil {
		return cfg, fmt.Errorf("RATE_LIMIT: %w", err)
	}
	if cfg.RateLimit.Burst, err = strconv.Atoi(getEnv("RATE_BURST", "30")); err != nil {
		return cfg, fmt.Errorf("RATE_BURST: %w", err)
	}
	if cfg.Auth.CookieSecure, err = strconv.ParseBool(getEnv("COOKIE_SECURE", "false")); err != nil {
		return cfg, fmt.Errorf("COOKIE_SECURE: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Auth.Mode {
	case auth.ModeJWT:
	case auth.ModeSession:
		if c.RedisAddr == "" {
			return fmt.Errorf("AUTH_MODE=session requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be jwt or session, got %q", c.Auth.Mode)
	}
	switch c.DB.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %s or %s, got %q", DriverMySQL, DriverSQLite, c.DB.Driver)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive")
	}
	if c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT and RATE_BURST must be positive")
	}
	return nil
}

// DSN builds the driver-specific connection string.
func (d DBConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", d.Path)
	}
	mc := mysql.NewConfig()
	mc.User = d.User
	mc.Passwd = d.Pass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(d.Host, d.Port)
	mc.DBName = d.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	// Report matched rather than changed rows so an UPDATE that writes identical
	// values is not mistaken for a missing row.
	mc.ClientFoundRows = true
	return mc.FormatDSN()
}

// ParseTTL accepts Go durations ("90m"), a day suffix ("7d") or bare seconds ("3600").
func ParseTTL(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	if strings.HasSuffix(raw, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(raw, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(raw)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
