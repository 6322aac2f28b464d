// Package config loads process configuration from the environment once at startup.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"civic/pkg/platform/strings"
)

// devSigningKey is used only when no key is configured and the server is not
// in production mode.
const devSigningKey = "dev-secret-key-change-in-production"

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string        `env:"CIVIC_ADDR" envDefault:":8080"`
	Production    bool          `env:"CIVIC_PRODUCTION" envDefault:"false"`
	JWTSigningKey string        `env:"JWT_SIGNING_KEY"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"civic"`
	JWTAudience   string        `env:"JWT_AUDIENCE" envDefault:"civic-api"`
	ShutdownGrace time.Duration `env:"CIVIC_SHUTDOWN_GRACE" envDefault:"15s"`

	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	RateLimit    RateLimitConfig
	EmailCode    EmailCodeConfig
	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	// BootstrapAdmins are user ids granted the admin permissions at startup
	// so a fresh deployment has someone able to review and grant.
	BootstrapAdmins []string `env:"CIVIC_BOOTSTRAP_ADMINS" envSeparator:","`
}

// DatabaseConfig configures PostgreSQL. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig configures the optional Redis client. An empty URL disables it.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures notification fan-out. Empty brokers disable publishing.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"NOTIFICATION_TOPIC" envDefault:"civic.notifications"`

	Partitions  int32 `env:"NOTIFICATION_TOPIC_PARTITIONS" envDefault:"3"`
	Replication int16 `env:"NOTIFICATION_TOPIC_REPLICATION" envDefault:"1"`
}

// RateLimitConfig bounds submissions and email-code requests per caller.
type RateLimitConfig struct {
	PerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	Burst     int `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

// EmailCodeConfig controls email verification codes.
type EmailCodeConfig struct {
	TTL         time.Duration `env:"EMAIL_CODE_TTL" envDefault:"10m"`
	MaxAttempts int           `env:"EMAIL_CODE_MAX_ATTEMPTS" envDefault:"5"`
}

// FromEnv parses the environment and validates the result.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c *Server) validate() error {
	if c.JWTSigningKey == "" {
		if c.Production {
			return errors.New("JWT_SIGNING_KEY is required in production")
		}
		c.JWTSigningKey = devSigningKey
	}
	if c.Production && c.JWTSigningKey == devSigningKey {
		return errors.New("JWT_SIGNING_KEY must not use the development default in production")
	}
	// Grants and email codes must be shared by every instance.
	if c.Production && c.Database.URL == "" {
		return errors.New("DATABASE_URL is required in production")
	}
	if c.Production && c.Redis.URL == "" {
		return errors.New("REDIS_URL is required in production")
	}
	c.Kafka.Brokers = strings.NormalizeList(c.Kafka.Brokers)
	c.BootstrapAdmins = strings.NormalizeList(c.BootstrapAdmins)
	if c.RateLimit.PerMinute <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate limit values must be positive")
	}
	if c.EmailCode.MaxAttempts <= 0 {
		return errors.New("EMAIL_CODE_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// InMemory reports whether the server runs without PostgreSQL.
func (c Server) InMemory() bool { return c.Database.URL == "" }
