// Package config handles configuration for the portal backend, including
// defaults, JSON overlay, environment variables and command-line flags.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultSecretKey is the development signing secret. Never ship it.
const DefaultSecretKey = "saralseva-dev-secret-change-me"

// Config holds runtime settings for the portal backend.
//
// Every field has a development-friendly default, so the server boots with
// no configuration present at all; the relational backend then usually is
// unreachable and the in-memory store takes over.
type Config struct {
	Environment    string
	HTTPAddr       string
	GRPCHealthAddr string

	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBPoolSize     int
	DBProbeTimeout time.Duration
	DBQueryTimeout time.Duration

	SecretKey  string
	TokenTTL   time.Duration
	BcryptCost int

	RateLimitWindow          time.Duration
	RateLimitMaxRequests     int
	AuthRateLimitMaxRequests int
	RedisAddr                string

	LogLevel string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret is insecure for production and must be overridden.
func (c *Config) LoadDefaults() {
	c.Environment = "development"
	c.HTTPAddr = ":3000"
	c.GRPCHealthAddr = ":50051"

	c.DBHost = "localhost"
	c.DBPort = 5432
	c.DBUser = "postgres"
	c.DBPassword = ""
	c.DBName = "saralseva_db"
	c.DBSSLMode = "disable"
	c.DBPoolSize = 10
	c.DBProbeTimeout = 3 * time.Second
	c.DBQueryTimeout = 5 * time.Second

	c.SecretKey = DefaultSecretKey
	c.TokenTTL = 24 * time.Hour
	c.BcryptCost = 12

	c.RateLimitWindow = 15 * time.Minute
	c.RateLimitMaxRequests = 100
	c.AuthRateLimitMaxRequests = 20
	c.RedisAddr = ""

	c.LogLevel = "info"
}

// DatabaseDSN assembles a pgx connection URL from the individual DB options.
func (c *Config) DatabaseDSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:   "/" + c.DBName,
	}
	if c.DBPassword != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	} else {
		u.User = url.User(c.DBUser)
	}
	q := url.Values{}
	q.Set("sslmode", c.DBSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// IsProduction reports whether the configured environment is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("jwt secret must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	if c.DBPoolSize <= 0 {
		return fmt.Errorf("db pool size must be positive, got %d", c.DBPoolSize)
	}
	if c.RateLimitWindow <= 0 || c.RateLimitMaxRequests <= 0 || c.AuthRateLimitMaxRequests <= 0 {
		return fmt.Errorf("rate limit window and limits must be positive")
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment, and finally command-line flags.
func LoadConfig() *Config {
	return load(os.Args[1:], nil)
}

func load(args []string, environ map[string]string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg, environ)
	parseFlags(cfg, args)
	return cfg
}
