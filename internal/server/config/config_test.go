package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, ":3000", c.HTTPAddr)
	assert.Equal(t, ":50051", c.GRPCHealthAddr)
	assert.Equal(t, "localhost", c.DBHost)
	assert.Equal(t, 5432, c.DBPort)
	assert.Equal(t, "saralseva_db", c.DBName)
	assert.Equal(t, 10, c.DBPoolSize)
	assert.Equal(t, DefaultSecretKey, c.SecretKey)
	assert.Equal(t, 24*time.Hour, c.TokenTTL)
	assert.Equal(t, 12, c.BcryptCost)
	assert.Equal(t, 15*time.Minute, c.RateLimitWindow)
	assert.Equal(t, 100, c.RateLimitMaxRequests)
	assert.Equal(t, 20, c.AuthRateLimitMaxRequests)
	assert.Empty(t, c.RedisAddr)
	assert.NoError(t, c.Validate())
}

func TestLoad_NoConfigurationBootsWithDefaults(t *testing.T) {
	c := load(nil, map[string]string{})
	require.NotNil(t, c)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *c)
}

func TestDatabaseDSN(t *testing.T) {
	c := Config{DBHost: "db", DBPort: 6543, DBUser: "portal", DBName: "saralseva", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://portal@db:6543/saralseva?sslmode=disable", c.DatabaseDSN())

	c.DBPassword = "p@ss word"
	assert.Equal(t, "postgres://portal:p%40ss%20word@db:6543/saralseva?sslmode=disable", c.DatabaseDSN())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty secret", func(c *Config) { c.SecretKey = "" }},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }},
		{"cost too low", func(c *Config) { c.BcryptCost = 3 }},
		{"cost too high", func(c *Config) { c.BcryptCost = 32 }},
		{"pool", func(c *Config) { c.DBPoolSize = 0 }},
		{"rate window", func(c *Config) { c.RateLimitWindow = 0 }},
		{"auth max", func(c *Config) { c.AuthRateLimitMaxRequests = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestIsProduction(t *testing.T) {
	c := Config{Environment: "production"}
	assert.True(t, c.IsProduction())
	c.Environment = "development"
	assert.False(t, c.IsProduction())
}
