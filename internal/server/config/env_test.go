package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	var cfg Config
	cfg.LoadDefaults()

	parseEnv(&cfg, map[string]string{
		"APP_ENV":                 "production",
		"PORT":                    "8081",
		"DB_HOST":                 "mysql-or-pg",
		"DB_PORT":                 "15432",
		"DB_USER":                 "seva",
		"DB_PASSWORD":             "secret",
		"DB_NAME":                 "portal",
		"DB_POOL_SIZE":            "25",
		"JWT_SECRET":              "env-secret",
		"JWT_EXPIRE":              "12h",
		"RATE_LIMIT_WINDOW_MS":    "60000",
		"RATE_LIMIT_MAX_REQUESTS": "5",
		"REDIS_ADDR":              "redis:6379",
		"LOG_LEVEL":               "debug",
	})

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "mysql-or-pg", cfg.DBHost)
	assert.Equal(t, 15432, cfg.DBPort)
	assert.Equal(t, "seva", cfg.DBUser)
	assert.Equal(t, "secret", cfg.DBPassword)
	assert.Equal(t, "portal", cfg.DBName)
	assert.Equal(t, 25, cfg.DBPoolSize)
	assert.Equal(t, "env-secret", cfg.SecretKey)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 5, cfg.RateLimitMaxRequests)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "debug", cfg.LogLevel)

	// not set in the environment
	assert.Equal(t, 20, cfg.AuthRateLimitMaxRequests)
	assert.Equal(t, 12, cfg.BcryptCost)
}

func Test_parseEnv_Environment(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		want    string
	}{
		{name: "default", environ: map[string]string{}, want: "development"},
		{name: "node env", environ: map[string]string{"NODE_ENV": "production"}, want: "production"},
		{name: "app env", environ: map[string]string{"APP_ENV": "staging"}, want: "staging"},
		{
			name:    "app env wins",
			environ: map[string]string{"APP_ENV": "staging", "NODE_ENV": "production"},
			want:    "staging",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.LoadDefaults()
			parseEnv(&cfg, tt.environ)
			assert.Equal(t, tt.want, cfg.Environment)
		})
	}
}

func Test_parseEnv_DayDurations(t *testing.T) {
	var cfg Config
	cfg.LoadDefaults()

	parseEnv(&cfg, map[string]string{"JWT_EXPIRE": "7d", "DB_QUERY_TIMEOUT": "10s"})
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.DBQueryTimeout)
}

func Test_parseEnv_EmptyEnvironmentKeepsValues(t *testing.T) {
	var cfg Config
	cfg.LoadDefaults()
	want := cfg

	parseEnv(&cfg, map[string]string{})
	assert.Equal(t, want, cfg)
}

func Test_parseEnv_MalformedPanics(t *testing.T) {
	var cfg Config
	cfg.LoadDefaults()
	require.Panics(t, func() { parseEnv(&cfg, map[string]string{"DB_PORT": "five"}) })
}
