package config

import (
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrijs2005/saralseva/internal/timex"
)

// envConfig mirrors the environment variables recognised by the backend.
// It is pre-filled from the current Config, so unset variables keep the
// value coming from defaults or the JSON file. APP_ENV wins over NODE_ENV.
type envConfig struct {
	AppEnv         string `env:"APP_ENV"`
	NodeEnv        string `env:"NODE_ENV"`
	Port           string `env:"PORT"`
	GRPCHealthAddr string `env:"GRPC_HEALTH_ADDR"`

	DBHost         string        `env:"DB_HOST"`
	DBPort         int           `env:"DB_PORT"`
	DBUser         string        `env:"DB_USER"`
	DBPassword     string        `env:"DB_PASSWORD"`
	DBName         string        `env:"DB_NAME"`
	DBSSLMode      string        `env:"DB_SSLMODE"`
	DBPoolSize     int           `env:"DB_POOL_SIZE"`
	DBProbeTimeout time.Duration `env:"DB_PROBE_TIMEOUT"`
	DBQueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT"`

	SecretKey  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"JWT_EXPIRE"`
	BcryptCost int           `env:"BCRYPT_COST"`

	RateLimitWindowMS        int64  `env:"RATE_LIMIT_WINDOW_MS"`
	RateLimitMaxRequests     int    `env:"RATE_LIMIT_MAX_REQUESTS"`
	AuthRateLimitMaxRequests int    `env:"AUTH_RATE_LIMIT_MAX_REQUESTS"`
	RedisAddr                string `env:"REDIS_ADDR"`

	LogLevel string `env:"LOG_LEVEL"`
}

// parseEnv overlays environment variables onto config. A nil environ reads
// the process environment. Malformed values panic, like a bad JSON file.
// Durations also accept a day suffix ("7d").
func parseEnv(config *Config, environ map[string]string) {
	e := envConfig{
		GRPCHealthAddr:           config.GRPCHealthAddr,
		DBHost:                   config.DBHost,
		DBPort:                   config.DBPort,
		DBUser:                   config.DBUser,
		DBPassword:               config.DBPassword,
		DBName:                   config.DBName,
		DBSSLMode:                config.DBSSLMode,
		DBPoolSize:               config.DBPoolSize,
		DBProbeTimeout:           config.DBProbeTimeout,
		DBQueryTimeout:           config.DBQueryTimeout,
		SecretKey:                config.SecretKey,
		TokenTTL:                 config.TokenTTL,
		BcryptCost:               config.BcryptCost,
		RateLimitWindowMS:        config.RateLimitWindow.Milliseconds(),
		RateLimitMaxRequests:     config.RateLimitMaxRequests,
		AuthRateLimitMaxRequests: config.AuthRateLimitMaxRequests,
		RedisAddr:                config.RedisAddr,
		LogLevel:                 config.LogLevel,
	}

	opts := env.Options{
		Environment: environ,
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): func(v string) (any, error) {
				return timex.ParseDuration(v)
			},
		},
	}
	if err := env.ParseWithOptions(&e, opts); err != nil {
		panic(err)
	}

	switch {
	case e.AppEnv != "":
		config.Environment = e.AppEnv
	case e.NodeEnv != "":
		config.Environment = e.NodeEnv
	}
	if e.Port != "" {
		config.HTTPAddr = ":" + e.Port
	}
	config.GRPCHealthAddr = e.GRPCHealthAddr
	config.DBHost = e.DBHost
	config.DBPort = e.DBPort
	config.DBUser = e.DBUser
	config.DBPassword = e.DBPassword
	config.DBName = e.DBName
	config.DBSSLMode = e.DBSSLMode
	config.DBPoolSize = e.DBPoolSize
	config.DBProbeTimeout = e.DBProbeTimeout
	config.DBQueryTimeout = e.DBQueryTimeout
	config.SecretKey = e.SecretKey
	config.TokenTTL = e.TokenTTL
	config.BcryptCost = e.BcryptCost
	config.RateLimitWindow = time.Duration(e.RateLimitWindowMS) * time.Millisecond
	config.RateLimitMaxRequests = e.RateLimitMaxRequests
	config.AuthRateLimitMaxRequests = e.AuthRateLimitMaxRequests
	config.RedisAddr = e.RedisAddr
	config.LogLevel = e.LogLevel
}
