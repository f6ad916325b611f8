package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/saralseva/internal/flagx"
	"github.com/dmitrijs2005/saralseva/internal/timex"
)

// JsonConfig is the on-disk shape of the optional configuration file.
// Durations use timex.Duration, so both "15m" and integer nanoseconds work.
type JsonConfig struct {
	Environment    string `json:"environment"`
	HTTPAddr       string `json:"http_addr"`
	GRPCHealthAddr string `json:"grpc_health_addr"`

	DBHost         string         `json:"db_host"`
	DBPort         int            `json:"db_port"`
	DBUser         string         `json:"db_user"`
	DBPassword     string         `json:"db_password"`
	DBName         string         `json:"db_name"`
	DBSSLMode      string         `json:"db_sslmode"`
	DBPoolSize     int            `json:"db_pool_size"`
	DBProbeTimeout timex.Duration `json:"db_probe_timeout"`
	DBQueryTimeout timex.Duration `json:"db_query_timeout"`

	SecretKey  string         `json:"jwt_secret"`
	TokenTTL   timex.Duration `json:"jwt_expire"`
	BcryptCost int            `json:"bcrypt_cost"`

	RateLimitWindow          timex.Duration `json:"rate_limit_window"`
	RateLimitMaxRequests     int            `json:"rate_limit_max_requests"`
	AuthRateLimitMaxRequests int            `json:"auth_rate_limit_max_requests"`
	RedisAddr                string         `json:"redis_addr"`

	LogLevel string `json:"log_level"`
}

// parseJson overlays values from the file named by -c/-config. Keys that
// are absent in the file keep their current value. An unreadable file or
// invalid JSON panics, since the operator asked for it explicitly.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(data, c); err != nil {
		panic(err)
	}
	fromJson(config, c)
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		Environment:              c.Environment,
		HTTPAddr:                 c.HTTPAddr,
		GRPCHealthAddr:           c.GRPCHealthAddr,
		DBHost:                   c.DBHost,
		DBPort:                   c.DBPort,
		DBUser:                   c.DBUser,
		DBPassword:               c.DBPassword,
		DBName:                   c.DBName,
		DBSSLMode:                c.DBSSLMode,
		DBPoolSize:               c.DBPoolSize,
		DBProbeTimeout:           timex.Duration{Duration: c.DBProbeTimeout},
		DBQueryTimeout:           timex.Duration{Duration: c.DBQueryTimeout},
		SecretKey:                c.SecretKey,
		TokenTTL:                 timex.Duration{Duration: c.TokenTTL},
		BcryptCost:               c.BcryptCost,
		RateLimitWindow:          timex.Duration{Duration: c.RateLimitWindow},
		RateLimitMaxRequests:     c.RateLimitMaxRequests,
		AuthRateLimitMaxRequests: c.AuthRateLimitMaxRequests,
		RedisAddr:                c.RedisAddr,
		LogLevel:                 c.LogLevel,
	}
}

func fromJson(c *Config, j *JsonConfig) {
	c.Environment = j.Environment
	c.HTTPAddr = j.HTTPAddr
	c.GRPCHealthAddr = j.GRPCHealthAddr
	c.DBHost = j.DBHost
	c.DBPort = j.DBPort
	c.DBUser = j.DBUser
	c.DBPassword = j.DBPassword
	c.DBName = j.DBName
	c.DBSSLMode = j.DBSSLMode
	c.DBPoolSize = j.DBPoolSize
	c.DBProbeTimeout = j.DBProbeTimeout.Duration
	c.DBQueryTimeout = j.DBQueryTimeout.Duration
	c.SecretKey = j.SecretKey
	c.TokenTTL = j.TokenTTL.Duration
	c.BcryptCost = j.BcryptCost
	c.RateLimitWindow = j.RateLimitWindow.Duration
	c.RateLimitMaxRequests = j.RateLimitMaxRequests
	c.AuthRateLimitMaxRequests = j.AuthRateLimitMaxRequests
	c.RedisAddr = j.RedisAddr
	c.LogLevel = j.LogLevel
}
