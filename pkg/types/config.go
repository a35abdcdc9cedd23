package types

import (
	"errors"
	"log/slog"
)

// Config holds backend selection and parameters for opening a gateway.
type Config struct {
	Backend     string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir     string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	PostgresDSN string `json:"postgres_dsn" yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	RedisAddr   string `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPrefix string `json:"redis_prefix" yaml:"redis_prefix" mapstructure:"redis_prefix"`
	LogLevel    string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogFormat   string `json:"log_format" yaml:"log_format" mapstructure:"log_format"`
	LogFile     string `json:"log_file" yaml:"log_file" mapstructure:"log_file"`
	HTTPAddr    string `json:"http_addr" yaml:"http_addr" mapstructure:"http_addr"`
}

// Supported backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config validation errors.
var (
	ErrBackendEmpty     = errors.New("backend must not be empty")
	ErrBackendUnknown   = errors.New("unknown backend")
	ErrPostgresDSNEmpty = errors.New("postgres backend requires postgres_dsn")
	ErrRedisAddrEmpty   = errors.New("redis backend requires redis_addr")
	ErrLogLevelUnknown  = errors.New("unknown log level")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendMemory:   true,
	BackendSQLite:   true,
	BackendPostgres: true,
	BackendRedis:    true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendPostgres && c.PostgresDSN == "" {
		return ErrPostgresDSNEmpty
	}
	if c.Backend == BackendRedis && c.RedisAddr == "" {
		return ErrRedisAddrEmpty
	}
	if c.LogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return ErrLogLevelUnknown
		}
	}
	return nil
}
