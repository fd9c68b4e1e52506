// Package config provides hierarchical configuration loading for agentd.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the agentd service.
type Config struct {
	Server   Server   `yaml:"server"`
	Store    Store    `yaml:"store"`
	NATS     NATS     `yaml:"nats"`
	Postgres Postgres `yaml:"postgres"`
	Logging  Logging  `yaml:"logging"`
	Breaker  Breaker  `yaml:"breaker"`
	Cache    Cache    `yaml:"cache"`
}

// Server holds HTTP dashboard configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
	// APIKeyHash is a bcrypt hash of the dashboard API key.
	// Empty disables authentication.
	APIKeyHash string `yaml:"api_key_hash"`
}

// Store holds agent configuration store settings.
// Backend "file" persists a single JSON document at Path;
// backend "nats" persists the document in a JetStream KV bucket.
type Store struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Bucket  string `yaml:"bucket"`
}

// NATS holds NATS JetStream configuration. An empty URL disables the
// event bus and the "nats" store backend.
type NATS struct {
	URL string `yaml:"url"`
}

// Postgres holds the optional run-history database configuration.
// An empty DSN disables run-history recording.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level       string `yaml:"level"`
	Service     string `yaml:"service"`
	Async       bool   `yaml:"async"`
	AsyncBuffer int    `yaml:"async_buffer"`
}

// Breaker holds the circuit breaker configuration guarding config-store writes.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Cache holds the dashboard status-cache configuration.
type Cache struct {
	MaxSizeMB int64         `yaml:"max_size_mb"`
	StatusTTL time.Duration `yaml:"status_ttl"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Store: Store{
			Backend: "file",
			Path:    "agents.json",
			Bucket:  "agentd-config",
		},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Logging: Logging{
			Level:       "info",
			Service:     "agentd",
			AsyncBuffer: 1024,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Cache: Cache{
			MaxSizeMB: 8,
			StatusTTL: time.Second,
		},
	}
}
