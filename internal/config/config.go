// Package config loads agent configuration from the environment.
package config

import (
	"os"
	"time"
)

type Config struct {
	// DatabasePath is the single-file embedded database holding job and
	// step records, shared by the agent and worker processes.
	DatabasePath string

	RedisAddr string
	QueueKey  string
	HTTPAddr  string

	// WorkspaceDir is the directory managed work runs in by default.
	WorkspaceDir string

	HeartbeatInterval time.Duration
}

func Load() Config {
	return Config{
		DatabasePath:      getenv("FIELDHAND_DB_PATH", "fieldhand.db"),
		RedisAddr:         getenv("FIELDHAND_REDIS_ADDR", "localhost:6379"),
		QueueKey:          getenv("FIELDHAND_QUEUE", "fieldhand:jobs"),
		HTTPAddr:          getenv("FIELDHAND_HTTP_ADDR", ":8080"),
		WorkspaceDir:      getenv("FIELDHAND_WORKSPACE", "."),
		HeartbeatInterval: getduration("FIELDHAND_HEARTBEAT_INTERVAL", time.Minute),
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
