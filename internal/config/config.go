// Package config reads the dashboard configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr         string
	LogLevel     string
	LogConsole   bool
	EDRServerURL string

	// CacheBackend selects the session store: memory, lru or redis.
	CacheBackend string
	LRUSize      int
	RedisAddr    string
	RedisTTL     time.Duration

	RequestTimeout time.Duration
}

func FromEnv() Config {
	return Config{
		Addr:           getenv("ADDR", ":8093"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		EDRServerURL:   getenv("EDR_SERVER_URL", "http://localhost:8080/edr"),
		CacheBackend:   strings.ToLower(getenv("CACHE_BACKEND", "memory")),
		LRUSize:        getint("CACHE_LRU_SIZE", 1024),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		RedisTTL:       getduration("CACHE_TTL", 10*time.Minute),
		RequestTimeout: getduration("REQUEST_TIMEOUT", 60*time.Second),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
