package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config is the process configuration, loaded from environment variables.
type Config struct {
	Port            string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// RedisAddr enables room lifecycle event publication when non-empty.
	RedisAddr string

	// JWTSecret enables room access token checks at the websocket
	// handshake when non-empty.
	JWTSecret string

	PersistDelay   time.Duration
	PersistTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		MongoURI:        getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnvOrDefault("CANVAS_DB_NAME", "canvas"),
		MongoCollection: getEnvOrDefault("CANVAS_COLLECTION", "canvases"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		JWTSecret:       os.Getenv("CANVAS_JWT_SECRET"),
	}

	var err error
	if cfg.PersistDelay, err = getDurationMs("PERSIST_DELAY_MS", 5000); err != nil {
		return nil, err
	}
	if cfg.PersistTimeout, err = getDurationMs("PERSIST_TIMEOUT_MS", 10000); err != nil {
		return nil, err
	}
	if cfg.MongoURI == "" {
		return nil, errors.New("MONGO_URI must not be empty")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationMs(key string, defaultMs int) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(defaultMs) * time.Millisecond, nil
	}
	ms, err := strconv.Atoi(value)
	if err != nil || ms <= 0 {
		return 0, errors.New(key + " must be a positive integer of milliseconds")
	}
	return time.Duration(ms) * time.Millisecond, nil
}
