// Package config loads runtime configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	MinPollInterval = 1 * time.Second
	MaxPollInterval = 60 * time.Second
)

type Config struct {
	DataDir       string
	LogLevel      string
	LogFormat     string
	MongoURI      string
	MongoDatabase string
	MetricsAddr   string

	// SyncInterval is the cadence of background sync passes while online.
	SyncInterval time.Duration
	// PendingPollInterval is how often the pending-operation count is
	// recomputed for the observable sync status.
	PendingPollInterval time.Duration
	// RemoteTimeout bounds each individual remote store call.
	RemoteTimeout time.Duration
	// ProbeTarget is the address dialed to detect connectivity.
	ProbeTarget   string
	ProbeInterval time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	poll := time.Duration(getEnvInt("PENDING_POLL_INTERVAL_SEC", 5)) * time.Second
	if poll < MinPollInterval {
		poll = MinPollInterval
	} else if poll > MaxPollInterval {
		poll = MaxPollInterval
	}

	return &Config{
		DataDir:             getEnv("DATA_DIR", "./data"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
		MongoURI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:       getEnv("MONGO_DATABASE", "wagebook"),
		MetricsAddr:         getEnv("METRICS_ADDR", ":9109"),
		SyncInterval:        time.Duration(getEnvInt("SYNC_INTERVAL_SEC", 300)) * time.Second,
		PendingPollInterval: poll,
		RemoteTimeout:       time.Duration(getEnvInt("REMOTE_TIMEOUT_SEC", 10)) * time.Second,
		ProbeTarget:         getEnv("PROBE_TARGET", "1.1.1.1:443"),
		ProbeInterval:       time.Duration(getEnvInt("PROBE_INTERVAL_SEC", 5)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
