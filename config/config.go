// Package config resolves the process-level tunables for the supervisor
// from the environment, with an optional .env file loaded first. The wire
// protocol itself is never configured here.
package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config is the resolved set of tunables.
type Config struct {
	// PollInterval is the period of the resource poll ticker.
	PollInterval time.Duration
	// DrainGrace bounds how long the supervisor waits for duplicate
	// stream relays to drain after the child is reaped.
	DrainGrace time.Duration
	// Debug enables stderr tracing.
	Debug bool
}

// Defaults used when the environment does not override a tunable.
const (
	DefaultPollInterval = 300 * time.Millisecond
	DefaultDrainGrace   = time.Second
)

var (
	cfg  Config
	once sync.Once
)

// Load resolves the configuration once per process. A missing .env file
// is fine; malformed values fall back to their defaults with a warning.
func Load() Config {
	once.Do(func() {
		_ = godotenv.Load()
		cfg = Config{
			PollInterval: durationEnv("TIMEIT_POLL_INTERVAL", DefaultPollInterval),
			DrainGrace:   durationEnv("TIMEIT_DRAIN_GRACE", DefaultDrainGrace),
			Debug:        boolEnv("TIMEIT_DEBUG"),
		}
	})
	return cfg
}

func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("config: ignoring %s=%q, using %v", key, v, def)
		return def
	}
	return d
}

func boolEnv(key string) bool {
	v := os.Getenv(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("config: ignoring %s=%q", key, v)
		return false
	}
	return b
}
