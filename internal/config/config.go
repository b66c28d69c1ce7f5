package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/seantiz/asyncops/internal/engine"
	"github.com/seantiz/asyncops/internal/store"
)

const envPrefix = "AOS_"

// Storage backends selectable with AOS_STORAGE.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

const (
	defaultListenAddr      = ":8080"
	defaultDBPath          = "asyncops.db"
	defaultShutdownTimeout = 10 * time.Second
	defaultThreshold       = 0.9
)

// Config holds application configuration loaded from environment variables.
// Every variable carries the AOS_ prefix.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// Storage selects the backend: "memory" or "sqlite".
	Storage string `env:"STORAGE" envDefault:"memory"`
	DBPath  string `env:"DB_PATH" envDefault:"asyncops.db"`

	WorkerCount int `env:"WORKER_COUNT" envDefault:"4"`
	QueueSize   int `env:"QUEUE_SIZE" envDefault:"100"`
	// PayloadLimits is a comma separated list of Type:N pairs.
	PayloadLimits map[string]int `env:"PAYLOAD_LIMITS"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Memory MemoryConfig `envPrefix:"MEMORY_"`
}

// MemoryConfig tunes the in-memory backend's capacity guard.
type MemoryConfig struct {
	MaxOperations    int     `env:"MAX_OPERATIONS" envDefault:"100"`
	MaxPayloads      int     `env:"MAX_PAYLOADS" envDefault:"100"`
	MaxProgress      int     `env:"MAX_PROGRESS" envDefault:"1000"`
	MaxResults       int     `env:"MAX_RESULTS" envDefault:"100"`
	CleanupStrategy  string  `env:"CLEANUP_STRATEGY" envDefault:"remove-oldest"`
	CleanupBatch     int     `env:"CLEANUP_BATCH"`
	AutoCleanup      bool    `env:"AUTO_CLEANUP" envDefault:"true"`
	CleanupThreshold float64 `env:"CLEANUP_THRESHOLD" envDefault:"0.9"`
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if _, err := store.ParseCleanupStrategy(cfg.Memory.CleanupStrategy); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// Sanitize replaces out-of-range values with defaults.
func (c *Config) Sanitize() {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	if c.Storage != StorageSQLite {
		c.Storage = StorageMemory
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = engine.DefaultWorkerCount
	}
	if c.QueueSize <= 0 {
		c.QueueSize = engine.DefaultQueueSize
	}
	for name, n := range c.PayloadLimits {
		if n <= 0 {
			delete(c.PayloadLimits, name)
		}
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Memory.CleanupBatch < 0 {
		c.Memory.CleanupBatch = 0
	}
	if c.Memory.CleanupThreshold <= 0 || c.Memory.CleanupThreshold > 1 {
		c.Memory.CleanupThreshold = defaultThreshold
	}
}

// Level returns the configured log level.
func (c Config) Level() slog.Level {
	return parseLogLevel(c.LogLevel)
}

func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		WorkerCount:   c.WorkerCount,
		QueueSize:     c.QueueSize,
		PayloadLimits: c.PayloadLimits,
	}
}

func (c Config) MemoryOptions() store.MemoryOptions {
	// Load has already validated the strategy.
	strategy, _ := store.ParseCleanupStrategy(c.Memory.CleanupStrategy)
	return store.MemoryOptions{
		MaxOperations: c.Memory.MaxOperations,
		MaxPayloads:   c.Memory.MaxPayloads,
		MaxProgress:   c.Memory.MaxProgress,
		MaxResults:    c.Memory.MaxResults,
		Strategy:      strategy,
		BatchSize:     c.Memory.CleanupBatch,
		AutoCleanup:   c.Memory.AutoCleanup,
		Threshold:     c.Memory.CleanupThreshold,
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
