package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/asyncops/internal/store"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"LISTEN_ADDR", "LOG_LEVEL", "STORAGE", "DB_PATH", "WORKER_COUNT", "QUEUE_SIZE", "SHUTDOWN_TIMEOUT"} {
		t.Setenv(envPrefix+k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, defaultDBPath, cfg.DBPath)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.QueueSize)
	assert.Equal(t, defaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, store.DefaultMemoryOptions(), cfg.MemoryOptions())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AOS_LISTEN_ADDR", ":9090")
	t.Setenv("AOS_LOG_LEVEL", "debug")
	t.Setenv("AOS_STORAGE", "SQLite")
	t.Setenv("AOS_DB_PATH", "/tmp/test.db")
	t.Setenv("AOS_WORKER_COUNT", "8")
	t.Setenv("AOS_QUEUE_SIZE", "16")
	t.Setenv("AOS_PAYLOAD_LIMITS", "Report:1,Delay:3,Broken:0")
	t.Setenv("AOS_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("AOS_MEMORY_MAX_OPERATIONS", "50")
	t.Setenv("AOS_MEMORY_CLEANUP_STRATEGY", "remove-failed-first")
	t.Setenv("AOS_MEMORY_AUTO_CLEANUP", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)

	opts := cfg.EngineOptions()
	assert.Equal(t, 8, opts.WorkerCount)
	assert.Equal(t, 16, opts.QueueSize)
	assert.Equal(t, map[string]int{"Report": 1, "Delay": 3}, opts.PayloadLimits)

	mem := cfg.MemoryOptions()
	assert.Equal(t, 50, mem.MaxOperations)
	assert.Equal(t, store.CleanupRemoveFailedFirst, mem.Strategy)
	assert.False(t, mem.AutoCleanup)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"AOS_WORKER_COUNT", "many"},
		{"AOS_SHUTDOWN_TIMEOUT", "soon"},
		{"AOS_MEMORY_CLEANUP_STRATEGY", "remove-everything"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err, "%s=%q", tt.key, tt.value)
		})
	}
}

func TestSanitize(t *testing.T) {
	cfg := Config{
		Storage:       "postgres",
		WorkerCount:   -1,
		QueueSize:     0,
		PayloadLimits: map[string]int{"Report": -2},
		Memory:        MemoryConfig{CleanupBatch: -5, CleanupThreshold: 1.5},
	}
	cfg.Sanitize()

	assert.Equal(t, defaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.QueueSize)
	assert.Empty(t, cfg.PayloadLimits)
	assert.Equal(t, 0, cfg.Memory.CleanupBatch)
	assert.Equal(t, defaultThreshold, cfg.Memory.CleanupThreshold)
	assert.Equal(t, defaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.input), "parseLogLevel(%q)", tt.input)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("visible", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output is not a single JSON line: %q", buf.String())
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}
