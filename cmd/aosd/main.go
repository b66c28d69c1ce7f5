package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/seantiz/asyncops/internal/api"
	"github.com/seantiz/asyncops/internal/config"
	"github.com/seantiz/asyncops/internal/engine"
	"github.com/seantiz/asyncops/internal/jobs"
	"github.com/seantiz/asyncops/internal/process"
	"github.com/seantiz/asyncops/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run wires the service and blocks until the HTTP server exits. Every
// resource it opens is closed before it returns.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.Level())

	logger.Info("aosd: starting",
		"listen_addr", cfg.ListenAddr,
		"storage", cfg.Storage,
		"worker_count", cfg.WorkerCount,
		"queue_size", cfg.QueueSize,
	)

	reg := process.NewRegistry(logger)
	if err := jobs.Register(reg); err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}
	if dropped := reg.Validate(); len(dropped) > 0 {
		logger.Warn("unpaired payload types dropped", "payload_types", dropped)
	}

	var storage *store.Storage
	switch cfg.Storage {
	case config.StorageSQLite:
		db, err := store.NewSQLiteStore(cfg.DBPath, store.WithPayloadDecoder(reg.Decode))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		storage = db.Storage()
		logger.Info("using sqlite storage", "db_path", cfg.DBPath)
	default:
		storage = store.NewMemoryStorage(cfg.MemoryOptions())
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Error("close storage", "error", err)
		}
	}()

	eng := engine.New(cfg.EngineOptions(), storage, reg, logger)
	if err := eng.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	srv := api.NewServer(cfg.ListenAddr, eng, logger)
	runErr := srv.Run()

	if err := eng.Stop(cfg.ShutdownTimeout); err != nil {
		logger.Error("engine stop", "error", err)
	}
	if runErr != nil {
		return fmt.Errorf("server error: %w", runErr)
	}
	return nil
}
