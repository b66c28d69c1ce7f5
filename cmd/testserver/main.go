// testserver starts the API over in-memory storage with short job delays for
// manual and end-to-end testing.
// Usage: go run ./cmd/testserver
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/seantiz/asyncops/internal/api"
	"github.com/seantiz/asyncops/internal/engine"
	"github.com/seantiz/asyncops/internal/jobs"
	"github.com/seantiz/asyncops/internal/process"
	"github.com/seantiz/asyncops/internal/store"
)

func main() {
	addr := ":8080"
	if v := os.Getenv("AOS_LISTEN_ADDR"); v != "" {
		addr = v
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	reg := process.NewRegistry(logger)
	if err := jobs.RegisterWith(reg, jobs.Options{DefaultStepDelay: 100 * time.Millisecond}); err != nil {
		log.Fatalf("failed to register jobs: %v", err)
	}
	reg.Validate()

	eng := engine.New(engine.Options{
		WorkerCount:   2,
		QueueSize:     10,
		PayloadLimits: map[string]int{jobs.ReportPayloadType: 1},
	}, store.NewMemoryStorage(store.DefaultMemoryOptions()), reg, logger)
	if err := eng.Start(context.Background()); err != nil {
		log.Fatalf("failed to start engine: %v", err)
	}
	defer eng.Stop(5 * time.Second)

	srv := api.NewServer(addr, eng, logger)

	logger.Info("testserver: starting", "addr", addr)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
