package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seantiz/asyncops/internal/model"
	"github.com/seantiz/asyncops/internal/process"
	"github.com/seantiz/asyncops/internal/store"
)

// Defaults applied by New when Options leaves a field unset.
const (
	DefaultWorkerCount = 4
	DefaultQueueSize   = 100
)

// Options configures an Engine.
type Options struct {
	WorkerCount int
	QueueSize   int
	// PayloadLimits caps concurrent executions per payload type name. Types
	// without an entry, or with a value of zero or less, are unlimited.
	PayloadLimits map[string]int
}

func (o Options) withDefaults() Options {
	if o.WorkerCount <= 0 {
		o.WorkerCount = DefaultWorkerCount
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	limits := make(map[string]int, len(o.PayloadLimits))
	for name, n := range o.PayloadLimits {
		if n > 0 {
			limits[name] = n
		}
	}
	o.PayloadLimits = limits
	return o
}

type engineState int

const (
	stateCreated engineState = iota
	stateRunning
	stateStopped
)

// queueItem is one admitted payload waiting for a worker.
type queueItem struct {
	operationID string
	payload     model.Payload
	payloadType string
}

// Engine runs published payloads on a fixed worker pool.
type Engine struct {
	opts     Options
	storage  *store.Storage
	registry *process.Registry
	logger   *slog.Logger
	broker   *ProgressBroker

	queue    chan *queueItem
	capacity *gate
	limits   map[string]*gate
	active   activeRegistry

	// stopCtx is canceled when Stop is called.
	stopCtx context.Context
	stop    context.CancelFunc

	mu        sync.Mutex
	state     engineState
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates an engine. Call Start to begin executing operations; payloads
// published before Start wait in the queue.
func New(opts Options, s *store.Storage, reg *process.Registry, logger *slog.Logger) *Engine {
	opts = opts.withDefaults()

	limits := make(map[string]*gate, len(opts.PayloadLimits))
	for name, n := range opts.PayloadLimits {
		limits[name] = newGate(n)
	}

	stopCtx, stop := context.WithCancel(context.Background())
	return &Engine{
		opts:     opts,
		storage:  s,
		registry: reg,
		logger:   logger.With("component", "engine"),
		broker:   NewProgressBroker(),
		queue:    make(chan *queueItem, opts.QueueSize),
		capacity: newGate(opts.QueueSize),
		limits:   limits,
		stopCtx:  stopCtx,
		stop:     stop,
	}
}

// Broker returns the engine's progress broker for SSE subscription.
func (e *Engine) Broker() *ProgressBroker {
	return e.broker
}

// Registry returns the type registry the engine routes payloads through.
func (e *Engine) Registry() *process.Registry {
	return e.registry
}

// Storage returns the repositories the engine persists to.
func (e *Engine) Storage() *store.Storage {
	return e.storage
}

// Start launches the worker pool. Canceling ctx has the same effect on
// running operations as Stop, except that Stop must still be called to
// release the engine.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateRunning:
		return ErrEngineRunning
	case stateStopped:
		return ErrEngineStopped
	}

	poolCtx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(poolCtx)
	for i := range e.opts.WorkerCount {
		group.Go(func() error {
			return e.worker(gctx, i)
		})
	}

	done := make(chan struct{})
	go func() {
		if err := group.Wait(); err != nil {
			e.logger.Error("worker pool exited with error", "error", err)
		}
		close(done)
	}()

	e.state = stateRunning
	e.startedAt = time.Now().UTC()
	e.cancel = cancel
	e.done = done

	e.logger.Info("engine started",
		"worker_count", e.opts.WorkerCount,
		"queue_size", e.opts.QueueSize,
		"payload_limits", e.opts.PayloadLimits,
		"storage", e.storage.Name,
	)
	return nil
}

// Stop cancels every running operation and waits up to timeout for the
// workers to exit. A timeout of zero waits indefinitely. Operations still
// queued remain pending in storage.
func (e *Engine) Stop(timeout time.Duration) error {
	e.mu.Lock()
	prev := e.state
	if prev == stateStopped {
		e.mu.Unlock()
		return nil
	}
	e.state = stateStopped
	e.stop()
	done := e.done
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	// Queued items never reach a worker now, so their progress topics
	// would otherwise stay open.
	defer e.broker.Shutdown()

	if prev == stateCreated {
		return nil
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case <-done:
		e.logger.Info("engine stopped", "pending_in_queue", len(e.queue))
		return nil
	case <-expired:
		e.logger.Warn("engine stop timed out", "timeout", timeout, "active", e.active.count())
		return fmt.Errorf("%w after %s", ErrStopTimeout, timeout)
	}
}

func (e *Engine) isStopped() bool {
	return e.stopCtx.Err() != nil
}

// Info is a snapshot of the engine's configuration and load.
type Info struct {
	Running            bool             `json:"running"`
	StartedAt          *time.Time       `json:"started_at,omitempty"`
	WorkerCount        int              `json:"worker_count"`
	QueueSize          int              `json:"queue_size"`
	CurrentQueueSize   int              `json:"current_queue_size"`
	QueuePercentUsage  int              `json:"queue_percent_usage"`
	InFlight           int64            `json:"in_flight"`
	ActiveProcessCount int              `json:"active_process_count"`
	PayloadLimits      map[string]int   `json:"payload_limits"`
	PayloadSlotsFree   map[string]int64 `json:"payload_slots_free"`
	StorageType        string           `json:"storage_type"`
}

// Info reports the engine's current configuration and load.
func (e *Engine) Info() Info {
	e.mu.Lock()
	running := e.state == stateRunning
	var startedAt *time.Time
	if !e.startedAt.IsZero() {
		t := e.startedAt
		startedAt = &t
	}
	e.mu.Unlock()

	queued := len(e.queue)
	info := Info{
		Running:            running,
		StartedAt:          startedAt,
		WorkerCount:        e.opts.WorkerCount,
		QueueSize:          e.opts.QueueSize,
		CurrentQueueSize:   queued,
		QueuePercentUsage:  int(math.Round(float64(queued) / float64(e.opts.QueueSize) * 100)),
		InFlight:           e.capacity.Held(),
		ActiveProcessCount: e.active.count(),
		PayloadLimits:      maps.Clone(e.opts.PayloadLimits),
		PayloadSlotsFree:   make(map[string]int64, len(e.limits)),
		StorageType:        e.storage.Name,
	}
	for name, g := range e.limits {
		info.PayloadSlotsFree[name] = g.Available()
	}
	return info
}
