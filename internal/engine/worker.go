package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

func (e *Engine) worker(ctx context.Context, n int) error {
	logger := e.logger.With("worker", n)
	logger.Debug("worker started")
	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopping")
			return nil
		case item := <-e.queue:
			e.dispatch(ctx, item)
		}
	}
}

// dispatch drives one dequeued item to completion. The queue capacity permit
// taken at admission, and the payload slot if one was taken, are returned
// before anyone waiting on the operation is released, and on every path out
// of here.
func (e *Engine) dispatch(poolCtx context.Context, item *queueItem) {
	var releaseSlot func()
	release := sync.OnceFunc(func() {
		if releaseSlot != nil {
			releaseSlot()
		}
		e.capacity.Release()
		queueInFlight.Dec()
	})
	defer release()

	logger := e.logger.With("operation_id", item.operationID, "payload_type", item.payloadType)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker recovered from panic", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	if poolCtx.Err() != nil {
		logger.Debug("engine stopping; operation stays pending")
		return
	}

	op, err := e.storage.Operations.Get(context.WithoutCancel(poolCtx), item.operationID)
	if err != nil {
		e.drop(item, logger, "operation could not be loaded", "error", err)
		return
	}

	entry, ok := e.registry.Lookup(item.payloadType)
	if !ok {
		e.drop(item, logger, "no processor registered")
		return
	}

	if g, limited := e.limits[item.payloadType]; limited {
		if err := g.Acquire(poolCtx); err != nil {
			logger.Warn("engine stopping before a payload slot freed up; operation stays pending", "error", err)
			return
		}
		releaseSlot = g.Release
	}

	proc, err := entry.NewProcessor(item.payload)
	if err != nil {
		e.drop(item, logger, "processor could not be built", "process_type", entry.ProcessType, "error", err)
		return
	}

	jobCtx, cancel := context.WithCancel(poolCtx)
	defer cancel()

	ap := newActiveProcess(op, item.payload, entry, cancel)
	if !e.active.add(ap) {
		// The topic belongs to the execution already running under this id.
		logger.Error("dropping item: operation is already active")
		operationsDropped.WithLabelValues(item.payloadType).Inc()
		return
	}
	defer func() {
		if !e.active.remove(ap) {
			logger.Debug("active process already taken by cancel")
		}
		release()
		e.broker.Close(op.ID)
		close(ap.done)
	}()

	ex := newExecution(e, op, item.payload, ap, logger.With("process_type", entry.ProcessType))
	ex.run(jobCtx, proc)
}

// drop discards an item that can never run and ends any progress stream
// waiting on it.
func (e *Engine) drop(item *queueItem, logger *slog.Logger, reason string, args ...any) {
	logger.Error("dropping item: "+reason, args...)
	operationsDropped.WithLabelValues(item.payloadType).Inc()
	e.broker.Close(item.operationID)
}
