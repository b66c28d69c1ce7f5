package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seantiz/asyncops/internal/model"
)

// PublishOptions selects blocking or fail-fast admission.
type PublishOptions struct {
	// WaitForQueueSpace blocks until the queue has room instead of failing
	// with ErrQueueFull.
	WaitForQueueSpace bool
	// WaitForPayloadSlot skips the fail-fast check of the payload type's
	// concurrency limit. The slot itself is always acquired by the worker.
	WaitForPayloadSlot bool
}

// Publish persists p with a new pending operation and queues it for
// execution. The returned operation is the stored record.
func (e *Engine) Publish(ctx context.Context, p model.Payload, opts PublishOptions) (*model.Operation, error) {
	if p == nil {
		operationsRejected.WithLabelValues(unknownPayloadType, reasonInvalid).Inc()
		return nil, fmt.Errorf("%w: payload is nil", ErrInvalidPayload)
	}
	if e.isStopped() {
		operationsRejected.WithLabelValues(unknownPayloadType, reasonStopped).Inc()
		return nil, ErrEngineStopped
	}

	base := p.Base()
	typeName := base.PayloadType
	if typeName == "" {
		if name, ok := e.registry.NameOf(p); ok {
			typeName = name
		}
	}

	entry, ok := e.registry.Lookup(typeName)
	if !ok {
		operationsRejected.WithLabelValues(labelType(typeName), reasonNoProcessor).Inc()
		return nil, fmt.Errorf("%w: %q", ErrProcessNotFound, typeName)
	}
	if !entry.Accepts(p) {
		operationsRejected.WithLabelValues(typeName, reasonInvalid).Inc()
		return nil, fmt.Errorf("%w: %T is not registered as %q", ErrInvalidPayload, p, typeName)
	}

	now := time.Now().UTC()
	base.ID = model.NewIDAt(now)
	base.PayloadType = typeName
	base.CreatedAt = now
	if base.Name == "" {
		base.Name = typeName
	}
	op := model.NewOperation(p, now)

	// Best-effort prechecks; neither reserves anything.
	if g, limited := e.limits[typeName]; limited && !opts.WaitForPayloadSlot && g.Available() <= 0 {
		operationsRejected.WithLabelValues(typeName, reasonTypeLimit).Inc()
		return nil, fmt.Errorf("%w: %q", ErrPayloadTypeLimitExceeded, typeName)
	}
	if !opts.WaitForQueueSpace && e.capacity.Available() <= 0 {
		operationsRejected.WithLabelValues(typeName, reasonQueueFull).Inc()
		return nil, ErrQueueFull
	}

	stored, err := e.storage.Operations.Create(ctx, op)
	if err != nil {
		operationsRejected.WithLabelValues(typeName, reasonStorage).Inc()
		return nil, fmt.Errorf("%w: create operation: %w", ErrStorage, err)
	}
	if _, err := e.storage.Payloads.Create(ctx, p); err != nil {
		operationsRejected.WithLabelValues(typeName, reasonStorage).Inc()
		if rerr := e.storage.Operations.Remove(context.WithoutCancel(ctx), op.ID); rerr != nil {
			e.logger.Error("failed to remove operation after payload write failed",
				"operation_id", op.ID, "error", rerr)
			return nil, fmt.Errorf("%w: create payload: %w (rollback of operation %s failed: %w)", ErrStorage, err, op.ID, rerr)
		}
		return nil, fmt.Errorf("%w: create payload: %w", ErrStorage, err)
	}

	if opts.WaitForQueueSpace {
		if err := e.acquireCapacity(ctx); err != nil {
			reason := reasonCanceled
			if errors.Is(err, ErrEngineStopped) {
				reason = reasonStopped
			}
			return nil, e.rejectAfterWrite(ctx, op, p, reason, err)
		}
	} else if !e.capacity.TryAcquire() {
		return nil, e.rejectAfterWrite(ctx, op, p, reasonQueueFull, ErrQueueFull)
	}
	queueInFlight.Inc()

	item := &queueItem{operationID: op.ID, payload: p, payloadType: typeName}
	if err := e.enqueue(ctx, item, opts.WaitForQueueSpace); err != nil {
		e.capacity.Release()
		queueInFlight.Dec()
		reason := reasonQueueFull
		switch {
		case errors.Is(err, ErrEngineStopped):
			reason = reasonStopped
		case ctx.Err() != nil:
			reason = reasonCanceled
		}
		return nil, e.rejectAfterWrite(ctx, op, p, reason, err)
	}

	operationsPublished.WithLabelValues(typeName).Inc()
	e.logger.Info("operation published",
		"operation_id", op.ID,
		"payload_id", base.ID,
		"payload_type", typeName,
		"process_type", entry.ProcessType,
		"owner_id", op.OwnerID,
	)
	return stored, nil
}

// acquireCapacity waits for a queue permit until ctx ends or the engine
// stops. Items stranded in the queue by Stop never return their permits.
func (e *Engine) acquireCapacity(ctx context.Context) error {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopWatch := context.AfterFunc(e.stopCtx, cancel)
	defer stopWatch()

	if err := e.capacity.Acquire(waitCtx); err != nil {
		if ctx.Err() == nil && e.isStopped() {
			return ErrEngineStopped
		}
		return err
	}
	return nil
}

func (e *Engine) enqueue(ctx context.Context, item *queueItem, wait bool) error {
	if !wait {
		select {
		case e.queue <- item:
			return nil
		default:
			return ErrQueueFull
		}
	}
	select {
	case e.queue <- item:
		return nil
	case <-e.stopCtx.Done():
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// rejectAfterWrite removes the records persisted for a publish that could
// not be queued. A failed rollback is reported as ErrStorage instead of
// cause, since storage is now inconsistent.
func (e *Engine) rejectAfterWrite(ctx context.Context, op *model.Operation, p model.Payload, reason string, cause error) error {
	operationsRejected.WithLabelValues(op.PayloadType, reason).Inc()

	dctx := context.WithoutCancel(ctx)
	err := errors.Join(
		e.storage.Payloads.Remove(dctx, p.RecordID()),
		e.storage.Operations.Remove(dctx, op.ID),
	)
	if err != nil {
		e.logger.Error("rollback of rejected publish failed",
			"operation_id", op.ID, "cause", cause, "error", err)
		return fmt.Errorf("%w: rollback of operation %s failed: %w", ErrStorage, op.ID, err)
	}
	return cause
}

func labelType(name string) string {
	if name == "" {
		return unknownPayloadType
	}
	return name
}
