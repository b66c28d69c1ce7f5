package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seantiz/asyncops/internal/model"
	"github.com/seantiz/asyncops/internal/process"
	"github.com/seantiz/asyncops/internal/store"
)

// Read-only projections over stored state. Storage errors other than
// store.ErrNotFound are wrapped with ErrStorage.

func (e *Engine) Operation(ctx context.Context, id string) (*model.Operation, error) {
	op, err := e.storage.Operations.Get(ctx, id)
	return op, wrapStorage(err)
}

// OperationPayload returns the payload submitted with operation id.
func (e *Engine) OperationPayload(ctx context.Context, id string) (model.Payload, error) {
	p, err := e.storage.Payloads.GetByOperationID(ctx, id)
	return p, wrapStorage(err)
}

func (e *Engine) Payload(ctx context.Context, id string) (model.Payload, error) {
	p, err := e.storage.Payloads.Get(ctx, id)
	return p, wrapStorage(err)
}

// OperationProgress returns the latest progress record of operation id.
func (e *Engine) OperationProgress(ctx context.Context, id string) (*model.Progress, error) {
	p, err := e.storage.Progress.GetByOperationID(ctx, id)
	return p, wrapStorage(err)
}

// OperationProgressHistory returns every progress record of operation id,
// oldest first. Each execution upserts one record, so this is usually a
// single entry.
func (e *Engine) OperationProgressHistory(ctx context.Context, id string) ([]*model.Progress, error) {
	list, err := e.storage.Progress.ListByOperationID(ctx, id)
	return list, wrapStorage(err)
}

// PayloadProgress returns the latest progress of the operation that owns
// payload id.
func (e *Engine) PayloadProgress(ctx context.Context, id string) (*model.Progress, error) {
	p, err := e.storage.Payloads.Get(ctx, id)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return e.OperationProgress(ctx, p.ParentID())
}

func (e *Engine) OperationResult(ctx context.Context, id string) (*model.Result, error) {
	r, err := e.storage.Results.GetByOperationID(ctx, id)
	return r, wrapStorage(err)
}

func (e *Engine) Operations(ctx context.Context, q store.OperationQuery) (*store.OperationPage, error) {
	page, err := e.storage.Operations.Query(ctx, q)
	return page, wrapStorage(err)
}

// LatestOperations returns up to count operations, newest first.
func (e *Engine) LatestOperations(ctx context.Context, count int, statuses []model.Status, ownerID string) ([]*model.Operation, error) {
	ops, err := e.storage.Operations.Latest(ctx, count, statuses, ownerID)
	return ops, wrapStorage(err)
}

func (e *Engine) RegisteredPayloads() []process.TypeInfo {
	return e.registry.List()
}

// ActiveProcesses returns a snapshot of executing operations, oldest first.
func (e *Engine) ActiveProcesses() []ActiveProcess {
	return e.active.list(time.Now().UTC())
}

func (e *Engine) ActiveProcess(id string) (ActiveProcess, bool) {
	ap, ok := e.active.get(id)
	if !ok {
		return ActiveProcess{}, false
	}
	return ap.snapshot(time.Now().UTC()), true
}

func wrapStorage(err error) error {
	if err == nil || errors.Is(err, store.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
