package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/seantiz/asyncops/internal/model"
	"github.com/seantiz/asyncops/internal/process"
	"github.com/seantiz/asyncops/internal/store"
)

const canceledMessage = "operation was canceled"

// execution drives one operation through its state machine and is the
// process.Runtime handed to the processor.
type execution struct {
	engine  *Engine
	payload model.Payload
	ap      *activeProcess
	logger  *slog.Logger

	mu            sync.Mutex
	op            *model.Operation
	progress      model.Progress
	resultValue   string
	resultMessage string
}

var _ process.Runtime = (*execution)(nil)

func newExecution(e *Engine, op *model.Operation, p model.Payload, ap *activeProcess, logger *slog.Logger) *execution {
	return &execution{
		engine:  e,
		payload: p,
		ap:      ap,
		logger:  logger,
		op:      op.Clone(),
		progress: model.Progress{
			ID:          model.NewID(),
			OperationID: op.ID,
			OwnerID:     op.OwnerID,
		},
	}
}

func (x *execution) run(ctx context.Context, proc process.Processor) {
	persistCtx := context.WithoutCancel(ctx)

	if hook, ok := proc.(process.AfterExecutor); ok {
		defer x.afterExecute(persistCtx, hook)
	}

	start := time.Now()
	err := x.begin(persistCtx)
	if err == nil {
		err = x.invoke(ctx, proc)
	}
	x.finish(persistCtx, time.Since(start), err)
}

// begin moves the operation to Running and writes its initial progress.
func (x *execution) begin(ctx context.Context) error {
	x.mu.Lock()
	now := time.Now().UTC()
	if err := x.op.Transition(model.StatusRunning); err != nil {
		x.mu.Unlock()
		return err
	}
	x.op.StartedAt = &now
	op := x.op.Clone()
	x.progress.Status = model.StatusRunning
	x.progress.Message = string(model.StatusRunning)
	x.progress.Percent = 0
	x.progress.CreatedAt = now
	progress := x.progress
	x.mu.Unlock()

	if _, err := x.engine.storage.Operations.Update(ctx, op); err != nil {
		return fmt.Errorf("%w: mark operation running: %w", ErrStorage, err)
	}
	if err := x.saveProgress(ctx, progress); err != nil {
		return err
	}
	x.ap.update(progress.Status, progress.Percent, progress.Message, op.StartedAt)
	x.logger.Info("operation started")
	return nil
}

func (x *execution) invoke(ctx context.Context, proc process.Processor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return proc.Execute(ctx, x)
}

// finish records the terminal status. Progress is written last so that it
// converges to the operation's terminal status before the hook runs.
func (x *execution) finish(ctx context.Context, elapsed time.Duration, err error) {
	now := time.Now().UTC()

	x.mu.Lock()
	var (
		target model.Status
		result *model.Result
	)
	switch {
	case err == nil:
		target = model.StatusCompleted
	case errors.Is(err, context.Canceled):
		target = model.StatusCanceled
	default:
		target = model.StatusFailed
	}
	if terr := x.op.Transition(target); terr != nil {
		x.mu.Unlock()
		x.logger.Error("operation cannot be finished", "error", terr, "cause", err)
		return
	}

	x.op.ExecutionTimeMS = elapsed.Milliseconds()
	switch target {
	case model.StatusCompleted:
		x.op.CompletedAt = &now
		result = &model.Result{
			ID:          model.NewID(),
			OperationID: x.op.ID,
			OwnerID:     x.op.OwnerID,
			Value:       x.resultValue,
			Message:     x.resultMessage,
			CreatedAt:   now,
		}
	case model.StatusCanceled:
		x.op.CanceledAt = &now
		x.op.FailedAt = &now
		x.op.ErrorMessage = canceledMessage
	default:
		x.op.FailedAt = &now
		x.op.ErrorMessage = err.Error()
		if inner := errors.Unwrap(err); inner != nil {
			x.op.InnerErrorMessage = inner.Error()
		}
		var pe *PanicError
		if errors.As(err, &pe) {
			x.op.ErrorStackTrace = pe.Stack
		}
	}
	op := x.op.Clone()
	x.progress.Status = op.Status
	progress := x.progress
	x.mu.Unlock()

	if result != nil {
		if _, rerr := x.engine.storage.Results.Create(ctx, result); rerr != nil {
			x.logger.Error("failed to persist result", "error", rerr)
		}
	}
	if _, uerr := x.engine.storage.Operations.Update(ctx, op); uerr != nil {
		x.logger.Error("failed to persist terminal status", "status", op.Status, "error", uerr)
	}
	if perr := x.saveProgress(ctx, progress); perr != nil {
		x.logger.Error("failed to persist terminal progress", "status", op.Status, "error", perr)
	}
	x.ap.update(progress.Status, progress.Percent, progress.Message, nil)

	operationsFinished.WithLabelValues(op.PayloadType, string(op.Status)).Inc()
	operationDuration.WithLabelValues(op.PayloadType).Observe(elapsed.Seconds())

	attrs := []any{"status", op.Status, "execution_time_ms", op.ExecutionTimeMS}
	switch op.Status {
	case model.StatusCompleted:
		x.logger.Info("operation completed", attrs...)
	case model.StatusCanceled:
		x.logger.Warn("operation canceled", attrs...)
	default:
		x.logger.Error("operation failed", append(attrs, "error", err)...)
	}
}

func (x *execution) afterExecute(ctx context.Context, hook process.AfterExecutor) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("after-execute hook panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	hook.AfterExecute(ctx, x)
}

func (x *execution) saveProgress(ctx context.Context, p model.Progress) error {
	if _, err := x.engine.storage.Progress.Upsert(ctx, &p); err != nil {
		return fmt.Errorf("%w: save progress: %w", ErrStorage, err)
	}
	x.engine.broker.Publish(p)
	return nil
}

func (x *execution) Operation() model.Operation {
	x.mu.Lock()
	defer x.mu.Unlock()
	return *x.op.Clone()
}

func (x *execution) Payload() model.Payload  { return x.payload }
func (x *execution) Storage() *store.Storage { return x.engine.storage }
func (x *execution) Logger() *slog.Logger    { return x.logger }

func (x *execution) PublishProgress(ctx context.Context, message string, percent int) error {
	percent = min(max(percent, 0), 100)

	x.mu.Lock()
	x.progress.Status = x.op.Status
	x.progress.Message = message
	x.progress.Percent = percent
	progress := x.progress
	x.mu.Unlock()

	if err := x.saveProgress(context.WithoutCancel(ctx), progress); err != nil {
		return err
	}
	x.ap.update(progress.Status, progress.Percent, progress.Message, nil)
	return nil
}

func (x *execution) SetResult(value, message string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.resultValue = value
	x.resultMessage = message
}
