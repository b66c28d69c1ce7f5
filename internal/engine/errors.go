package engine

import (
	"context"
	"errors"
	"fmt"
)

// Admission and cancellation errors.
var (
	// ErrQueueFull means the queue has no capacity left. Retryable.
	ErrQueueFull = errors.New("operation queue is full")
	// ErrPayloadTypeLimitExceeded means the payload type is at its concurrency ceiling. Retryable.
	ErrPayloadTypeLimitExceeded = errors.New("payload type concurrency limit exceeded")
	// ErrProcessNotFound means no processor is registered for the payload type.
	ErrProcessNotFound = errors.New("no processor registered for payload type")
	// ErrOperationNotFound means the operation is not active: it finished or never existed.
	ErrOperationNotFound = errors.New("active operation not found")
	// ErrStorage marks persistence failures, including failed admission rollbacks.
	ErrStorage = errors.New("operation storage failure")
	// ErrCancelTimeout means a canceled operation did not finish within the wait timeout.
	ErrCancelTimeout = errors.New("timed out waiting for canceled operation")
	// ErrInvalidPayload means the payload cannot be admitted as given.
	ErrInvalidPayload = errors.New("invalid payload")

	ErrEngineStopped = errors.New("engine stopped")
	ErrEngineRunning = errors.New("engine already running")
	ErrStopTimeout   = errors.New("timed out waiting for workers to stop")
)

// ErrCancellationRequested is returned by Cancel when the caller asked for
// cancellation to be surfaced as an error. It matches context.Canceled.
var ErrCancellationRequested = fmt.Errorf("cancellation requested: %w", context.Canceled)

// PanicError records a panic raised by a processor.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("processor panicked: %v", e.Value)
}
