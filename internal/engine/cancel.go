package engine

import (
	"context"
	"fmt"
	"time"
)

// CancelOptions modifies how Cancel reports and waits.
type CancelOptions struct {
	// ThrowIfCancellationRequested makes Cancel return
	// ErrCancellationRequested as soon as the signal is sent.
	ThrowIfCancellationRequested bool
	// WaitForCompletion blocks until the operation's worker has finished
	// recording its terminal state.
	WaitForCompletion bool
	// Timeout bounds WaitForCompletion. Zero waits indefinitely.
	Timeout time.Duration
}

// Cancel signals the active operation id to stop. Only executing operations
// can be canceled; anything else yields ErrOperationNotFound.
func (e *Engine) Cancel(ctx context.Context, id string, opts CancelOptions) error {
	ap, ok := e.active.take(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOperationNotFound, id)
	}
	ap.cancel()
	e.logger.Info("cancellation requested",
		"operation_id", id,
		"payload_type", ap.payloadType,
		"wait", opts.WaitForCompletion,
		"timeout", opts.Timeout,
	)

	if opts.ThrowIfCancellationRequested {
		return fmt.Errorf("operation %s: %w", id, ErrCancellationRequested)
	}
	if !opts.WaitForCompletion {
		return nil
	}

	var expired <-chan time.Time
	if opts.Timeout > 0 {
		t := time.NewTimer(opts.Timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case <-ap.done:
		return nil
	case <-expired:
		return fmt.Errorf("%w: operation %s after %s", ErrCancelTimeout, id, opts.Timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
