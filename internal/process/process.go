package process

import (
	"context"
	"log/slog"

	"github.com/seantiz/asyncops/internal/model"
	"github.com/seantiz/asyncops/internal/store"
)

// Processor is the interface that all job implementations must satisfy.
type Processor interface {
	// Execute runs the job. The context is canceled when the operation is
	// canceled or the engine stops; Execute should return promptly after that,
	// ideally with an error wrapping context.Canceled.
	Execute(ctx context.Context, rt Runtime) error
}

// AfterExecutor is an optional hook run once the operation has reached its
// terminal state, whatever the outcome.
type AfterExecutor interface {
	AfterExecute(ctx context.Context, rt Runtime)
}

// Runtime gives a running processor access to its operation and to the engine.
type Runtime interface {
	// Operation returns a snapshot of the operation being executed.
	Operation() model.Operation
	Payload() model.Payload
	Storage() *store.Storage
	Logger() *slog.Logger

	// PublishProgress records the current progress of the operation. Percent
	// is clamped to [0, 100].
	PublishProgress(ctx context.Context, message string, percent int) error

	// SetResult sets the value persisted when the operation completes.
	SetResult(value, message string)
}

// Factory builds a processor for one payload instance.
type Factory func(p model.Payload) (Processor, error)
