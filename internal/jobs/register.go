package jobs

import (
	"context"
	"time"

	"github.com/seantiz/asyncops/internal/process"
)

// Options tunes the sample processors.
type Options struct {
	// DefaultStepDelay is used by Delay payloads that leave step_delay_ms unset.
	DefaultStepDelay time.Duration
}

// Register adds every sample payload type to reg.
func Register(reg *process.Registry) error {
	return RegisterWith(reg, Options{})
}

// RegisterWith is Register with explicit options.
func RegisterWith(reg *process.Registry, opts Options) error {
	if opts.DefaultStepDelay <= 0 {
		opts.DefaultStepDelay = defaultStepDelay
	}
	if err := process.Register(reg, DelayPayloadType, "DelayProcessor",
		func() *DelayPayload { return &DelayPayload{} },
		func(p *DelayPayload) process.Processor {
			return &DelayProcessor{payload: p, defaultDelay: opts.DefaultStepDelay}
		},
	); err != nil {
		return err
	}
	return process.Register(reg, ReportPayloadType, "ReportProcessor",
		func() *ReportPayload { return &ReportPayload{} },
		func(p *ReportPayload) process.Processor { return &ReportProcessor{payload: p} },
	)
}

// sleep waits for d or until ctx is done, returning ctx's error in that case.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
