package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/seantiz/asyncops/internal/model"
	"github.com/seantiz/asyncops/internal/process"
)

const DelayPayloadType = "Delay"

const (
	defaultStepCount = 10
	defaultStepDelay = time.Second
)

// DelayPayload asks for StepCount steps of StepDelayMS milliseconds each.
type DelayPayload struct {
	model.PayloadBase
	StepDelayMS int64 `json:"step_delay_ms"`
	StepCount   int   `json:"step_count"`
}

// DelayProcessor sleeps through its steps, reporting each one.
type DelayProcessor struct {
	payload      *DelayPayload
	defaultDelay time.Duration
}

func (d *DelayProcessor) Execute(ctx context.Context, rt process.Runtime) error {
	steps := d.payload.StepCount
	if steps <= 0 {
		steps = defaultStepCount
	}
	delay := time.Duration(d.payload.StepDelayMS) * time.Millisecond
	if delay <= 0 {
		delay = d.defaultDelay
	}

	started := time.Now()
	for i := 1; i <= steps; i++ {
		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("delay step %d: %w", i, err)
		}
		if err := rt.PublishProgress(ctx, fmt.Sprintf("Step %d of %d", i, steps), i*100/steps); err != nil {
			return err
		}
		rt.Logger().Debug("delay step done", "step", i, "steps", steps)
	}

	elapsed := time.Since(started).Seconds()
	rt.SetResult(fmt.Sprintf("%.2f", elapsed), fmt.Sprintf("completed %d steps in %.2f seconds", steps, elapsed))
	return nil
}
