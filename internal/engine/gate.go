package engine

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// gate is a counting semaphore that can report its free permits.
type gate struct {
	sem  *semaphore.Weighted
	size int64
	held atomic.Int64
}

func newGate(size int) *gate {
	return &gate{sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

func (g *gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.held.Add(1)
	return nil
}

func (g *gate) TryAcquire() bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.held.Add(1)
	return true
}

func (g *gate) Release() {
	g.held.Add(-1)
	g.sem.Release(1)
}

// Available is a point-in-time count of free permits.
func (g *gate) Available() int64 {
	return g.size - g.held.Load()
}

// Held is a point-in-time count of acquired permits.
func (g *gate) Held() int64 {
	return g.held.Load()
}
