// Package sched provides the periodic-task and bounded-worker-pool
// primitives reused across the bridge: C3's token-refresh timer, C9's
// state-log sync timer, C5's connection-health probe, and C10's
// multi-target command fan-out. Adapted from internal/pulse/scheduler.go's
// ticker-plus-semaphore shape, generalized from "run enabled checks from a
// store" to "run one task function".
package sched

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is invoked once per tick (and once immediately on Start).
type Task func(ctx context.Context)

// Periodic runs a Task on a fixed interval until Stop is called.
type Periodic struct {
	interval time.Duration
	task     Task
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPeriodic creates a periodic runner. Call Start to begin.
func NewPeriodic(interval time.Duration, task Task, logger *zap.Logger) *Periodic {
	return &Periodic{interval: interval, task: task, logger: logger}
}

// Start begins the ticking loop in its own goroutine; it does not block.
func (p *Periodic) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.runOnce()
		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				p.runOnce()
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it to finish.
func (p *Periodic) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Running reports whether the loop is still active.
func (p *Periodic) Running() bool {
	return p.ctx != nil && p.ctx.Err() == nil
}

func (p *Periodic) runOnce() {
	defer func() {
		if r := recover(); r != nil && p.logger != nil {
			p.logger.Error("periodic task panicked", zap.Any("panic", r))
		}
	}()
	p.task(p.ctx)
}

// RunBounded runs fn once per item with at most `workers` concurrently
// in flight, waiting for all to finish. Used by C10 to fan a command out
// across several target devices/rooms while keeping a bound on concurrency.
func RunBounded[T any](ctx context.Context, items []T, workers int, fn func(context.Context, T)) {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

dispatch:
	for i := range items {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(ctx, item)
		}(items[i])
	}
	wg.Wait()
}
