// Package state owns the shared view state (region, route, ETA) and the
// single event loop that is allowed to mutate it.
package state

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrStopped is returned when work is submitted to a loop that has exited.
var ErrStopped = errors.New("state loop stopped")

// Loop runs submitted functions one at a time, in submission order, on a
// single goroutine. Do and Snapshot must not be called from inside the loop.
type Loop struct {
	tasks   chan func()
	stopped chan struct{}
	once    sync.Once
}

// NewLoop creates a loop with a task queue of the given size.
func NewLoop(queue int) *Loop {
	if queue <= 0 {
		queue = 64
	}
	return &Loop{
		tasks:   make(chan func(), queue),
		stopped: make(chan struct{}),
	}
}

// Run executes tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer l.once.Do(func() { close(l.stopped) })

	for {
		select {
		case fn := <-l.tasks:
			l.exec(fn)
		case <-ctx.Done():
			return
		}
	}
}

// Stopped is closed once Run has returned.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}

// Dispatch queues fn without waiting for it to run.
func (l *Loop) Dispatch(fn func()) error {
	select {
	case <-l.stopped:
		return ErrStopped
	default:
	}

	select {
	case l.tasks <- fn:
		return nil
	case <-l.stopped:
		return ErrStopped
	}
}

// Do runs fn on the loop and waits until it has finished.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}

	select {
	case l.tasks <- task:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered panic in state loop")
		}
	}()
	fn()
}
