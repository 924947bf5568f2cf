// Package uiloop provides a single-goroutine executor that owns presentation
// state. Network completions hand their results to the loop with Dispatch
// instead of touching shared state from whatever goroutine they finished on.
package uiloop

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when work is submitted to a stopped loop.
var ErrClosed = errors.New("ui loop closed")

const queueSize = 64

// Loop runs queued closures one at a time, in submission order.
// Tasks must not call Sync on their own loop.
type Loop struct {
	tasks   chan func()
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// New starts a loop goroutine.
func New() *Loop {
	l := &Loop{
		tasks:   make(chan func(), queueSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.quit:
			return
		}
	}
}

// Dispatch queues fn and returns immediately. It reports false when the
// loop has been closed and fn will never run.
func (l *Loop) Dispatch(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Sync runs fn on the loop and waits for it to finish.
func (l *Loop) Sync(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Dispatch(func() {
		fn()
		close(done)
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-l.stopped:
		// The loop may have stopped before reaching fn.
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop. Tasks still queued are discarded.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.quit) })
	<-l.stopped
}
