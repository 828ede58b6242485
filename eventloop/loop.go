// Package eventloop runs callbacks one at a time on a single goroutine.
//
// Signal handlers, user actions and completions of remote calls are all
// posted here, so code running on the loop never needs its own locking
// against other loop callbacks.
package eventloop

import (
	"context"
	"errors"
	"sync"

	"github.com/trbjo/rogquick/logger"
)

var lg = logger.For("eventloop")

var ErrStopped = errors.New("event loop stopped")

type Loop struct {
	queue   chan func()
	stopped chan struct{}
	once    sync.Once
}

func New(size int) *Loop {
	if size <= 0 {
		size = 64
	}
	return &Loop{
		queue:   make(chan func(), size),
		stopped: make(chan struct{}),
	}
}

// Post enqueues fn. It blocks while the queue is full and returns false once
// the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.stopped:
		return false
	}
}

// Call posts fn and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
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

// Run consumes the queue until ctx is cancelled. Callbacks still queued at
// that point are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.stopped) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.queue:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			lg.Error("callback panicked", "panic", r)
		}
	}()
	fn()
}

func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}
