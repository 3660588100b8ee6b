// internal/loop/loop.go
package loop

import (
	"context"
	"errors"
)

// ErrStopped is returned when the loop is no longer running.
var ErrStopped = errors.New("loop: stopped")

// DefaultQueue is the pending-job capacity.
const DefaultQueue = 16

// Job runs on the control goroutine. ctx is the loop's run context.
type Job func(ctx context.Context)

// Loop is the single control goroutine. Everything that touches storage or
// provisioning state runs as a Job on it, so those components need no locks.
type Loop struct {
	jobs    chan Job
	stopped chan struct{}

	// owned by the loop goroutine
	ctx context.Context
}

// New returns a loop with the given queue capacity (<= 0 uses DefaultQueue).
func New(queue int) *Loop {
	if queue <= 0 {
		queue = DefaultQueue
	}
	return &Loop{
		jobs:    make(chan Job, queue),
		stopped: make(chan struct{}),
		ctx:     context.Background(),
	}
}

// Run serves jobs until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.ctx = ctx
	defer close(l.stopped)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-l.jobs:
			job(ctx)
		}
	}
}

// Post enqueues job without waiting for it to run. ctx bounds only the
// enqueue.
func (l *Loop) Post(ctx context.Context, job Job) error {
	select {
	case <-l.stopped:
		return ErrStopped
	default:
	}

	select {
	case l.jobs <- job:
		return nil
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do enqueues job and waits for it to finish. Once enqueued the job always
// runs to completion, so ctx cancellation after that point is ignored:
// callers may read whatever job wrote as soon as Do returns nil.
func (l *Loop) Do(ctx context.Context, job Job) error {
	done := make(chan struct{})
	err := l.Post(ctx, func(c context.Context) {
		defer close(done)
		job(c)
	})
	if err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	}
}

// ServePending runs the jobs already queued, without blocking, and returns
// how many ran. Must only be called from the loop goroutine; it is how a
// long-running job keeps the loop responsive.
func (l *Loop) ServePending() int {
	n := len(l.jobs)
	ran := 0
	for ran < n {
		select {
		case job := <-l.jobs:
			job(l.ctx)
			ran++
		default:
			return ran
		}
	}
	return ran
}
