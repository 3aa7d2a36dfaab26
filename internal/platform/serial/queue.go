// Package serial provides a single-worker FIFO task queue. Every job runs on
// the same goroutine in submission order, so a job always observes the effects
// of the jobs queued before it.
package serial

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	apperrors "analyzeit/internal/platform/errors"
)

const defaultBuffer = 64

const (
	statePending int32 = iota
	stateRunning
	stateAbandoned
)

type job struct {
	ctx    context.Context
	fn     func(context.Context) error
	state  atomic.Int32
	result chan error
}

type Queue struct {
	jobs   chan *job
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

func New() *Queue {
	q := &Queue{
		jobs: make(chan *job, defaultBuffer),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for j := range q.jobs {
		if !j.state.CompareAndSwap(statePending, stateRunning) {
			continue
		}
		j.result <- q.exec(j)
	}
}

func (q *Queue) exec(j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("serial job panic: %v", r)
		}
	}()
	return j.fn(j.ctx)
}

func (q *Queue) enqueue(ctx context.Context, fn func(context.Context) error) *job {
	j := &job{ctx: ctx, fn: fn, result: make(chan error, 1)}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		j.state.Store(stateAbandoned)
		j.result <- apperrors.ErrQueueClosed
		return j
	}
	q.jobs <- j
	return j
}

// Do queues fn and waits for it. If ctx ends before fn starts, fn is dropped
// and ctx.Err() is returned; once fn has started Do waits for it to finish.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	j := q.enqueue(ctx, fn)
	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		if j.state.CompareAndSwap(statePending, stateAbandoned) {
			return ctx.Err()
		}
		return <-j.result
	}
}

// Submit queues fn without waiting. The returned channel yields its result.
func (q *Queue) Submit(ctx context.Context, fn func(context.Context) error) <-chan error {
	return q.enqueue(ctx, fn).result
}

// Close stops accepting jobs and waits for the queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	<-q.done
}
