package tutor

import (
	"context"
	"sync"
)

// Task is one unit of remote work. Its result is delivered to exactly
// one waiting caller.
type Task func(ctx context.Context) (string, error)

type taskResult struct {
	text string
	err  error
}

type queued struct {
	ctx  context.Context
	task Task
	done chan taskResult
}

// Serializer is a FIFO single-flight queue: a single worker goroutine
// pulls one task at a time, so at most one remote call is in flight
// and bursts of retries cannot double-spend quota or interleave
// streamed output. Local cache hits never pass through here.
type Serializer struct {
	queue chan queued
	once  sync.Once
}

func NewSerializer(buffer int) *Serializer {
	s := &Serializer{
		queue: make(chan queued, buffer),
	}
	go s.worker()
	return s
}

func (s *Serializer) worker() {
	for q := range s.queue {
		text, err := q.task(q.ctx)
		q.done <- taskResult{text: text, err: err}
	}
}

// Do enqueues the task and blocks until it (and every task before it)
// settles. Enqueueing respects ctx, but once dispatched the task runs
// to completion; there is no mid-flight abandonment.
func (s *Serializer) Do(ctx context.Context, task Task) (string, error) {
	done := make(chan taskResult, 1)

	select {
	case s.queue <- queued{ctx: ctx, task: task, done: done}:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	res := <-done
	return res.text, res.err
}

// Close stops the worker once the queue drains. Pending Do calls still
// receive their results.
func (s *Serializer) Close() {
	s.once.Do(func() {
		close(s.queue)
	})
}
