package notify

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrQueueClosed = errors.New("notify: queue closed")

// Queue is the work queue the dispatcher pulls from. Implementations must
// be safe for concurrent producers and consumers; the redis-backed queue in
// infrastructure/queue provides durability, the in-memory one here serves
// tests and single-process deployments.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// EnqueueDelayed makes the job visible to consumers after delay.
	EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) error
	// Dequeue blocks until a job is ready or ctx is done.
	Dequeue(ctx context.Context) (*Job, error)
	Close() error
}

type memoryQueue struct {
	mu     sync.Mutex
	ch     chan Job
	done   chan struct{}
	timers map[*time.Timer]struct{}
	closed bool
}

func NewMemoryQueue(buffer int) Queue {
	if buffer <= 0 {
		buffer = 256
	}
	return &memoryQueue{
		ch:     make(chan Job, buffer),
		done:   make(chan struct{}),
		timers: make(map[*time.Timer]struct{}),
	}
}

func (q *memoryQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.mu.Unlock()

	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *memoryQueue) EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) error {
	if delay <= 0 {
		return q.Enqueue(ctx, job)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, timer)
		q.mu.Unlock()
		// The buffer may be full with no consumer left; give up once the
		// queue closes rather than pinning the timer goroutine forever.
		select {
		case q.ch <- job:
		case <-q.done:
		}
	})
	q.timers[timer] = struct{}{}
	return nil
}

func (q *memoryQueue) Dequeue(ctx context.Context) (*Job, error) {
	select {
	case job, ok := <-q.ch:
		if !ok {
			return nil, ErrQueueClosed
		}
		return &job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *memoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	for timer := range q.timers {
		timer.Stop()
	}
	q.timers = nil
	return nil
}
