package email

import (
	"context"
	"errors"
	"sync"

	"erinnerungslicht-backend/internal/domain"
	"erinnerungslicht-backend/pkg/metrics"
)

// ErrQueueClosed is returned by Close when called twice.
var ErrQueueClosed = errors.New("confirmation queue already closed")

type job struct {
	ctx  context.Context
	kind domain.MailKind
	msg  *domain.MailMessage
}

// Queue is a bounded in-memory hand-off for messages nobody waits on. It is
// not durable: jobs still queued when the process dies are lost.
type Queue struct {
	jobs    chan job
	workers int
	metrics *metrics.Metrics

	mu       sync.RWMutex
	closed   bool
	started  sync.Once
	wg       sync.WaitGroup
	overflow sync.WaitGroup
	d        *Dispatcher
}

func NewQueue(size, workers int, m *metrics.Metrics) *Queue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		jobs:    make(chan job, size),
		workers: workers,
		metrics: m,
	}
}

func (q *Queue) bind(d *Dispatcher) {
	q.started.Do(func() {
		q.d = d
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work()
		}
	})
}

func (q *Queue) work() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.metrics.QueueDepth(len(q.jobs))
		q.d.run(j)
	}
}

// push hands j to a worker, or runs it on a detached goroutine when the
// buffer is full. It reports false once the queue is closed.
func (q *Queue) push(j job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed || q.d == nil {
		return false
	}
	select {
	case q.jobs <- j:
		q.metrics.QueueDepth(len(q.jobs))
	default:
		q.overflow.Add(1)
		go func() {
			defer q.overflow.Done()
			q.d.run(j)
		}()
	}
	return true
}

// Len returns the number of jobs waiting for a worker.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Close stops accepting jobs and waits until the queued ones are sent or ctx
// ends.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		q.overflow.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
