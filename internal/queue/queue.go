// Package queue runs background notification work one task at a time.
//
// The queue is deliberately small: an in-memory FIFO backlog, a single
// in-flight slot, and text-based failure classification with exponential
// backoff. Tasks are side effects (email, AI calls), not the source of
// truth, so queue contents are lost on restart by design.
package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/folio-dev/folio/internal/logger"
	"github.com/google/uuid"
)

// Task is one unit of background work. The error text decides whether a
// failure is retried, see classify.
type Task func(ctx context.Context) error

// Clock abstracts timer scheduling so tests can advance time deterministically.
type Clock interface {
	AfterFunc(d time.Duration, f func())
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

const (
	// maxAttempts is the number of retries after the initial run.
	maxAttempts = 5
	// backoffBase scales the exponential retry delay: 2^attempt * backoffBase.
	backoffBase = time.Minute
)

type item struct {
	id      string
	name    string
	run     Task
	attempt int
}

// Queue is a durable-order, single-consumer task runner. Only one task is
// ever in flight; completion of one immediately drains the next.
type Queue struct {
	mu      sync.Mutex
	backlog []*item
	busy    bool

	clock Clock
	ctx   context.Context
}

func New(ctx context.Context) *Queue {
	return NewWithClock(ctx, realClock{})
}

func NewWithClock(ctx context.Context, clock Clock) *Queue {
	return &Queue{clock: clock, ctx: ctx}
}

// Enqueue appends a task to the backlog and starts the drain loop if idle.
// It never blocks on task execution.
func (q *Queue) Enqueue(name string, task Task) {
	q.add(&item{id: uuid.NewString(), name: name, run: task})
}

// Pending returns the current backlog length, not counting the in-flight task.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

func (q *Queue) add(it *item) {
	q.mu.Lock()
	q.backlog = append(q.backlog, it)
	logger.Log.Info("task queued", "task", it.name, "id", it.id, "position", len(q.backlog))
	if q.busy {
		q.mu.Unlock()
		return
	}
	q.busy = true
	q.mu.Unlock()
	go q.drain()
}

// drain pops and runs tasks until the backlog is empty. The busy flag is
// only cleared here, under the lock, when nothing is left.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.backlog) == 0 {
			q.busy = false
			q.mu.Unlock()
			return
		}
		it := q.backlog[0]
		q.backlog = q.backlog[1:]
		q.mu.Unlock()

		q.process(it)
	}
}

func (q *Queue) process(it *item) {
	logger.Log.Info("task running", "task", it.name, "id", it.id, "attempt", it.attempt+1)

	err := q.execute(it)
	if err == nil {
		logger.Log.Info("task completed", "task", it.name, "id", it.id)
		return
	}

	switch {
	case isFatal(err):
		logger.Log.Error("task dropped, fatal error", "task", it.name, "id", it.id, "error", err)
	case it.attempt < maxAttempts:
		delay := time.Duration(1<<it.attempt) * backoffBase
		logger.Log.Warn("task failed, rescheduling", "task", it.name, "id", it.id, "delay", delay, "error", err)
		retry := &item{id: it.id, name: it.name, run: it.run, attempt: it.attempt + 1}
		q.clock.AfterFunc(delay, func() { q.add(retry) })
	default:
		logger.Log.Error("task dropped, retries exhausted", "task", it.name, "id", it.id, "attempts", it.attempt+1, "error", err)
	}
}

// execute runs one attempt. A panicking task is converted into a failed
// attempt so it can never take down the drain loop.
func (q *Queue) execute(it *item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return it.run(q.ctx)
}

// isFatal reports whether the failure should never be retried: the resource
// is gone, the request was malformed, or credentials are wrong. Everything
// else (rate limits, transport hiccups) is considered transient.
func isFatal(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "400") ||
		strings.Contains(msg, "api key")
}
