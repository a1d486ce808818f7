// Package queue runs work on named FIFO queues and a single coordinator.
//
// Each queue has exactly one consumer goroutine, so tasks submitted to the
// same queue run one at a time in submission order. Nothing is guaranteed
// across queues. The coordinator is the one context allowed to mutate shared
// job state; any goroutine can post callbacks to it with QueueUI.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sdejongh/mediasync/pkg/logging"
)

// Name identifies a queue
type Name string

const (
	// Work runs scans, analyses and file operations
	Work Name = "work"
	// Database is the single writer of the dedup history
	Database Name = "database"
	// Web is reserved for network-bound work
	Web Name = "web"
	// ScanFolder receives reindex requests for touched library folders
	ScanFolder Name = "scan-folder"
)

// DefaultNames are the queues every Dispatcher starts with
var DefaultNames = []Name{Work, Database, Web, ScanFolder}

// ErrClosed is returned when submitting to a closed queue
var ErrClosed = errors.New("queue closed")

// Task is a unit of work. ctx identifies the queue it runs on.
type Task func(ctx context.Context)

// Submitter accepts tasks
type Submitter interface {
	Submit(task Task) error
}

type queueKey struct{}

// NameFrom returns the name of the queue running the task that owns ctx
func NameFrom(ctx context.Context) (Name, bool) {
	n, ok := ctx.Value(queueKey{}).(Name)
	return n, ok
}

// Queue is an unbounded FIFO with a single consumer goroutine
type Queue struct {
	name   Name
	ctx    context.Context
	logger logging.Logger

	mu     sync.Mutex
	tasks  []Task
	closed bool

	// signal wakes the consumer; capacity 1 so Submit never blocks
	signal chan struct{}
	done   chan struct{}
}

func newQueue(parent context.Context, name Name, logger logging.Logger) *Queue {
	q := &Queue{
		name:   name,
		ctx:    context.WithValue(parent, queueKey{}, name),
		logger: logger.WithFields(logging.Fields{"queue": string(name)}),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.loop()
	return q
}

// Name returns the queue name
func (q *Queue) Name() Name {
	return q.name
}

// Submit appends task to the queue
func (q *Queue) Submit(task Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("submit to %s: %w", q.name, ErrClosed)
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	q.notify()
	return nil
}

// Len returns the number of tasks waiting to run
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *Queue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// pop removes the oldest task. closed is only meaningful when ok is false.
func (q *Queue) pop() (task Task, ok bool, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false, q.closed
	}
	task = q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return task, true, false
}

func (q *Queue) loop() {
	defer close(q.done)
	for {
		task, ok, closed := q.pop()
		if ok {
			q.execute(task)
			continue
		}
		if closed {
			return
		}
		<-q.signal
	}
}

// execute runs task, converting a panic into a logged error
func (q *Queue) execute(task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error(q.ctx, "task panicked", fmt.Errorf("panic: %v", r), nil)
		}
	}()
	task(q.ctx)
}

// close stops accepting tasks and waits for the pending ones to finish
func (q *Queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notify()
	<-q.done
}
