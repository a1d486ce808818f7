package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/sdejongh/mediasync/pkg/logging"
)

// Dispatcher owns the named queues and the coordinator
type Dispatcher struct {
	logger logging.Logger
	coord  *Coordinator

	mu     sync.Mutex
	queues map[Name]*Queue
	order  []Name
	closed bool

	closeOnce sync.Once
}

// NewDispatcher starts the coordinator and one consumer per named queue.
// With no names, DefaultNames are used.
func NewDispatcher(logger logging.Logger, names ...Name) *Dispatcher {
	logger = logging.OrNull(logger)
	if len(names) == 0 {
		names = DefaultNames
	}

	d := &Dispatcher{
		logger: logger,
		coord:  newCoordinator(logger),
		queues: make(map[Name]*Queue, len(names)),
	}
	for _, n := range names {
		if _, ok := d.queues[n]; !ok {
			d.add(n)
		}
	}
	return d
}

func (d *Dispatcher) add(name Name) *Queue {
	q := newQueue(context.Background(), name, d.logger)
	d.queues[name] = q
	d.order = append(d.order, name)
	return q
}

// Queue returns the named queue, starting it on first use
func (d *Dispatcher) Queue(name Name) (*Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if q, ok := d.queues[name]; ok {
		return q, nil
	}
	if d.closed {
		return nil, fmt.Errorf("queue %s: %w", name, ErrClosed)
	}
	return d.add(name), nil
}

// Submit appends task to the named queue
func (d *Dispatcher) Submit(name Name, task Task) error {
	q, err := d.Queue(name)
	if err != nil {
		return err
	}
	return q.Submit(task)
}

// QueueUI posts a callback to the coordinator
func (d *Dispatcher) QueueUI(task Task) error {
	return d.coord.Submit(task)
}

// Coordinator returns the coordinating context
func (d *Dispatcher) Coordinator() *Coordinator {
	return d.coord
}

// Close drains every worker queue, then the coordinator, so callbacks posted
// by the last worker tasks still run.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		queues := make([]*Queue, 0, len(d.order))
		for _, n := range d.order {
			queues = append(queues, d.queues[n])
		}
		d.mu.Unlock()

		for _, q := range queues {
			q.close()
		}
		d.coord.q.close()
	})
}
