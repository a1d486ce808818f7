package queue

import (
	"context"

	"github.com/sdejongh/mediasync/pkg/logging"
)

// CoordinatorName is the queue name reported by NameFrom on the coordinator
const CoordinatorName Name = "coordinator"

type coordinatorKey struct{}

// Coordinator is the single context that owns shared job state
type Coordinator struct {
	q *Queue
}

func newCoordinator(logger logging.Logger) *Coordinator {
	c := &Coordinator{}
	ctx := context.WithValue(context.Background(), coordinatorKey{}, c)
	c.q = newQueue(ctx, CoordinatorName, logger)
	return c
}

// OnCoordinator reports whether ctx belongs to a coordinator callback
func OnCoordinator(ctx context.Context) bool {
	return coordinatorFrom(ctx) != nil
}

func coordinatorFrom(ctx context.Context) *Coordinator {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(coordinatorKey{}).(*Coordinator)
	return c
}

// Submit posts a callback to the coordinator
func (c *Coordinator) Submit(task Task) error {
	return c.q.Submit(task)
}

// PumpUntil runs coordinator callbacks inline until done is closed or ctx
// ends. It must only be called from a coordinator callback, otherwise two
// goroutines would consume the inbox.
func (c *Coordinator) PumpUntil(ctx context.Context, done <-chan struct{}) error {
	for {
		select {
		case <-done:
			return nil
		default:
		}

		if task, ok, _ := c.q.pop(); ok {
			c.q.execute(task)
			continue
		}

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-c.q.signal:
		}
	}
}

// Wait blocks until done is closed or ctx ends. From a coordinator callback
// it keeps pumping the coordinator inbox so other callbacks still run.
func Wait(ctx context.Context, done <-chan struct{}) error {
	if c := coordinatorFrom(ctx); c != nil {
		return c.PumpUntil(ctx, done)
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
