package queue

import (
	"context"
	"fmt"
)

// Call runs fn on s and waits for its result. It must not target the queue
// the caller is running on, which would deadlock; calling from the
// coordinator is fine since the wait pumps the inbox.
func Call[T any](ctx context.Context, s Submitter, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	done := make(chan struct{})

	submitErr := s.Submit(func(taskCtx context.Context) {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		result, err = fn(taskCtx)
	})
	if submitErr != nil {
		var zero T
		return zero, submitErr
	}

	if waitErr := Wait(ctx, done); waitErr != nil {
		var zero T
		return zero, waitErr
	}
	return result, err
}
