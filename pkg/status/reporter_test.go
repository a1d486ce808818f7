package status

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/output"
	"github.com/sdejongh/mediasync/pkg/queue"
)

// recordingSink is an output.Formatter that records what it is told
type recordingSink struct {
	mu        sync.Mutex
	starts    int
	updates   []output.ProgressUpdate
	completes []*models.JobReport
	errs      []error
	shown     []models.ItemFailure
}

func (s *recordingSink) Start(kind models.JobKind, totalItems int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	return nil
}

func (s *recordingSink) Progress(update output.ProgressUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
	return nil
}

func (s *recordingSink) Complete(report *models.JobReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completes = append(s.completes, report)
	return nil
}

func (s *recordingSink) Error(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
	return nil
}

func (s *recordingSink) ShowErrors(failures []models.ItemFailure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = failures
	return nil
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) completeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completes)
}

func (s *recordingSink) endStatuses() []models.ItemStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ItemStatus
	for _, u := range s.updates {
		if u.Type == output.UpdateItemEnd {
			out = append(out, u.Status)
		}
	}
	return out
}

func newTestReporter(t *testing.T, kind models.JobKind) (*Reporter, *recordingSink, *queue.Dispatcher) {
	t.Helper()
	d := queue.NewDispatcher(nil)
	t.Cleanup(d.Close)
	sink := &recordingSink{}
	r := New(d.Coordinator(), Options{Kind: kind, Sink: sink, Source: cancel.NewJob()})
	return r, sink, d
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancelFn := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancelFn)
	return ctx
}

func TestReporter_Counters(t *testing.T) {
	r, sink, _ := newTestReporter(t, models.JobImport)

	r.Message("2024/2024-01-01", 1, 1)
	r.StartItem("a.jpg")
	r.EndItem("a.jpg", models.ItemSuccess, nil)
	r.StartItem("b.jpg")
	r.EndItem("b.jpg", models.ItemFail, errors.New("permission denied"))
	r.EndItem("c.jpg", models.ItemFail, nil)
	r.EndItem("d.jpg", models.ItemIgnored, nil)
	r.Complete("")

	require.NoError(t, r.WaitForComplete(waitCtx(t)))

	report := r.Report()
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 1, report.Ignored)
	assert.Equal(t, "b.jpg", report.FirstFailure)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "permission denied", report.Failures[0].Error)
	assert.Equal(t, models.StatusPartial, report.Status)
	assert.Equal(t, "1 imported, 2 failed, 1 ignored", report.Summary())
	assert.True(t, r.HasFailures())
	assert.NotEmpty(t, r.ID())
	assert.Equal(t, 1, sink.starts)
	assert.Equal(t, 1, sink.completeCount())
}

func TestReporter_CompleteOnce(t *testing.T) {
	r, sink, _ := newTestReporter(t, models.JobSync)

	r.Complete("first")
	r.Complete("second")
	require.NoError(t, r.WaitForComplete(waitCtx(t)))

	// flush anything still queued behind the second Complete
	done := make(chan struct{})
	r.post(func() { close(done) })
	<-done

	assert.Equal(t, 1, sink.completeCount())
	assert.Equal(t, "first", r.Report().Message)
}

func TestReporter_Abort(t *testing.T) {
	r, sink, _ := newTestReporter(t, models.JobImport)

	r.EndItem("a.jpg", models.ItemSuccess, nil)
	r.Abort(errors.New("failed to create folder /lib/2024"))
	r.Abort(nil)
	r.Complete("")
	require.NoError(t, r.WaitForComplete(waitCtx(t)))

	report := r.Report()
	assert.True(t, report.Aborted)
	assert.Equal(t, models.StatusPartial, report.Status)
	assert.Len(t, sink.errs, 1)
}

func TestReporter_ShowErrors(t *testing.T) {
	r, sink, _ := newTestReporter(t, models.JobImport)

	r.EndItem("a.jpg", models.ItemFail, errors.New("disk full"))
	r.Complete("")
	r.ShowErrors()
	require.NoError(t, r.WaitForComplete(waitCtx(t)))

	done := make(chan struct{})
	r.post(func() { close(done) })
	<-done

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.shown, 1)
	assert.Equal(t, "a.jpg", sink.shown[0].Name)
}

func TestReporter_Cancel(t *testing.T) {
	r, _, _ := newTestReporter(t, models.JobImport)

	assert.False(t, r.IsCanceled())
	r.Cancel()
	assert.True(t, r.IsCanceled())
	assert.True(t, r.Token().IsCancelled())
}

func TestReporter_CompleteAfterCoordinatorClosed(t *testing.T) {
	d := queue.NewDispatcher(nil)
	r := New(d.Coordinator(), Options{Kind: models.JobImport})
	d.Close()

	r.Complete("late")
	ctx, cancelFn := context.WithTimeout(context.Background(), time.Second)
	defer cancelFn()
	require.NoError(t, r.WaitForComplete(ctx), "waiters must be released even when the coordinator is gone")
}

func TestReporter_UsesJobToken(t *testing.T) {
	d := queue.NewDispatcher(nil)
	t.Cleanup(d.Close)
	source := cancel.NewJob()
	token := source.Token()

	// cancelled before the reporter exists, as when a job is stopped during analysis
	source.Cancel()
	r := New(d.Coordinator(), Options{Kind: models.JobSync, Source: source, Token: token})

	assert.True(t, r.IsCanceled())
	assert.ErrorIs(t, r.Token().Err(), cancel.ErrCancelled)

	fresh := New(d.Coordinator(), Options{Kind: models.JobSync, Source: source})
	assert.False(t, fresh.IsCanceled())
}

func TestReporter_WaitForCompleteOnCoordinator(t *testing.T) {
	r, _, d := newTestReporter(t, models.JobImport)

	result := make(chan error, 1)
	require.NoError(t, d.QueueUI(func(uiCtx context.Context) {
		assert.NoError(t, d.Submit(queue.Work, func(ctx context.Context) {
			r.EndItem("a.jpg", models.ItemSuccess, nil)
			r.Complete("")
		}))

		ctx, cancelFn := context.WithTimeout(uiCtx, 5*time.Second)
		defer cancelFn()
		result <- r.WaitForComplete(ctx)
	}))

	select {
	case err := <-result:
		require.NoError(t, err)
		assert.Equal(t, 1, r.Report().Processed)
	case <-time.After(6 * time.Second):
		t.Fatal("WaitForComplete() blocked the coordinator")
	}
}

func TestResultScope_Panic(t *testing.T) {
	r, sink, _ := newTestReporter(t, models.JobImport)

	run := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("recovered: %v", p)
			}
		}()
		scope := NewResultScope(r)
		defer scope.Close()
		defer scope.Close()
		scope.SetMessage("interrupted")
		panic("unexpected")
	}

	require.Error(t, run())
	require.NoError(t, r.WaitForComplete(waitCtx(t)))
	assert.Equal(t, 1, sink.completeCount())
	assert.Equal(t, "interrupted", r.Report().Message)
}

// 100 items queued on the work queue, the job is cancelled after the 10th.
func TestReporter_CancelMidway(t *testing.T) {
	r, sink, d := newTestReporter(t, models.JobImport)

	const total, cancelAfter = 100, 10
	for i := 1; i <= total; i++ {
		name := fmt.Sprintf("IMG_%04d.jpg", i)
		i := i
		require.NoError(t, d.Submit(queue.Work, func(ctx context.Context) {
			if r.IsCanceled() {
				r.EndItem(name, models.ItemCancel, nil)
				return
			}
			r.StartItem(name)
			r.EndItem(name, models.ItemSuccess, nil)
			if i == cancelAfter {
				r.Cancel()
			}
		}))
	}
	require.NoError(t, d.Submit(queue.Work, func(ctx context.Context) {
		scope := NewResultScope(r)
		defer scope.Close()
	}))

	require.NoError(t, r.WaitForComplete(waitCtx(t)))

	report := r.Report()
	assert.Equal(t, cancelAfter, report.Processed)
	assert.Equal(t, total-cancelAfter, report.Cancelled)
	assert.Equal(t, models.StatusCancelled, report.Status)
	assert.Equal(t, 1, sink.completeCount())

	statuses := sink.endStatuses()
	require.Len(t, statuses, total)
	for i, s := range statuses {
		if i < cancelAfter {
			assert.Equal(t, models.ItemSuccess, s, "item %d", i+1)
		} else {
			assert.Equal(t, models.ItemCancel, s, "item %d", i+1)
		}
	}
}
