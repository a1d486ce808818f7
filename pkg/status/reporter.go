// Package status tracks the progress and outcome of one long-running job.
//
// A Reporter may be called from any goroutine. Every call is turned into a
// callback on the coordinator, which is the only place its counters change;
// readers get an immutable snapshot published after each change.
package status

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/output"
	"github.com/sdejongh/mediasync/pkg/queue"
)

// Coordinator is where reporter state changes run
type Coordinator interface {
	Submit(task queue.Task) error
}

// Reporter is the status session of one job
type Reporter struct {
	coord  Coordinator
	sink   output.Formatter
	source *cancel.Source
	token  cancel.Token
	logger logging.Logger

	// owned by the coordinator
	state     models.JobReport
	current   string
	completed bool

	snapshot atomic.Pointer[models.JobReport]
	done     chan struct{}
	doneOnce sync.Once
}

// Options configures a Reporter
type Options struct {
	Kind models.JobKind
	// Total is the number of items announced to the sink, if known
	Total int
	// Sink renders events; nil discards them
	Sink output.Formatter
	// Source is the job's cancel source; a new job source when nil
	Source *cancel.Source
	// Token is the job token, so a cancel during analysis carries over.
	// The zero Token means a fresh one from Source.
	Token  cancel.Token
	Logger logging.Logger
}

// New creates a reporter posting its state changes to coord
func New(coord Coordinator, opts Options) *Reporter {
	source := opts.Source
	if source == nil {
		source = cancel.NewJob()
	}
	token := opts.Token
	if token.IsZero() {
		token = source.Token()
	}

	r := &Reporter{
		coord:  coord,
		sink:   opts.Sink,
		source: source,
		token:  token,
		done:   make(chan struct{}),
		state: models.JobReport{
			ID:        uuid.New().String(),
			Kind:      opts.Kind,
			StartTime: time.Now(),
		},
	}
	r.logger = logging.OrNull(opts.Logger).WithFields(logging.Fields{
		"job":  r.state.ID,
		"kind": string(opts.Kind),
	})
	r.publish()

	total := opts.Total
	r.post(func() {
		if r.sink != nil {
			r.sink.Start(r.state.Kind, total)
		}
	})
	return r
}

// ID returns the session ID
func (r *Reporter) ID() string {
	return r.state.ID
}

// Token returns the job's cancel token
func (r *Reporter) Token() cancel.Token {
	return r.token
}

// StartItem marks name as the item in progress
func (r *Reporter) StartItem(name string) {
	r.post(func() {
		r.current = name
		if r.sink != nil {
			r.sink.Progress(output.ProgressUpdate{Type: output.UpdateItemStart, Item: name})
		}
	})
}

// EndItem records the outcome of name. err is kept for failed items.
func (r *Reporter) EndItem(name string, status models.ItemStatus, err error) {
	r.post(func() {
		switch status {
		case models.ItemSuccess:
			r.state.Processed++
		case models.ItemFail:
			r.state.Failed++
			if r.state.FirstFailure == "" {
				r.state.FirstFailure = name
			}
			msg := "failed"
			if err != nil {
				msg = err.Error()
			}
			r.state.Failures = append(r.state.Failures, models.ItemFailure{Name: name, Error: msg})
		case models.ItemCancel:
			r.state.Cancelled++
		case models.ItemIgnored:
			r.state.Ignored++
		}
		if r.current == name {
			r.current = ""
		}
		r.publish()

		if r.sink != nil {
			r.sink.Progress(output.ProgressUpdate{Type: output.UpdateItemEnd, Item: name, Status: status, Error: err})
		}
	})
}

// Message updates the progress text
func (r *Reporter) Message(text string, pos, total int) {
	r.post(func() {
		r.state.Message = text
		r.publish()
		if r.sink != nil {
			r.sink.Progress(output.ProgressUpdate{Type: output.UpdateMessage, Message: text, Position: pos, Total: total})
		}
	})
}

// Abort records a fatal error for part of the job. The job still needs
// Complete; remaining work may continue.
func (r *Reporter) Abort(err error) {
	if err == nil {
		return
	}
	r.logger.Error(context.Background(), "job aborted", err, nil)
	r.post(func() {
		r.state.Aborted = true
		r.state.Message = err.Error()
		r.publish()
		if r.sink != nil {
			r.sink.Error(err)
		}
	})
}

// Complete finalizes the job. Only the first call has any effect.
func (r *Reporter) Complete(message string) {
	posted := r.post(func() {
		if r.completed {
			return
		}
		r.completed = true

		r.state.EndTime = time.Now()
		r.state.Duration = r.state.EndTime.Sub(r.state.StartTime)
		if message != "" {
			r.state.Message = message
		}
		r.state.ResolveStatus()
		r.publish()

		if r.sink != nil {
			r.sink.Complete(r.Report())
		}
		r.logger.Info(context.Background(), "job completed", logging.Fields{
			"status":  string(r.state.Status),
			"summary": r.state.Summary(),
		})
		r.finish()
	})
	if !posted {
		// nobody would ever release the waiters otherwise
		r.finish()
	}
}

// ShowErrors asks the sink to list every failure
func (r *Reporter) ShowErrors() {
	r.post(func() {
		if r.sink != nil && len(r.state.Failures) > 0 {
			r.sink.ShowErrors(append([]models.ItemFailure(nil), r.state.Failures...))
		}
	})
}

// IsCanceled reports whether the job was cancelled
func (r *Reporter) IsCanceled() bool {
	return r.token.IsCancelled()
}

// Cancel cancels the job's source
func (r *Reporter) Cancel() {
	r.source.Cancel()
}

// HasFailures reports whether any item failed so far
func (r *Reporter) HasFailures() bool {
	return r.snapshot.Load().Failed > 0
}

// WaitForComplete blocks until Complete has run or ctx ends. Called from a
// coordinator callback it keeps running other callbacks while it waits.
func (r *Reporter) WaitForComplete(ctx context.Context) error {
	return queue.Wait(ctx, r.done)
}

// Report returns a snapshot of the job state
func (r *Reporter) Report() *models.JobReport {
	s := *r.snapshot.Load()
	s.Failures = append([]models.ItemFailure(nil), s.Failures...)
	return &s
}

// publish stores a copy of the state; coordinator only
func (r *Reporter) publish() {
	s := r.state
	s.Failures = append([]models.ItemFailure(nil), r.state.Failures...)
	r.snapshot.Store(&s)
}

func (r *Reporter) finish() {
	r.doneOnce.Do(func() { close(r.done) })
}

// post runs fn on the coordinator and reports whether it was queued
func (r *Reporter) post(fn func()) bool {
	err := r.coord.Submit(func(ctx context.Context) { fn() })
	if err != nil {
		r.logger.Warn(context.Background(), "status update dropped", logging.Fields{"error": err.Error()})
		return false
	}
	return true
}
