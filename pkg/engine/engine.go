// Package engine applies import and sync plans through storage operations,
// reporting every item to a status reporter.
package engine

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/storage"
)

// Reporter is the part of status.Reporter the engine drives
type Reporter interface {
	StartItem(name string)
	EndItem(name string, status models.ItemStatus, err error)
	Message(text string, pos, total int)
	Abort(err error)
	Complete(message string)
	IsCanceled() bool
}

// Config holds the per-operation failure policies
type Config struct {
	ImportFailure models.FailurePolicy
	SyncFailure   models.FailurePolicy
}

// DefaultConfig continues past failures for both operations
func DefaultConfig() Config {
	return Config{ImportFailure: models.FailureContinue, SyncFailure: models.FailureContinue}
}

// Engine executes plans
type Engine struct {
	ops    storage.FileOps
	config Config
	logger logging.Logger
}

// New creates an engine. Unknown policies fall back to continue.
func New(ops storage.FileOps, config Config, logger logging.Logger) *Engine {
	if !config.ImportFailure.Valid() {
		config.ImportFailure = models.FailureContinue
	}
	if !config.SyncFailure.Valid() {
		config.SyncFailure = models.FailureContinue
	}
	return &Engine{ops: ops, config: config, logger: logging.OrNull(logger)}
}

// batch tracks the state shared by the items of one run
type batch struct {
	token   cancel.Token
	r       Reporter
	policy  models.FailurePolicy
	stopped bool
}

func (b *batch) cancelled() bool {
	return b.token.IsCancelled() || b.r.IsCanceled()
}

// skip reports the status of an item that will not be attempted, if any
func (b *batch) skip() (models.ItemStatus, bool) {
	if b.cancelled() {
		return models.ItemCancel, true
	}
	if b.stopped {
		return models.ItemIgnored, true
	}
	return "", false
}

// record notes the outcome of an attempted item
func (b *batch) record(st models.ItemStatus) {
	if st == models.ItemFail && b.policy == models.FailureStop {
		b.stopped = true
	}
}

// run performs one item, turning a panic into a failure
func (e *Engine) run(ctx context.Context, name string, fn func() error) (st models.ItemStatus, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			st = models.ItemFail
			e.logger.Error(ctx, "item panicked", err, logging.Fields{"item": name, "stack": string(debug.Stack())})
		}
	}()

	err = fn()
	switch storage.Classify(err) {
	case storage.ResultOK:
		return models.ItemSuccess, nil
	case storage.ResultCancelled:
		return models.ItemCancel, err
	default:
		return models.ItemFail, err
	}
}
