// Package library runs import and sync jobs over the queue dispatcher.
//
// Scans, analyses and file operations run on the work queue. Every history
// access goes through the database queue. Reindex requests for the folders
// an import wrote to go to the scan-folder queue. Reporter state lives on
// the coordinator.
package library

import (
	"context"
	"fmt"

	"github.com/sdejongh/mediasync/pkg/engine"
	"github.com/sdejongh/mediasync/pkg/history"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/output"
	"github.com/sdejongh/mediasync/pkg/queue"
	"github.com/sdejongh/mediasync/pkg/scan"
	"github.com/sdejongh/mediasync/pkg/storage"
	"github.com/sdejongh/mediasync/pkg/template"
)

// FolderHook is called on the scan-folder queue for every library folder an
// import wrote to, with the number of files it now holds
type FolderHook func(ctx context.Context, folder string, files int)

// Options configures a Library
type Options struct {
	// Backend holds the import sources, the library and the local sync roots
	Backend storage.Backend
	// Remote is the sync remote side; Backend when nil
	Remote storage.Walker
	// History is the dedup store
	History history.Store

	Exclusions        *scan.Exclusions
	SidecarExtensions []string
	Engine            engine.Config

	// OnFolderChanged receives reindex requests; they are only logged when nil
	OnFolderChanged FolderHook

	Logger logging.Logger
}

// Library owns the dispatcher and the components jobs run through
type Library struct {
	dispatcher *queue.Dispatcher
	backend    storage.Backend
	remote     storage.Walker
	history    history.Store
	exclusions *scan.Exclusions
	sidecars   []string
	resolver   *template.Resolver
	engine     *engine.Engine
	onFolder   FolderHook
	logger     logging.Logger
}

// New creates a library and starts its queues
func New(opts Options) (*Library, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("library: storage backend is required")
	}
	if opts.History == nil {
		return nil, fmt.Errorf("library: history store is required")
	}

	logger := logging.OrNull(opts.Logger)
	remote := opts.Remote
	if remote == nil {
		remote = opts.Backend
	}
	sidecars := opts.SidecarExtensions
	if sidecars == nil {
		sidecars = scan.DefaultSidecarExtensions
	}

	return &Library{
		dispatcher: queue.NewDispatcher(logger),
		backend:    opts.Backend,
		remote:     remote,
		history:    opts.History,
		exclusions: opts.Exclusions,
		sidecars:   sidecars,
		resolver:   template.NewResolver(),
		engine:     engine.New(opts.Backend, opts.Engine, logger),
		onFolder:   opts.OnFolderChanged,
		logger:     logger,
	}, nil
}

// Dispatcher exposes the queues, mostly for tests
func (l *Library) Dispatcher() *queue.Dispatcher {
	return l.dispatcher
}

// Resolver returns the destination template resolver, so callers can
// register extra tokens before running jobs
func (l *Library) Resolver() *template.Resolver {
	return l.resolver
}

// HistoryCount returns the number of records in the dedup history
func (l *Library) HistoryCount(ctx context.Context) (int, error) {
	return queue.Call(ctx, l.queue(queue.Database), func(ctx context.Context) (int, error) {
		return l.history.Count(ctx)
	})
}

// ResetHistory removes every record from the dedup history
func (l *Library) ResetHistory(ctx context.Context) error {
	_, err := queue.Call(ctx, l.queue(queue.Database), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, l.history.Reset(ctx)
	})
	return err
}

// Close drains and stops every queue
func (l *Library) Close() {
	l.dispatcher.Close()
}

// Result is the outcome of a job
type Result struct {
	// Report is the final job report; nil for dry runs
	Report *models.JobReport
	// Plan is the analysis rendered for dry runs
	Plan *output.Plan
	// Summary describes the analysis in one line
	Summary string
	// TouchedFolders lists the library folders an import wrote to
	TouchedFolders []string
}

// queue returns a named queue. A closed dispatcher yields a submitter that
// rejects everything.
func (l *Library) queue(name queue.Name) queue.Submitter {
	q, err := l.dispatcher.Queue(name)
	if err != nil {
		return closedQueue{err: err}
	}
	return q
}

type closedQueue struct{ err error }

func (c closedQueue) Submit(queue.Task) error {
	return c.err
}
