package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/importer"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/output"
	"github.com/sdejongh/mediasync/pkg/queue"
	"github.com/sdejongh/mediasync/pkg/scan"
	"github.com/sdejongh/mediasync/pkg/status"
)

// ImportRequest describes one import job
type ImportRequest struct {
	Sources []string
	Options models.ImportOptions
	DryRun  bool
	// Sink renders progress; nil renders nothing
	Sink output.Formatter
	// Source cancels the job; a new job source when nil
	Source *cancel.Source
}

// Import scans the sources, analyzes them against the history and the
// library, then copies or moves what needs importing and records it.
// A cancellation before execution starts returns cancel.ErrCancelled; once
// execution started, cancellation shows in the report.
func (l *Library) Import(ctx context.Context, req ImportRequest) (*Result, error) {
	if len(req.Sources) == 0 {
		return nil, &models.ValidationError{Field: "Sources", Message: "at least one source folder is required"}
	}
	if err := req.Options.Validate(); err != nil {
		return nil, err
	}

	source := req.Source
	if source == nil {
		source = cancel.NewJob()
	}
	token := source.Token().WithContext(ctx)
	work := l.queue(queue.Work)
	logger := l.logger.WithFields(logging.Fields{"job": "import", "dest": req.Options.DestFolder})

	analysis, err := queue.Call(ctx, work, func(ctx context.Context) (*models.ImportAnalysis, error) {
		scanner := scan.NewScanner(l.backend, l.exclusions, l.sidecars, logger)
		items, err := scanner.Scan(ctx, req.Sources, token)
		if err != nil {
			return nil, err
		}

		known, err := queue.Call(ctx, l.queue(queue.Database), func(ctx context.Context) (models.RecordSet, error) {
			return l.history.Load(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}

		return importer.NewAnalyzer(l.backend, l.resolver, logger).Analyze(ctx, items, req.Options, known, token)
	})
	if err == nil {
		// a cancel that lands after the last poll still stops the job
		err = token.Err()
	}
	if err != nil {
		if errors.Is(err, cancel.ErrCancelled) {
			logger.Info(ctx, "import cancelled before execution", nil)
		}
		return nil, err
	}

	result := &Result{Summary: importer.Describe(analysis)}
	logger.Info(ctx, "import analyzed", logging.Fields{"summary": result.Summary})

	if req.DryRun {
		result.Plan = importPlan(analysis)
		return result, nil
	}

	reporter := status.New(l.dispatcher.Coordinator(), status.Options{
		Kind:   models.JobImport,
		Total:  analysis.Len(),
		Sink:   req.Sink,
		Source: source,
		Token:  token,
		Logger: l.logger,
	})

	done := make(chan struct{})
	err = work.Submit(func(taskCtx context.Context) {
		defer close(done)

		copied := l.engine.ImportCopy(ctx, analysis, req.Options, reporter, token)
		result.TouchedFolders = copied.TouchedFolders

		// files already in the library must be remembered even after a cancel
		if _, err := queue.Call(taskCtx, l.queue(queue.Database), func(ctx context.Context) (struct{}, error) {
			return struct{}{}, l.history.Save(ctx, copied.Delta)
		}); err != nil {
			logger.Error(ctx, "failed to save history", err, logging.Fields{"records": len(copied.Delta)})
		}

		l.requestReindex(copied.TouchedFolders)
	})
	if err != nil {
		reporter.Complete("import not started")
		return nil, err
	}

	if err := queue.Wait(ctx, done); err != nil {
		return nil, err
	}
	if err := reporter.WaitForComplete(ctx); err != nil {
		return nil, err
	}
	reporter.ShowErrors()

	result.Report = reporter.Report()
	return result, nil
}

// requestReindex posts one reindex request per folder
func (l *Library) requestReindex(folders []string) {
	q := l.queue(queue.ScanFolder)
	for _, folder := range folders {
		folder := folder
		err := q.Submit(func(ctx context.Context) {
			files, _, err := l.backend.List(ctx, folder)
			if err != nil {
				l.logger.Warn(ctx, "reindex failed", logging.Fields{"folder": folder, "error": err.Error()})
				return
			}
			l.logger.Debug(ctx, "folder reindexed", logging.Fields{"folder": folder, "files": len(files)})
			if l.onFolder != nil {
				l.onFolder(ctx, folder, len(files))
			}
		})
		if err != nil {
			l.logger.Warn(context.Background(), "reindex request dropped", logging.Fields{"folder": folder, "error": err.Error()})
		}
	}
}

func importPlan(analysis *models.ImportAnalysis) *output.Plan {
	plan := &output.Plan{Kind: string(models.JobImport)}
	for _, item := range analysis.Items() {
		plan.Entries = append(plan.Entries, output.PlanEntry{
			Path:   item.Source,
			Action: string(item.Action),
			Target: item.Destination,
		})
	}
	return plan
}
