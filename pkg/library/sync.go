package library

import (
	"context"
	"fmt"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/output"
	"github.com/sdejongh/mediasync/pkg/queue"
	"github.com/sdejongh/mediasync/pkg/status"
	"github.com/sdejongh/mediasync/pkg/sync"
)

// SyncRequest describes one sync job
type SyncRequest struct {
	LocalRoots []string
	RemoteRoot string
	Policy     models.SyncPolicy
	DryRun     bool
	Sink       output.Formatter
	Source     *cancel.Source
}

// Sync reconciles the local roots with the remote root and applies the
// resulting plan. A cancelled analysis yields no plan and cancel.ErrCancelled.
func (l *Library) Sync(ctx context.Context, req SyncRequest) (*Result, error) {
	if len(req.LocalRoots) == 0 {
		return nil, &models.ValidationError{Field: "LocalRoots", Message: "at least one local root is required"}
	}
	if req.RemoteRoot == "" {
		return nil, &models.ValidationError{Field: "RemoteRoot", Message: "remote root is required"}
	}

	source := req.Source
	if source == nil {
		source = cancel.NewJob()
	}
	token := source.Token().WithContext(ctx)
	work := l.queue(queue.Work)
	logger := l.logger.WithFields(logging.Fields{"job": "sync", "remote": req.RemoteRoot})

	plan, err := queue.Call(ctx, work, func(taskCtx context.Context) (models.SyncPlan, error) {
		analyzer := sync.NewAnalyzer(l.backend, l.remote, l.exclusions, logger)
		return analyzer.Analyze(ctx, req.LocalRoots, req.RemoteRoot, req.Policy, token)
	})
	if err == nil {
		// a cancel that lands after the last poll still stops the job
		err = token.Err()
	}
	if err != nil {
		return nil, err
	}

	result := &Result{Summary: describeSync(plan)}
	logger.Info(ctx, "sync analyzed", logging.Fields{"summary": result.Summary})

	if req.DryRun {
		result.Plan = syncPlan(plan)
		return result, nil
	}

	reporter := status.New(l.dispatcher.Coordinator(), status.Options{
		Kind:   models.JobSync,
		Total:  len(plan) - plan.Count(models.SyncNone),
		Sink:   req.Sink,
		Source: source,
		Token:  token,
		Logger: l.logger,
	})

	err = work.Submit(func(context.Context) {
		l.engine.SyncCopy(ctx, plan, reporter, token)
	})
	if err != nil {
		reporter.Complete("sync not started")
		return nil, err
	}

	if err := reporter.WaitForComplete(ctx); err != nil {
		return nil, err
	}
	reporter.ShowErrors()

	result.Report = reporter.Report()
	return result, nil
}

func describeSync(plan models.SyncPlan) string {
	return fmt.Sprintf("%d to copy locally, %d to copy remotely, %d to delete locally, %d to delete remotely, %d unchanged",
		plan.Count(models.SyncCopyLocal),
		plan.Count(models.SyncCopyRemote),
		plan.Count(models.SyncDeleteLocal),
		plan.Count(models.SyncDeleteRemote),
		plan.Count(models.SyncNone))
}

func syncPlan(plan models.SyncPlan) *output.Plan {
	out := &output.Plan{Kind: string(models.JobSync)}
	for _, item := range plan.Sorted() {
		entry := output.PlanEntry{Path: item.RelativePath, Action: string(item.Action)}
		switch item.Action {
		case models.SyncCopyLocal, models.SyncDeleteLocal:
			entry.Target = item.LocalPath()
		case models.SyncCopyRemote, models.SyncDeleteRemote:
			entry.Target = item.RemotePath()
		}
		out.Entries = append(out.Entries, entry)
	}
	return out
}
