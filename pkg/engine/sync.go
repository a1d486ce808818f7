package engine

import (
	"context"
	"fmt"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/status"
)

// SyncCopy executes every action of a sync plan other than none. Paths
// mirror existing trees, so no folders are prepared up front. Complete is
// called exactly once before SyncCopy returns.
func (e *Engine) SyncCopy(ctx context.Context, plan models.SyncPlan, r Reporter, token cancel.Token) {
	scope := status.NewResultScope(r)
	defer scope.Close()
	scope.SetMessage("sync interrupted")

	b := &batch{token: token, r: r, policy: e.config.SyncFailure}

	var items []*models.SyncAnalysisItem
	for _, item := range plan.Sorted() {
		if item.Action != models.SyncNone {
			items = append(items, item)
		}
	}

	for i, item := range items {
		name := item.RelativePath
		if i == 0 || i%50 == 0 {
			r.Message(name, i, len(items))
		}

		if st, ok := b.skip(); ok {
			r.EndItem(name, st, nil)
			continue
		}

		r.StartItem(name)
		st, err := e.run(ctx, name, func() error { return e.syncItem(ctx, item) })
		r.EndItem(name, st, err)
		b.record(st)

		if err != nil && st == models.ItemFail {
			e.logger.Warn(ctx, "sync action failed", logging.Fields{"path": name, "action": string(item.Action), "error": err.Error()})
		}
	}

	scope.SetMessage("")
}

func (e *Engine) syncItem(ctx context.Context, item *models.SyncAnalysisItem) error {
	switch item.Action {
	case models.SyncCopyLocal:
		return e.ops.Copy(ctx, item.RemotePath(), item.LocalPath(), false)
	case models.SyncCopyRemote:
		return e.ops.Copy(ctx, item.LocalPath(), item.RemotePath(), false)
	case models.SyncDeleteLocal:
		return e.ops.Delete(ctx, item.LocalPath())
	case models.SyncDeleteRemote:
		return e.ops.Delete(ctx, item.RemotePath())
	default:
		return fmt.Errorf("unknown sync action %q", item.Action)
	}
}
