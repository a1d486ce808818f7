package engine

import (
	"context"
	"fmt"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/status"
	"github.com/sdejongh/mediasync/pkg/storage"
)

// ImportResult is what a finished import hands back to its caller
type ImportResult struct {
	// Delta holds the records of every file imported by this run
	Delta models.RecordSet
	// TouchedFolders lists the destination folders written to, in order
	TouchedFolders []string
}

// ImportCopy executes an import plan. Each destination folder is created
// once, then every item marked import is moved or copied into it. Items
// needing no work are reported ignored. Complete is called exactly once
// before ImportCopy returns, whatever happens.
func (e *Engine) ImportCopy(ctx context.Context, analysis *models.ImportAnalysis, opts models.ImportOptions, r Reporter, token cancel.Token) (result ImportResult) {
	result.Delta = models.NewRecordSet()

	scope := status.NewResultScope(r)
	defer scope.Close()
	scope.SetMessage("import interrupted")

	b := &batch{token: token, r: r, policy: e.config.ImportFailure}
	touched := make(map[string]bool)
	total := analysis.Len()
	pos := 0

	for _, group := range analysis.Groups() {
		r.Message(group.Folder, pos, total)

		folderErr := e.prepareFolder(ctx, group, b)
		if folderErr != nil {
			r.Abort(folderErr)
			b.record(models.ItemFail)
		}

		for _, item := range group.Items {
			pos++
			name := item.Source

			if st, ok := b.skip(); ok {
				r.EndItem(name, st, nil)
				continue
			}
			if item.Action != models.ImportActionImport {
				r.EndItem(name, models.ItemIgnored, nil)
				continue
			}
			if folderErr != nil {
				r.EndItem(name, models.ItemFail, folderErr)
				continue
			}

			r.StartItem(name)
			st, err := e.run(ctx, name, func() error { return e.importItem(ctx, item, opts) })
			r.EndItem(name, st, err)
			b.record(st)

			if st == models.ItemSuccess {
				result.Delta.Add(item.Record)
				if !touched[item.Folder] {
					touched[item.Folder] = true
					result.TouchedFolders = append(result.TouchedFolders, item.Folder)
				}
			} else if err != nil {
				e.logger.Warn(ctx, "import failed", logging.Fields{"source": item.Source, "destination": item.Destination, "error": err.Error()})
			}
		}
	}

	scope.SetMessage("")
	return result
}

// prepareFolder creates the destination folder of a group when at least one
// of its items will be attempted
func (e *Engine) prepareFolder(ctx context.Context, group *models.ImportGroup, b *batch) error {
	if _, skipped := b.skip(); skipped {
		return nil
	}

	needed := false
	for _, item := range group.Items {
		if item.Action == models.ImportActionImport {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}

	err := e.ops.CreateFolder(ctx, group.Folder)
	if err != nil && storage.Classify(err) != storage.ResultAlreadyExists {
		return fmt.Errorf("failed to create folder %s: %w", group.Folder, err)
	}
	return nil
}

func (e *Engine) importItem(ctx context.Context, item *models.ImportAnalysisItem, opts models.ImportOptions) error {
	failIfExists := !opts.OverwriteIfNewer

	var err error
	if opts.Move {
		err = e.ops.Move(ctx, item.Source, item.Destination, failIfExists)
	} else {
		err = e.ops.Copy(ctx, item.Source, item.Destination, failIfExists)
	}
	if err != nil {
		return err
	}

	if opts.SetCreatedDate && !item.Created.IsZero() {
		if err := e.ops.SetCreatedDate(ctx, item.Destination, item.Created); err != nil {
			return err
		}
	}
	return nil
}
