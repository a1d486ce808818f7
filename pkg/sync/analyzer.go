// Package sync reconciles local library roots with a remote root.
package sync

import (
	"context"
	"errors"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/scan"
	"github.com/sdejongh/mediasync/pkg/storage"
)

// Analyzer builds sync plans
type Analyzer struct {
	local      storage.Walker
	remote     storage.Walker
	exclusions *scan.Exclusions
	logger     logging.Logger
}

// NewAnalyzer creates an analyzer walking local roots with local and the
// remote root with remote
func NewAnalyzer(local, remote storage.Walker, ex *scan.Exclusions, logger logging.Logger) *Analyzer {
	return &Analyzer{local: local, remote: remote, exclusions: ex, logger: logging.OrNull(logger)}
}

// localTree is what the local walks observed
type localTree struct {
	files map[string]*localFile
	// folderRoots maps a relative folder to the first local root holding it
	folderRoots map[string]string
}

type localFile struct {
	side models.SyncSide
	root string
}

// Analyze walks every local root and the remote root, merges both views by
// relative path and assigns each path its action.
//
// The local and remote walks run concurrently. If the token trips the
// plan built so far is discarded: an empty plan is returned with
// cancel.ErrCancelled, since acting on half a tree could delete files whose
// counterpart simply was not reached yet.
func (a *Analyzer) Analyze(ctx context.Context, localRoots []string, remoteRoot string, policy models.SyncPolicy, token cancel.Token) (models.SyncPlan, error) {
	g, gctx := errgroup.WithContext(ctx)
	walkToken := token.WithContext(gctx)

	var local localTree
	var remote map[string]models.SyncSide

	g.Go(func() error {
		var err error
		local, err = a.walkLocal(gctx, localRoots, walkToken)
		return err
	})
	g.Go(func() error {
		var err error
		remote, err = a.walkRemote(gctx, remoteRoot, walkToken)
		return err
	})

	if err := g.Wait(); err != nil {
		if token.IsCancelled() || errors.Is(err, cancel.ErrCancelled) || errors.Is(err, context.Canceled) {
			a.logger.Info(ctx, "sync analysis cancelled", nil)
			return models.SyncPlan{}, cancel.ErrCancelled
		}
		return models.SyncPlan{}, err
	}
	if token.IsCancelled() {
		return models.SyncPlan{}, cancel.ErrCancelled
	}

	plan := make(models.SyncPlan, len(local.files)+len(remote))
	for rel, f := range local.files {
		side := f.side
		plan[rel] = &models.SyncAnalysisItem{
			RelativePath: rel,
			Local:        &side,
			LocalRoot:    f.root,
			RemoteRoot:   remoteRoot,
		}
	}
	for rel, side := range remote {
		side := side
		item, ok := plan[rel]
		if !ok {
			item = &models.SyncAnalysisItem{RelativePath: rel, RemoteRoot: remoteRoot}
			plan[rel] = item
		}
		item.Remote = &side
	}

	for _, item := range plan {
		if item.LocalRoot == "" {
			item.LocalRoot = attributeRoot(item.RelativePath, local.folderRoots, localRoots)
		}
		decideItem(item, policy)
	}

	a.logger.Debug(ctx, "sync analysis finished", logging.Fields{
		"paths":         len(plan),
		"copy_local":    plan.Count(models.SyncCopyLocal),
		"copy_remote":   plan.Count(models.SyncCopyRemote),
		"delete_local":  plan.Count(models.SyncDeleteLocal),
		"delete_remote": plan.Count(models.SyncDeleteRemote),
	})
	return plan, nil
}

func (a *Analyzer) walkLocal(ctx context.Context, roots []string, token cancel.Token) (localTree, error) {
	tree := localTree{
		files:       make(map[string]*localFile),
		folderRoots: make(map[string]string),
	}

	for _, root := range roots {
		root := root
		err := scan.Walk(ctx, a.local, root, a.exclusions, token, scan.Visitor{
			Folder: func(rel string, _ []storage.FileInfo) error {
				if _, ok := tree.folderRoots[rel]; !ok {
					tree.folderRoots[rel] = root
				}
				return nil
			},
			File: func(rel string, f storage.FileInfo) error {
				if prev, ok := tree.files[rel]; ok {
					a.logger.Warn(ctx, "path present in several local roots", logging.Fields{
						"path": rel, "kept": prev.root, "ignored": root,
					})
					return nil
				}
				tree.files[rel] = &localFile{
					side: models.SyncSide{Path: f.Path, Size: f.Size, Modified: f.ModTime},
					root: root,
				}
				return nil
			},
		})
		if err != nil {
			return tree, err
		}
	}

	return tree, nil
}

func (a *Analyzer) walkRemote(ctx context.Context, root string, token cancel.Token) (map[string]models.SyncSide, error) {
	files := make(map[string]models.SyncSide)
	err := scan.Walk(ctx, a.remote, root, a.exclusions, token, scan.Visitor{
		File: func(rel string, f storage.FileInfo) error {
			files[rel] = models.SyncSide{Path: f.Path, Size: f.Size, Modified: f.ModTime}
			return nil
		},
	})
	return files, err
}

// attributeRoot finds the local root for a path seen only remotely: the
// root of its nearest ancestor folder seen locally, else the first root
func attributeRoot(rel string, folderRoots map[string]string, roots []string) string {
	dir := path.Dir(rel)
	for {
		if dir == "." {
			dir = ""
		}
		if root, ok := folderRoots[dir]; ok {
			return root
		}
		if dir == "" {
			break
		}
		dir = path.Dir(dir)
	}
	if len(roots) > 0 {
		return roots[0]
	}
	return ""
}
