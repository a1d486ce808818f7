// Package scan walks source and library trees.
package scan

import (
	"context"
	"fmt"
	"path"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/storage"
)

// Visitor receives what a walk finds. Relative paths use forward slashes;
// the root itself is "".
type Visitor struct {
	// Folder is called once per folder with its files, before File
	Folder func(rel string, files []storage.FileInfo) error
	// File is called for every file
	File func(rel string, file storage.FileInfo) error
}

type frame struct {
	path string
	rel  string
}

// Walk visits root depth-first using an explicit stack, pruning excluded
// folders before their children are listed. token is polled on every
// folder taken off the stack and every file; once it trips Walk returns
// cancel.ErrCancelled.
func Walk(ctx context.Context, w storage.Walker, root string, ex *Exclusions, token cancel.Token, v Visitor) error {
	stack := []frame{{path: root}}

	for len(stack) > 0 {
		if token.IsCancelled() {
			return cancel.ErrCancelled
		}

		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		files, folders, err := w.List(ctx, top.path)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", top.path, err)
		}

		if v.Folder != nil {
			if err := v.Folder(top.rel, files); err != nil {
				return err
			}
		}

		for _, f := range files {
			if token.IsCancelled() {
				return cancel.ErrCancelled
			}
			if v.File != nil {
				if err := v.File(path.Join(top.rel, f.Name), f); err != nil {
					return err
				}
			}
		}

		// reverse push so folders come off the stack in name order
		for i := len(folders) - 1; i >= 0; i-- {
			rel := path.Join(top.rel, folders[i].Name)
			if ex.Folder(rel) {
				continue
			}
			stack = append(stack, frame{path: folders[i].Path, rel: rel})
		}
	}

	return nil
}
