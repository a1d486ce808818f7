package scan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/storage"
)

// DefaultSidecarExtensions are attached to a primary file with the same stem
var DefaultSidecarExtensions = []string{"xmp", "aae", "thm"}

// Scanner produces the ScannedItems of one or more source roots
type Scanner struct {
	walker     storage.Walker
	exclusions *Exclusions
	sidecars   map[string]struct{}
	logger     logging.Logger
}

// NewScanner creates a scanner. sidecarExts are matched without the dot,
// case-insensitively.
func NewScanner(walker storage.Walker, ex *Exclusions, sidecarExts []string, logger logging.Logger) *Scanner {
	s := &Scanner{
		walker:     walker,
		exclusions: ex,
		sidecars:   make(map[string]struct{}, len(sidecarExts)),
		logger:     logging.OrNull(logger),
	}
	for _, ext := range sidecarExts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			s.sidecars[ext] = struct{}{}
		}
	}
	return s
}

// Scan walks every root. On cancellation the items found so far are
// returned with cancel.ErrCancelled. A missing root fails the scan.
func (s *Scanner) Scan(ctx context.Context, roots []string, token cancel.Token) ([]models.ScannedItem, error) {
	var items []models.ScannedItem

	for _, root := range roots {
		ok, err := s.walker.Exists(ctx, root)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("source folder %s does not exist", root)
		}

		err = Walk(ctx, s.walker, root, s.exclusions, token, Visitor{
			Folder: func(rel string, files []storage.FileInfo) error {
				items = append(items, s.folderItems(filepath.Join(root, filepath.FromSlash(rel)), files)...)
				return nil
			},
		})
		if errors.Is(err, cancel.ErrCancelled) {
			return items, err
		}
		if err != nil {
			return nil, err
		}
	}

	s.logger.Debug(ctx, "source scan finished", logging.Fields{"roots": len(roots), "items": len(items)})
	return items, nil
}

// folderItems turns one folder listing into items, attaching sidecars to
// every primary file sharing their stem (IMG_1.jpg and IMG_1.cr2 both get
// IMG_1.xmp). Sidecars without a primary are imported as ordinary files.
func (s *Scanner) folderItems(folder string, files []storage.FileInfo) []models.ScannedItem {
	primaries := make(map[string][]int)
	var items []models.ScannedItem
	var sidecars []storage.FileInfo

	for _, f := range files {
		if s.isSidecar(f.Name) {
			sidecars = append(sidecars, f)
			continue
		}
		key := stemKey(f.Name)
		primaries[key] = append(primaries[key], len(items))
		items = append(items, toItem(folder, f))
	}

	for _, sc := range sidecars {
		owners, ok := primaries[stemKey(sc.Name)]
		if !ok {
			items = append(items, toItem(folder, sc))
			continue
		}
		for _, idx := range owners {
			if items[idx].Metadata == nil {
				items[idx].Metadata = &models.Metadata{}
			}
			items[idx].Metadata.Sidecars = append(items[idx].Metadata.Sidecars, sc.Name)
		}
	}

	return items
}

func (s *Scanner) isSidecar(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := s.sidecars[ext]
	return ok
}

func stemKey(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
}

func toItem(folder string, f storage.FileInfo) models.ScannedItem {
	return models.ScannedItem{
		Name:     f.Name,
		Folder:   folder,
		Size:     f.Size,
		Modified: f.ModTime,
	}
}
