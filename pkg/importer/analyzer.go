// Package importer classifies scanned source files against the library.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/storage"
	"github.com/sdejongh/mediasync/pkg/template"
)

// Prober looks at files without changing them
type Prober interface {
	Stat(ctx context.Context, path string) (*storage.FileInfo, error)
}

// Analyzer builds import plans
type Analyzer struct {
	prober   Prober
	resolver *template.Resolver
	logger   logging.Logger
}

// NewAnalyzer creates an analyzer. A nil resolver uses the built-in tokens.
func NewAnalyzer(prober Prober, resolver *template.Resolver, logger logging.Logger) *Analyzer {
	if resolver == nil {
		resolver = template.NewResolver()
	}
	return &Analyzer{prober: prober, resolver: resolver, logger: logging.OrNull(logger)}
}

// Analyze classifies every item, in this order of precedence:
// already_imported when history knows its record, already_exists when the
// destination is there and may not be replaced, import otherwise. Sidecars
// of an imported item are added to the same folder group when they need to
// move too.
//
// A destination claimed by an earlier item of the same pass counts as
// existing, with the claiming item's modification time. Destinations are
// compared case-insensitively.
//
// The token is polled once per item. On cancellation the items classified
// so far are returned with cancel.ErrCancelled; that partial plan is valid.
func (a *Analyzer) Analyze(ctx context.Context, items []models.ScannedItem, opts models.ImportOptions, history models.RecordSet, token cancel.Token) (*models.ImportAnalysis, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	tmpl, err := a.resolver.Parse(opts.DestStructure)
	if err != nil {
		return nil, &models.ValidationError{Field: "DestStructure", Message: err.Error()}
	}

	analysis := models.NewImportAnalysis()
	claimed := make(claims)

	for _, item := range items {
		if token.IsCancelled() {
			a.logger.Info(ctx, "import analysis cancelled", logging.Fields{"analyzed": analysis.Len()})
			return analysis, cancel.ErrCancelled
		}

		rel := tmpl.Resolve(template.ValuesFor(item))
		folder := filepath.Join(opts.DestFolder, filepath.FromSlash(rel))

		entry := &models.ImportAnalysisItem{
			Source:      item.Path(),
			Destination: filepath.Join(folder, item.Name),
			Created:     item.Created(),
			Record:      models.NewImportRecord(item.Name, item.Modified, item.Size),
			Folder:      folder,
		}

		if history.Contains(entry.Record) {
			entry.Action = models.ImportActionAlreadyImported
			analysis.Add(entry)
			continue
		}

		entry.Action, entry.DestinationExisted = a.classify(ctx, claimed, entry.Destination, item.Modified, opts)
		analysis.Add(entry)

		if entry.Action == models.ImportActionImport && item.Metadata != nil {
			for _, sidecar := range item.Metadata.Sidecars {
				if sc := a.sidecar(ctx, claimed, item, entry, sidecar, opts); sc != nil {
					analysis.Add(sc)
				}
			}
		}
	}

	a.logger.Debug(ctx, "import analysis finished", logging.Fields{
		"items":            analysis.Len(),
		"import":           analysis.Count(models.ImportActionImport),
		"already_exists":   analysis.Count(models.ImportActionAlreadyExists),
		"already_imported": analysis.Count(models.ImportActionAlreadyImported),
	})
	return analysis, nil
}

// claims maps a lower-cased destination to the modification time of the
// item that will be written there
type claims map[string]time.Time

// classify applies the already-exists rule to one destination and claims
// it when the item is to be imported
func (a *Analyzer) classify(ctx context.Context, claimed claims, dest string, modified time.Time, opts models.ImportOptions) (models.ImportAction, bool) {
	key := strings.ToLower(dest)

	existingMod, existed := claimed[key]
	if !existed {
		existing, err := a.prober.Stat(ctx, dest)
		if err == nil {
			existingMod, existed = existing.ModTime, true
		} else if !errors.Is(err, os.ErrNotExist) {
			a.logger.Warn(ctx, "failed to stat destination", logging.Fields{"path": dest, "error": err.Error()})
		}
	}

	if existed && (!opts.OverwriteIfNewer || !models.NewerThan(modified, existingMod)) {
		return models.ImportActionAlreadyExists, true
	}
	claimed[key] = modified
	return models.ImportActionImport, existed
}

// sidecar builds the entry for one sidecar of an imported primary, or nil
// when it does not need to move. The destination keeps the primary's
// destination stem with the sidecar's own extension.
func (a *Analyzer) sidecar(ctx context.Context, claimed claims, item models.ScannedItem, primary *models.ImportAnalysisItem, name string, opts models.ImportOptions) *models.ImportAnalysisItem {
	src := filepath.Join(item.Folder, name)
	info, err := a.prober.Stat(ctx, src)
	if err != nil {
		a.logger.Warn(ctx, "sidecar vanished", logging.Fields{"path": src, "error": err.Error()})
		return nil
	}

	destBase := filepath.Base(primary.Destination)
	destName := strings.TrimSuffix(destBase, filepath.Ext(destBase)) + filepath.Ext(name)
	dest := filepath.Join(primary.Folder, destName)

	action, existed := a.classify(ctx, claimed, dest, info.ModTime, opts)
	if action != models.ImportActionImport {
		return nil
	}

	return &models.ImportAnalysisItem{
		Source:             src,
		Destination:        dest,
		Action:             action,
		Created:            primary.Created,
		Record:             models.NewImportRecord(name, info.ModTime, info.Size),
		DestinationExisted: existed,
		Folder:             primary.Folder,
		Sidecar:            true,
	}
}

// Describe returns a one-line description of an analysis, for logs and dry runs
func Describe(analysis *models.ImportAnalysis) string {
	return fmt.Sprintf("%d to import, %d already exist, %d already imported",
		analysis.Count(models.ImportActionImport),
		analysis.Count(models.ImportActionAlreadyExists),
		analysis.Count(models.ImportActionAlreadyImported))
}
