// Package history persists the dedup records of imported files.
//
// Records are only ever added by a finished import and only removed by an
// explicit Reset.
package history

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
)

// Store is a dedup history backend
type Store interface {
	// Load returns every known record
	Load(ctx context.Context) (models.RecordSet, error)

	// Save adds the records of delta; records already known are left untouched
	Save(ctx context.Context, delta models.RecordSet) error

	// Reset removes every record
	Reset(ctx context.Context) error

	// Count returns the number of records
	Count(ctx context.Context) (int, error)

	// Close releases the backend
	Close() error
}

// Backend names a Store implementation
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendJSON   Backend = "json"
)

// Valid reports whether b is a known backend
func (b Backend) Valid() bool {
	return b == BackendSQLite || b == BackendJSON
}

// Open opens the history at path with the given backend
func Open(backend Backend, path string, logger logging.Logger) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		return OpenSQLite(path, logger)
	case BackendJSON:
		return NewJSONStore(afero.NewOsFs(), path, logger), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", backend)
	}
}
