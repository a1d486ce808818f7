package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
)

const historyFileVersion = 1

// historyFile is the on-disk layout of a JSONStore
type historyFile struct {
	// Version for history file format compatibility
	Version int `json:"version"`

	// Updated is when the file was last written
	Updated time.Time `json:"updated"`

	Records []models.ImportRecord `json:"records"`
}

// JSONStore keeps the history in a single JSON file, rewritten atomically
// on every change
type JSONStore struct {
	fs     afero.Fs
	path   string
	logger logging.Logger
	mu     sync.Mutex
}

// NewJSONStore creates a store over path. The file is created on first save.
func NewJSONStore(fs afero.Fs, path string, logger logging.Logger) *JSONStore {
	return &JSONStore{fs: fs, path: path, logger: logging.OrNull(logger)}
}

// Load returns every known record. A missing file is an empty history.
func (s *JSONStore) Load(ctx context.Context) (models.RecordSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save merges delta into the file
func (s *JSONStore) Save(ctx context.Context, delta models.RecordSet) error {
	if len(delta) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.load()
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	for _, r := range delta {
		if r.Imported.IsZero() {
			r.Imported = now
		}
		set.Add(r)
	}

	if err := s.write(set); err != nil {
		return err
	}
	s.logger.Info(ctx, "history saved", logging.Fields{"records": len(delta), "path": s.path})
	return nil
}

// Reset removes the history file
func (s *JSONStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to reset history: %w", err)
	}
	s.logger.Warn(ctx, "history reset", logging.Fields{"path": s.path})
	return nil
}

// Count returns the number of records
func (s *JSONStore) Count(ctx context.Context) (int, error) {
	set, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(set), nil
}

// Close does nothing; the file is closed after every access
func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) load() (models.RecordSet, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewRecordSet(), nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var file historyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}

	if file.Version > historyFileVersion {
		return nil, fmt.Errorf("history file version %d is newer than supported version %d", file.Version, historyFileVersion)
	}

	return models.NewRecordSet(file.Records...), nil
}

func (s *JSONStore) write(set models.RecordSet) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(historyFile{
		Version: historyFileVersion,
		Updated: time.Now().UTC(),
		Records: set.Records(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	// Write atomically using temp file
	tmpPath := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to finalize history file: %w", err)
	}
	return nil
}
