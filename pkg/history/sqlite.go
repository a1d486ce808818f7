package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
)

var schema = []string{
	`PRAGMA journal_mode=WAL;`,
	`PRAGMA busy_timeout=5000;`,
	`
CREATE TABLE IF NOT EXISTS import_history (
	name TEXT NOT NULL,
	modified INTEGER NOT NULL, -- unix seconds
	size INTEGER NOT NULL,
	imported INTEGER NOT NULL,

	PRIMARY KEY (name, modified, size)
);
`,
}

// SQLiteStore keeps the history in a SQLite database
type SQLiteStore struct {
	db     *sql.DB
	logger logging.Logger
}

// OpenSQLite opens or creates the database at path
func OpenSQLite(path string, logger logging.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// all access goes through the database queue anyway
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize history database: %w", err)
		}
	}

	return &SQLiteStore{db: db, logger: logging.OrNull(logger)}, nil
}

// Load returns every known record
func (s *SQLiteStore) Load(ctx context.Context) (models.RecordSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, modified, size, imported FROM import_history`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	set := models.NewRecordSet()
	for rows.Next() {
		var name string
		var modified, size, imported int64
		if err := rows.Scan(&name, &modified, &size, &imported); err != nil {
			return nil, fmt.Errorf("failed to read history row: %w", err)
		}
		set.Add(models.ImportRecord{
			Name:     name,
			Modified: time.Unix(modified, 0).UTC(),
			Size:     size,
			Imported: time.Unix(imported, 0).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	s.logger.Debug(ctx, "history loaded", logging.Fields{"records": len(set)})
	return set, nil
}

// Save adds the records of delta in a single transaction
func (s *SQLiteStore) Save(ctx context.Context, delta models.RecordSet) error {
	if len(delta) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO import_history (name, modified, size, imported)
VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range delta.Records() {
		imported := r.Imported
		if imported.IsZero() {
			imported = now
		}
		if _, err := stmt.ExecContext(ctx, r.Name, r.Modified.Unix(), r.Size, imported.Unix()); err != nil {
			return fmt.Errorf("failed to insert %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}

	s.logger.Info(ctx, "history saved", logging.Fields{"records": len(delta)})
	return nil
}

// Reset removes every record
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM import_history`); err != nil {
		return fmt.Errorf("failed to reset history: %w", err)
	}
	s.logger.Warn(ctx, "history reset", nil)
	return nil
}

// Count returns the number of records
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM import_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
