package config

import (
	"github.com/sdejongh/mediasync/pkg/history"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/scan"
	"github.com/sdejongh/mediasync/pkg/template"
)

// Config represents the application configuration
type Config struct {
	Import          ImportConfig      `yaml:"import"`
	Sync            SyncConfig        `yaml:"sync"`
	History         HistoryConfig     `yaml:"history"`
	Performance     PerformanceConfig `yaml:"performance"`
	Output          OutputConfig      `yaml:"output"`
	Logging         LoggingConfig     `yaml:"logging"`
	Exclude         []string          `yaml:"exclude"`
	ExcludePatterns []string          `yaml:"exclude_patterns"`
}

// ImportConfig holds import-related settings
type ImportConfig struct {
	DestFolder        string               `yaml:"dest_folder"`
	DestStructure     string               `yaml:"dest_structure"`
	Move              bool                 `yaml:"move"`
	OverwriteIfNewer  bool                 `yaml:"overwrite_if_newer"`
	SetCreatedDate    bool                 `yaml:"set_created_date"`
	SidecarExtensions []string             `yaml:"sidecar_extensions"`
	FailurePolicy     models.FailurePolicy `yaml:"failure_policy"`
}

// SyncConfig holds sync-related settings
type SyncConfig struct {
	LocalRoots        []string `yaml:"local_roots"`
	RemoteRoot        string   `yaml:"remote_root"`
	models.SyncPolicy `yaml:",inline"`
	FailurePolicy     models.FailurePolicy `yaml:"failure_policy"`
}

// HistoryConfig selects the dedup history store
type HistoryConfig struct {
	Backend history.Backend `yaml:"backend"`
	Path    string          `yaml:"path"` // empty = default location
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	BufferSize     int   `yaml:"buffer_size"`
	BandwidthLimit int64 `yaml:"bandwidth_limit"` // bytes per second, 0 = unlimited
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Format string `yaml:"format"` // "json" or "text"
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	File   string `yaml:"file"`   // Log file path (empty = stderr)
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			DestStructure:     "{year}/{created}",
			SidecarExtensions: append([]string(nil), scan.DefaultSidecarExtensions...),
			FailurePolicy:     models.FailureContinue,
		},
		Sync: SyncConfig{
			SyncPolicy:    models.SyncPolicy{LocalToRemote: true},
			FailurePolicy: models.FailureContinue,
		},
		History: HistoryConfig{
			Backend: history.BackendSQLite,
		},
		Performance: PerformanceConfig{
			BufferSize:     65536,
			BandwidthLimit: 0,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "warn",
			File:   "",
		},
		Exclude: []string{
			".git",
			"@eaDir",
			"$RECYCLE.BIN",
		},
		ExcludePatterns: []string{
			".*",
		},
	}
}

// ImportOptions returns the import options described by the config
func (c *Config) ImportOptions() models.ImportOptions {
	return models.ImportOptions{
		DestFolder:       c.Import.DestFolder,
		DestStructure:    c.Import.DestStructure,
		Move:             c.Import.Move,
		OverwriteIfNewer: c.Import.OverwriteIfNewer,
		SetCreatedDate:   c.Import.SetCreatedDate,
	}
}

// Exclusions builds the folder exclusion rules
func (c *Config) Exclusions() *scan.Exclusions {
	return scan.NewExclusions(c.Exclude, c.ExcludePatterns)
}

// Validate checks if the configuration is valid.
// Paths are checked by the commands that need them.
func (c *Config) Validate() error {
	if _, err := template.NewResolver().Parse(c.Import.DestStructure); err != nil {
		return &models.ValidationError{
			Field:   "import.dest_structure",
			Message: err.Error(),
		}
	}

	if !c.Import.FailurePolicy.Valid() {
		return &models.ValidationError{
			Field:   "import.failure_policy",
			Message: "must be 'continue' or 'stop'",
		}
	}

	if !c.Sync.FailurePolicy.Valid() {
		return &models.ValidationError{
			Field:   "sync.failure_policy",
			Message: "must be 'continue' or 'stop'",
		}
	}

	if !c.History.Backend.Valid() {
		return &models.ValidationError{
			Field:   "history.backend",
			Message: "must be 'sqlite' or 'json'",
		}
	}

	if c.Performance.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "performance.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if c.Performance.BandwidthLimit < 0 {
		return &models.ValidationError{
			Field:   "performance.bandwidth_limit",
			Message: "must not be negative",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}
