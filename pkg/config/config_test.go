package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sdejongh/mediasync/pkg/history"
	"github.com/sdejongh/mediasync/pkg/models"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"UnknownToken", func(c *Config) { c.Import.DestStructure = "{year}/{lens}" }, "import.dest_structure"},
		{"ImportPolicy", func(c *Config) { c.Import.FailurePolicy = "retry" }, "import.failure_policy"},
		{"SyncPolicy", func(c *Config) { c.Sync.FailurePolicy = "" }, "sync.failure_policy"},
		{"HistoryBackend", func(c *Config) { c.History.Backend = "redis" }, "history.backend"},
		{"BufferSize", func(c *Config) { c.Performance.BufferSize = 10 }, "performance.buffer_size"},
		{"Bandwidth", func(c *Config) { c.Performance.BandwidthLimit = -1 }, "performance.bandwidth_limit"},
		{"OutputFormat", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"LogFormat", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"LogLevel", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %s, want %s", verr.Field, tt.field)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := `
import:
  dest_folder: /photos
  dest_structure: "{year}/{month}/{camera}"
  move: true
  failure_policy: stop
sync:
  local_roots: [/photos]
  remote_root: /mnt/nas/photos
  remote_to_local: true
  delete_remote: true
history:
  backend: json
exclude:
  - Thumbnails
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Import.DestFolder != "/photos" || !cfg.Import.Move {
		t.Errorf("import section not loaded: %+v", cfg.Import)
	}
	if cfg.Import.FailurePolicy != models.FailureStop {
		t.Errorf("FailurePolicy = %s, want stop", cfg.Import.FailurePolicy)
	}
	// unset keys keep their defaults
	if cfg.Sync.FailurePolicy != models.FailureContinue {
		t.Errorf("sync FailurePolicy = %s, want continue", cfg.Sync.FailurePolicy)
	}
	if !cfg.Sync.LocalToRemote || !cfg.Sync.RemoteToLocal || !cfg.Sync.DeleteRemote || cfg.Sync.DeleteLocal {
		t.Errorf("sync policy = %+v", cfg.Sync.SyncPolicy)
	}
	if cfg.History.Backend != history.BackendJSON {
		t.Errorf("Backend = %s, want json", cfg.History.Backend)
	}
	if !cfg.Exclusions().Folder("2024/Thumbnails") {
		t.Error("configured exclusion not applied")
	}

	opts := cfg.ImportOptions()
	if opts.DestStructure != "{year}/{month}/{camera}" || !opts.Move {
		t.Errorf("ImportOptions() = %+v", opts)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing", func(t *testing.T) {
		if _, err := LoadFromFile(filepath.Join(dir, "none.yaml")); err == nil {
			t.Error("LoadFromFile() should fail for a missing file")
		}
	})

	t.Run("BadYAML", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		os.WriteFile(path, []byte("import: [unterminated"), 0644)
		if _, err := LoadFromFile(path); err == nil {
			t.Error("LoadFromFile() should fail for malformed YAML")
		}
	})

	t.Run("UnknownKey", func(t *testing.T) {
		path := filepath.Join(dir, "typo.yaml")
		os.WriteFile(path, []byte("import:\n  dest_foldr: /photos\n"), 0644)
		if _, err := LoadFromFile(path); err == nil {
			t.Error("LoadFromFile() should reject an unknown key")
		}
	})

	t.Run("BadTemplate", func(t *testing.T) {
		path := filepath.Join(dir, "tmpl.yaml")
		os.WriteFile(path, []byte("import:\n  dest_structure: \"{year\"\n"), 0644)
		if _, err := LoadFromFile(path); err == nil {
			t.Error("LoadFromFile() should reject an unclosed token")
		}
	})
}

func TestLoadFromFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Import.DestStructure != Default().Import.DestStructure {
		t.Errorf("DestStructure = %q, want the default", cfg.Import.DestStructure)
	}
}

func TestSaveToFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Import.DestFolder = "/library"
	cfg.Sync.RemoteRoot = "/remote"
	if err := SaveToFile(cfg, path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Import.DestFolder != "/library" || loaded.Sync.RemoteRoot != "/remote" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
	if !loaded.Sync.LocalToRemote {
		t.Error("inline sync policy not saved")
	}

	cfg.Output.Format = "xml"
	if err := SaveToFile(cfg, path); err == nil {
		t.Error("SaveToFile() should refuse an invalid config")
	}
}

func TestHistoryPath(t *testing.T) {
	cfg := Default()
	cfg.History.Path = "/data/h.db"
	if p, _ := cfg.HistoryPath(); p != "/data/h.db" {
		t.Errorf("HistoryPath() = %s", p)
	}

	cfg.History.Path = ""
	cfg.History.Backend = history.BackendJSON
	p, err := cfg.HistoryPath()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if filepath.Base(p) != "history.json" {
		t.Errorf("HistoryPath() = %s, want history.json", p)
	}
}
