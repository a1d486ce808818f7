package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sdejongh/mediasync/pkg/history"
)

const appName = "mediasync"

// LoadFromFile reads path over the defaults. Unknown keys are rejected so a
// misspelled option does not silently fall back to its default.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToFile validates cfg and writes it through a temp file, so a failed
// write never leaves a truncated config behind
func SaveToFile(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// DefaultConfigPath is $HOME/.config/mediasync/config.yaml
func DefaultConfigPath() (string, error) {
	return homePath(".config", "config.yaml")
}

// DefaultHistoryPath is where the history lives when history.path is empty
func DefaultHistoryPath(backend history.Backend) (string, error) {
	name := "history.db"
	if backend == history.BackendJSON {
		name = "history.json"
	}
	return homePath(filepath.Join(".local", "share"), name)
}

// HistoryPath returns the configured history path or the default one
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	return DefaultHistoryPath(c.History.Backend)
}

// LoadDefault loads the default config file, or the defaults when there is none
func LoadDefault() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func homePath(base, name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, base, appName, name), nil
}
