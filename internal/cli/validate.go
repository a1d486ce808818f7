package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sdejongh/mediasync/internal/platform"
	"github.com/sdejongh/mediasync/pkg/config"
	"github.com/sdejongh/mediasync/pkg/models"
)

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyGlobalFlags overrides config values with the persistent flags
func applyGlobalFlags(cfg *config.Config) {
	// Output format
	if globalFlags.Output != "" {
		cfg.Output.Format = globalFlags.Output
	}

	// Logging
	if globalFlags.LogFile != "" {
		cfg.Logging.File = globalFlags.LogFile
	}
	if globalFlags.LogFormat != "" {
		cfg.Logging.Format = globalFlags.LogFormat
	}
	if globalFlags.LogLevel != "" {
		cfg.Logging.Level = globalFlags.LogLevel
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	// Enable progress and chattier logs in verbose mode
	if globalFlags.Verbose {
		cfg.Output.Progress = true
		if globalFlags.LogLevel == "" {
			cfg.Logging.Level = "info"
		}
	}
}

// applyImportFlags overrides the import section with the import command flags
func applyImportFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if importFlags.Dest != "" {
		cfg.Import.DestFolder = importFlags.Dest
	}
	if importFlags.Structure != "" {
		cfg.Import.DestStructure = importFlags.Structure
	}
	if flags.Changed("move") {
		cfg.Import.Move = importFlags.Move
	}
	if flags.Changed("overwrite-if-newer") {
		cfg.Import.OverwriteIfNewer = importFlags.OverwriteIfNewer
	}
	if flags.Changed("set-created-date") {
		cfg.Import.SetCreatedDate = importFlags.SetCreatedDate
	}
	if importFlags.FailurePolicy != "" {
		cfg.Import.FailurePolicy = models.FailurePolicy(importFlags.FailurePolicy)
	}
	if len(importFlags.Exclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, importFlags.Exclude...)
	}
	return applyBandwidth(cfg, importFlags.Bandwidth)
}

// applySyncFlags overrides the sync section with the sync command flags
func applySyncFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if len(syncFlags.Local) > 0 {
		cfg.Sync.LocalRoots = syncFlags.Local
	}
	if syncFlags.Remote != "" {
		cfg.Sync.RemoteRoot = syncFlags.Remote
	}
	if flags.Changed("to-remote") {
		cfg.Sync.LocalToRemote = syncFlags.ToRemote
	}
	if flags.Changed("to-local") {
		cfg.Sync.RemoteToLocal = syncFlags.ToLocal
	}
	if flags.Changed("delete-local") {
		cfg.Sync.DeleteLocal = syncFlags.DeleteLocal
	}
	if flags.Changed("delete-remote") {
		cfg.Sync.DeleteRemote = syncFlags.DeleteRemote
	}
	if syncFlags.FailurePolicy != "" {
		cfg.Sync.FailurePolicy = models.FailurePolicy(syncFlags.FailurePolicy)
	}
	if len(syncFlags.Exclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, syncFlags.Exclude...)
	}
	return applyBandwidth(cfg, syncFlags.Bandwidth)
}

// applyBandwidth parses limits such as "10M" or "1.5MiB" per second
func applyBandwidth(cfg *config.Config, limit string) error {
	if limit == "" {
		return nil
	}
	n, err := humanize.ParseBytes(limit)
	if err != nil {
		return fmt.Errorf("invalid bandwidth limit %q: %w", limit, err)
	}
	cfg.Performance.BandwidthLimit = int64(n)
	return nil
}

// validateImportPaths normalizes the sources and the library folder and
// checks they can be used together. The library is created unless dryRun.
func validateImportPaths(cfg *config.Config, sources []string, dryRun bool) ([]string, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source folder is required")
	}
	if cfg.Import.DestFolder == "" {
		return nil, fmt.Errorf("destination folder is required (--dest or import.dest_folder)")
	}

	roots, err := platform.NormalizePaths(sources)
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		if err := platform.RequireFolder(root); err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
	}

	dest, err := platform.NormalizePath(cfg.Import.DestFolder)
	if err != nil {
		return nil, err
	}
	if err := platform.CheckDisjoint(dest, roots); err != nil {
		return nil, err
	}
	if !dryRun {
		if err := platform.EnsureFolder(dest); err != nil {
			return nil, err
		}
	}

	cfg.Import.DestFolder = dest
	return roots, nil
}

// validateSyncPaths normalizes the local roots and the remote root, which
// must all exist and must not overlap
func validateSyncPaths(cfg *config.Config) error {
	if len(cfg.Sync.LocalRoots) == 0 {
		return fmt.Errorf("at least one local root is required (--local or sync.local_roots)")
	}
	if cfg.Sync.RemoteRoot == "" {
		return fmt.Errorf("remote root is required (--remote or sync.remote_root)")
	}

	roots, err := platform.NormalizePaths(cfg.Sync.LocalRoots)
	if err != nil {
		return err
	}
	remote, err := platform.NormalizePath(cfg.Sync.RemoteRoot)
	if err != nil {
		return err
	}

	for _, root := range append(roots, remote) {
		if err := platform.RequireFolder(root); err != nil {
			return err
		}
	}
	if err := platform.CheckDisjoint(remote, roots); err != nil {
		return err
	}

	cfg.Sync.LocalRoots = roots
	cfg.Sync.RemoteRoot = remote
	return nil
}
