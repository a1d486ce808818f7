package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/library"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/output"
)

// SyncFlags holds sync command flags
type SyncFlags struct {
	Local         []string
	Remote        string
	ToRemote      bool
	ToLocal       bool
	DeleteLocal   bool
	DeleteRemote  bool
	FailurePolicy string
	DryRun        bool
	Exclude       []string
	Bandwidth     string
}

var syncFlags SyncFlags

// NewSyncCommand creates the sync command
func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local library roots with a remote root",
		Long: `Compare the local roots with the remote root by relative path and
modification time, then copy the newer side over the older one in the
enabled directions. Files present on one side only are copied, or deleted
when the matching delete flag is set. Nothing is deleted by default.`,
		RunE: runSync,
	}

	cmd.Flags().StringSliceVarP(&syncFlags.Local, "local", "l", nil, "local root, repeatable (default: sync.local_roots)")
	cmd.Flags().StringVarP(&syncFlags.Remote, "remote", "r", "", "remote root (default: sync.remote_root)")
	cmd.Flags().BoolVar(&syncFlags.ToRemote, "to-remote", false, "copy local changes to the remote")
	cmd.Flags().BoolVar(&syncFlags.ToLocal, "to-local", false, "copy remote changes to the local roots")
	cmd.Flags().BoolVar(&syncFlags.DeleteLocal, "delete-local", false, "delete local files missing on the remote (with --to-local)")
	cmd.Flags().BoolVar(&syncFlags.DeleteRemote, "delete-remote", false, "delete remote files missing locally (with --to-remote)")
	cmd.Flags().StringVar(&syncFlags.FailurePolicy, "failure-policy", "", "after a failed file: continue, stop")
	cmd.Flags().BoolVar(&syncFlags.DryRun, "dry-run", false, "compare only, don't sync")
	cmd.Flags().StringSliceVar(&syncFlags.Exclude, "exclude", []string{}, "folder names to skip")
	cmd.Flags().StringVarP(&syncFlags.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g., \"10M\", \"1G\")")

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	applyGlobalFlags(cfg)
	if err := applySyncFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateSyncPaths(cfg); err != nil {
		return err
	}

	sink, err := newSink(cfg.Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	s, err := openSession(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	source := cancel.NewJob()
	stop := cancelOnInterrupt(source, s.logger)
	defer stop()

	result, err := s.lib.Sync(ctx, library.SyncRequest{
		LocalRoots: cfg.Sync.LocalRoots,
		RemoteRoot: cfg.Sync.RemoteRoot,
		Policy:     cfg.Sync.SyncPolicy,
		DryRun:     syncFlags.DryRun,
		Sink:       sink,
		Source:     source,
	})
	if errors.Is(err, cancel.ErrCancelled) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Sync cancelled during analysis, nothing was changed")
		return &ExitError{Code: models.StatusCancelled.ExitCode(), Status: models.StatusCancelled}
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if result.Plan != nil {
		return output.WritePlan(cmd.OutOrStdout(), result.Plan, cfg.Output.Format)
	}
	return exitFor(result.Report)
}
