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

// ImportFlags holds import command flags
type ImportFlags struct {
	Dest             string
	Structure        string
	Move             bool
	OverwriteIfNewer bool
	SetCreatedDate   bool
	FailurePolicy    string
	DryRun           bool
	Exclude          []string
	Bandwidth        string
}

var importFlags ImportFlags

// NewImportCommand creates the import command
func NewImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [flags] SOURCE...",
		Short: "Import media from source folders into the library",
		Long: `Scan the source folders, skip every file the import history already
knows or the library already holds, and copy or move the rest into the
library under the destination structure (e.g. "{year}/{created}").`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().StringVarP(&importFlags.Dest, "dest", "d", "", "library folder (default: import.dest_folder)")
	cmd.Flags().StringVar(&importFlags.Structure, "structure", "", "destination structure template, tokens: {year} {month} {day} {created} {name} {ext} {camera}")
	cmd.Flags().BoolVar(&importFlags.Move, "move", false, "remove sources after a successful import")
	cmd.Flags().BoolVar(&importFlags.OverwriteIfNewer, "overwrite-if-newer", false, "replace library files when the source is newer")
	cmd.Flags().BoolVar(&importFlags.SetCreatedDate, "set-created-date", false, "stamp the capture date on imported files")
	cmd.Flags().StringVar(&importFlags.FailurePolicy, "failure-policy", "", "after a failed file: continue, stop")
	cmd.Flags().BoolVar(&importFlags.DryRun, "dry-run", false, "show what would be imported without touching anything")
	cmd.Flags().StringSliceVar(&importFlags.Exclude, "exclude", []string{}, "folder names to skip")
	cmd.Flags().StringVarP(&importFlags.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g., \"10M\", \"1G\")")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
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
	if err := applyImportFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sources, err := validateImportPaths(cfg, args, importFlags.DryRun)
	if err != nil {
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

	result, err := s.lib.Import(ctx, library.ImportRequest{
		Sources: sources,
		Options: cfg.ImportOptions(),
		DryRun:  importFlags.DryRun,
		Sink:    sink,
		Source:  source,
	})
	if errors.Is(err, cancel.ErrCancelled) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Import cancelled before any file was copied")
		return &ExitError{Code: models.StatusCancelled.ExitCode(), Status: models.StatusCancelled}
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if result.Plan != nil {
		return output.WritePlan(cmd.OutOrStdout(), result.Plan, cfg.Output.Format)
	}
	return exitFor(result.Report)
}
