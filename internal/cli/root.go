package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the mediasync command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mediasync",
		Short: "Import and synchronize photo and video libraries",
		Long: `mediasync imports media from cards and folders into a dated library,
remembering what it already imported, and keeps library roots in sync
with a remote copy by modification time.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(NewImportCommand())
	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewHistoryCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
