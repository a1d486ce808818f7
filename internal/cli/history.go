package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or reset the import history",
		Long: `The import history remembers every file imported so far by name,
modification time and size, so a file removed from the library is not
imported again. Records are only removed by an explicit reset.`,
	}

	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryResetCommand())

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the number of remembered files",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, path, err := openHistorySession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.lib.HistoryCount(commandContext(cmd))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d files in %s history at %s\n", n, s.cfg.History.Backend, path)
			return nil
		},
	}
}

func newHistoryResetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget every imported file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("history reset removes every record, rerun with --yes to confirm")
			}

			s, path, err := openHistorySession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.lib.ResetHistory(commandContext(cmd)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "History at %s reset\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func openHistorySession(cmd *cobra.Command) (*session, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	applyGlobalFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}

	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, "", err
	}

	s, err := openSession(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, "", err
	}
	return s, path, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
