package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/pkg/logger"
)

type rootOptions struct {
	dataDir  string
	logLevel string
	quiet    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "rgtrackctl",
		Short: "Operate an rgtrack score tracker",
		Long: `rgtrackctl drives and maintains an rgtrack deployment.

Store commands (seed, dedupe-scores) open the data directory directly and
must not run while the server holds it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var w io.Writer = cmd.ErrOrStderr()
			if opts.quiet {
				w = io.Discard
			}
			if err := logger.InitWithWriter(w); err != nil {
				return err
			}
			return logger.SetLevelString(opts.logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", os.Getenv("RGTRACK_DATA_DIR"), "Badger data directory (store commands)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress log output")

	cmd.AddCommand(newReplayCmd(), newSeedCmd(opts), newDedupeCmd(opts))
	return cmd
}

// openStore opens the configured data directory. An empty directory is refused
// so maintenance never silently runs against a throwaway in-memory store.
func openStore(ctx context.Context, opts *rootOptions) (*repository.Store, error) {
	if opts.dataDir == "" {
		return nil, fmt.Errorf("--data-dir is required")
	}
	return repository.Open(ctx, repository.WithDataDir(opts.dataDir))
}
