// Package cli implements feedctl, the operator command line for the feed backend.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/divakaivan/my-reddit-server/internal/config"
	"github.com/divakaivan/my-reddit-server/internal/db"
	"github.com/divakaivan/my-reddit-server/internal/middleware"
	"github.com/divakaivan/my-reddit-server/internal/repository"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool

	cfg *config.Config
	log zerolog.Logger
}

// NewRootCommand creates the root command for feedctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "feedctl",
		Short:         "feedctl - operate the community feed backend",
		SilenceErrors: true,
		Long: `Operator tooling for the community feed backend.

Reads the same environment configuration as the server (STORE_DRIVER,
DATABASE_URL, SQLITE_PATH, ...).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if opts.Verbose {
				level = "debug"
			}
			opts.cfg = cfg
			opts.log = middleware.InitLogger(level, "feedctl")
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))

	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, opts *RootOptions, fn func(repository.Store) error) error {
	store, _, err := db.OpenStore(ctx, opts.cfg, opts.log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	return fn(store)
}
