package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/divakaivan/my-reddit-server/internal/repository"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Apply pending schema migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening a store applies its migrations.
			return withStore(cmd.Context(), rootOpts, func(repository.Store) error {
				fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", rootOpts.cfg.StoreDriver)
				return nil
			})
		},
	}
}
