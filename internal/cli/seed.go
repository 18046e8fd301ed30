package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/divakaivan/my-reddit-server/internal/repository"
	"github.com/divakaivan/my-reddit-server/internal/seed"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := seed.Options{}

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Load the demo author and posts",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), rootOpts, func(store repository.Store) error {
				res, err := seed.Run(cmd.Context(), store, opts, rootOpts.log)
				if err != nil {
					return err
				}
				if res.Skipped {
					fmt.Fprintf(cmd.OutOrStdout(), "seed author %q already exists (id %d), nothing to do\n", opts.Username, res.AuthorID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d posts for author %q (id %d)\n", res.Posts, opts.Username, res.AuthorID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "seed", "seed author username")
	cmd.Flags().StringVar(&opts.Email, "email", "seed@example.com", "seed author email")
	cmd.Flags().StringVar(&opts.Password, "password", "seed", "seed author password")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "number of posts to create (0 = all)")

	return cmd
}
