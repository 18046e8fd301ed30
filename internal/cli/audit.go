package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/divakaivan/my-reddit-server/internal/repository"
	"github.com/divakaivan/my-reddit-server/internal/service"
)

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check post scores against the vote ledger",
		Long: `Compare every post's stored score with the sum of its votes.

Exits non-zero when drift is found, unless --fix rewrites the drifted scores
from the ledger.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), rootOpts, func(store repository.Store) error {
				scores := service.NewScoreService(store, rootOpts.log)
				out := cmd.OutOrStdout()

				if fix {
					n, err := scores.Reconcile(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "reconciled %d post(s)\n", n)
					return nil
				}

				drift, err := scores.AuditAll(cmd.Context())
				if err != nil {
					return err
				}
				for _, d := range drift {
					fmt.Fprintf(out, "post %d: score %d, ledger sum %d\n", d.PostID, d.Score, d.LedgerSum)
				}
				if len(drift) > 0 {
					return fmt.Errorf("%d post(s) drifted from the vote ledger", len(drift))
				}
				fmt.Fprintln(out, "all scores match the vote ledger")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "rewrite drifted scores from the ledger")
	return cmd
}
