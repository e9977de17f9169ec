package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcollier/studiobooks/internal/service"
)

func newMatchCommand(owner *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Run the matching engine and review its suggestions",
	}
	cmd.AddCommand(newMatchRunCommand(owner))
	cmd.AddCommand(newMatchListCommand(owner))
	cmd.AddCommand(newMatchApproveCommand(owner))
	cmd.AddCommand(newMatchRejectCommand(owner))
	return cmd
}

func newMatchRunCommand(owner *string) *cobra.Command {
	var includeConfirmed bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply active rules to transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*owner)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.engine.Run(cmd.Context(), a.ownerID, service.RunOptions{IncludeConfirmed: includeConfirmed})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d, matched %d (%d already reconciled)\n",
				res.Processed, res.Matched, res.AlreadyReconciled)
			return nil
		},
	}
	cmd.Flags().BoolVar(&includeConfirmed, "include-confirmed", false, "also re-match confirmed and reconciled transactions")
	return cmd
}

func newMatchListCommand(owner *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the approval queue grouped by rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*owner)
			if err != nil {
				return err
			}
			defer a.close()

			groups, err := a.approvals.List(cmd.Context(), a.ownerID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, g := range groups {
				fmt.Fprintf(out, "%s (%d)\n", g.RuleName, len(g.Items))
				for _, item := range g.Items {
					warn := ""
					if item.AlreadyReconciled {
						warn = "  [already reconciled]"
					}
					fmt.Fprintf(out, "  %s  %s  %10.2f  %-30s -> %s%s\n",
						item.Match.ID,
						item.Transaction.Date.Format("2006-01-02"),
						float64(item.Transaction.AmountCents)/100,
						item.Transaction.Description,
						item.CategoryName, warn)
				}
			}
			return nil
		},
	}
}

func newMatchApproveCommand(owner *string) *cobra.Command {
	var category string
	var notes string
	cmd := &cobra.Command{
		Use:   "approve <match-id>...",
		Short: "Approve pending matches (multiple ids = bulk)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*owner)
			if err != nil {
				return err
			}
			defer a.close()

			if category != "" {
				if len(args) != 1 {
					return fmt.Errorf("--category applies to exactly one match")
				}
				var notesPtr *string
				if notes != "" {
					notesPtr = &notes
				}
				return a.approvals.ApproveWithEdit(cmd.Context(), a.ownerID, args[0], category, notesPtr)
			}

			res := a.approvals.BulkApprove(cmd.Context(), a.ownerID, args)
			reportBulk(cmd, "approved", res)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "override the suggested category id")
	cmd.Flags().StringVar(&notes, "notes", "", "override the suggested notes")
	return cmd
}

func newMatchRejectCommand(owner *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <match-id>...",
		Short: "Reject pending matches, returning transactions to the pool",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*owner)
			if err != nil {
				return err
			}
			defer a.close()

			res := a.approvals.BulkReject(cmd.Context(), a.ownerID, args)
			reportBulk(cmd, "rejected", res)
			return nil
		},
	}
}

// reportBulk always tells the operator how many succeeded out of how many, so
// a partial failure is never silent.
func reportBulk(cmd *cobra.Command, verb string, res service.BulkResult) {
	total := res.Succeeded + res.Failed
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d of %d\n", verb, res.Succeeded, total)
	for id, err := range res.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", id, err)
	}
}
