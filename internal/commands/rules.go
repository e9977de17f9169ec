package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRulesCommand(owner *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and manage reconciliation rules",
	}
	cmd.AddCommand(newRulesListCommand(owner))
	cmd.AddCommand(newRulesToggleCommand(owner, "enable", true))
	cmd.AddCommand(newRulesToggleCommand(owner, "disable", false))
	cmd.AddCommand(newRulesDeleteCommand(owner))
	return cmd
}

func newRulesListCommand(owner *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*owner)
			if err != nil {
				return err
			}
			defer a.close()

			rules, err := a.rules.List(cmd.Context(), a.ownerID)
			if err != nil {
				return err
			}
			for _, r := range rules {
				state := "active"
				if !r.IsActive {
					state = "inactive"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %-10s %-14s %-32s matches=%d  %s\n",
					r.Priority, state, r.MatchType, r.Name, r.MatchCount, r.ID)
			}
			return nil
		},
	}
}

func newRulesToggleCommand(owner *string, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <rule-id>",
		Short: fmt.Sprintf("%s a rule", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*owner)
			if err != nil {
				return err
			}
			defer a.close()
			return a.rules.SetActive(cmd.Context(), a.ownerID, args[0], active)
		},
	}
}

func newRulesDeleteCommand(owner *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule (historical matches are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*owner)
			if err != nil {
				return err
			}
			defer a.close()
			return a.rules.Delete(cmd.Context(), a.ownerID, args[0])
		},
	}
}
