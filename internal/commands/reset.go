package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcollier/studiobooks/internal/service"
)

func newResetCommand(owner *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all of the owner's data (schema stays)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset deletes every transaction, rule and match for the owner; re-run with --yes")
			}
			a, err := openApp(*owner)
			if err != nil {
				return err
			}
			defer a.close()

			svc := &service.MaintenanceService{DB: a.db}
			if err := svc.Reset(cmd.Context(), a.ownerID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset owner %s\n", a.ownerID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}
