package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newImportCommand(owner *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import bank transactions from CSV (date, amount, description, counterparty)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*owner)
			if err != nil {
				return err
			}
			defer a.close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			loc, err := time.LoadLocation(a.cfg.Import.Timezone)
			if err != nil {
				loc = time.Local
			}
			res, err := a.ingest.ImportCSV(cmd.Context(), a.ownerID, f, loc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d duplicates\n", res.Imported, res.Skipped)
			for _, e := range res.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", e)
			}
			return nil
		},
	}
	return cmd
}
