package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDuplicatesCommand(owner *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Find and clean duplicated transactions",
	}
	cmd.AddCommand(newDuplicatesScanCommand(owner))
	cmd.AddCommand(newDuplicatesCleanCommand(owner))
	cmd.AddCommand(newDuplicatesIntegrityCommand(owner))
	return cmd
}

func newDuplicatesScanCommand(owner *string) *cobra.Command {
	var near bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Group exact duplicates and pick survivors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*owner)
			if err != nil {
				return err
			}
			defer a.close()
			out := cmd.OutOrStdout()

			res, err := a.duplicates.Check(cmd.Context(), a.ownerID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d groups, %d rows to delete\n", res.TotalGroups, res.TotalDuplicateRows)
			for _, g := range res.Groups {
				fmt.Fprintf(out, "  keep %s, delete %v\n", g.KeepID, g.DeleteIDs)
			}

			if near {
				pairs, err := a.duplicates.NearDuplicates(cmd.Context(), a.ownerID)
				if err != nil {
					return err
				}
				for _, p := range pairs {
					fmt.Fprintf(out, "  near: %s ~ %s (%.0f%%)\n", p.AID, p.BID, p.Similarity*100)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&near, "near", false, "also report advisory near-duplicate pairs")
	return cmd
}

func newDuplicatesCleanCommand(owner *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [id...]",
		Short: "Delete duplicate rows (all candidates, or just the given ids)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*owner)
			if err != nil {
				return err
			}
			defer a.close()

			var ids []string
			if len(args) > 0 {
				ids = args
			}
			n, err := a.duplicates.Cleanup(cmd.Context(), a.ownerID, ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", n)
			return nil
		},
	}
}

func newDuplicatesIntegrityCommand(owner *string) *cobra.Command {
	return &cobra.Command{
		Use:   "integrity",
		Short: "Diagnostic counters for sync and re-import bugs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*owner)
			if err != nil {
				return err
			}
			defer a.close()

			rep, err := a.duplicates.Integrity(cmd.Context(), a.ownerID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "duplicate external ids: %d\nduplicate import hashes: %d\n",
				rep.DuplicateExternalIDs, rep.DuplicateImportHashes)
			return nil
		},
	}
}
