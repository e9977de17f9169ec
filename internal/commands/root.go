// Package commands wires the reconciliation services into a CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcollier/studiobooks/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var owner string

	rootCmd := &cobra.Command{
		Use:     "studiobooks",
		Short:   "Reconciliation engine for studio finances",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&owner, "owner", "", "owner id (defaults to owner.id from config)")

	rootCmd.AddCommand(newInitCommand(&owner))
	rootCmd.AddCommand(newImportCommand(&owner))
	rootCmd.AddCommand(newRulesCommand(&owner))
	rootCmd.AddCommand(newMatchCommand(&owner))
	rootCmd.AddCommand(newDuplicatesCommand(&owner))
	rootCmd.AddCommand(newResetCommand(&owner))

	return rootCmd
}
