package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcollier/studiobooks/internal/config"
	"github.com/jcollier/studiobooks/internal/database"
	"github.com/jcollier/studiobooks/internal/database/repository"
	"github.com/jcollier/studiobooks/internal/demo"
	"github.com/jcollier/studiobooks/internal/errs"
)

func newInitCommand(owner *string) *cobra.Command {
	var withDemo bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database, apply migrations and seed default categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ownerID := strings.TrimSpace(*owner)
			if ownerID == "" {
				ownerID = strings.TrimSpace(cfg.Owner.ID)
			}
			if ownerID == "" {
				return fmt.Errorf("%w: pass --owner or set owner.id in config", errs.ErrUnauthorized)
			}

			if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
				return fmt.Errorf("mkdir db dir: %w", err)
			}
			if err := database.RunMigrations(cfg.Database.Path, migrationsPath()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			db, err := database.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()
			if err := database.SeedDefaults(cmd.Context(), db, ownerID); err != nil {
				return fmt.Errorf("seed defaults: %w", err)
			}
			if withDemo {
				err := demo.Seed(cmd.Context(), ownerID, demo.Repos{
					Categories:   repository.NewCategoryRepo(db),
					Vendors:      repository.NewVendorRepo(db),
					Transactions: repository.NewTransactionRepo(db),
				})
				if err != nil {
					return fmt.Errorf("seed demo data: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s for owner %s\n", cfg.Database.Path, ownerID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withDemo, "demo", false, "also seed sample transactions")
	return cmd
}
