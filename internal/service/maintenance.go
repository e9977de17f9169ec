package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jcollier/studiobooks/internal/database"
	"github.com/jcollier/studiobooks/internal/errs"
)

// MaintenanceService houses destructive/ops actions.
type MaintenanceService struct {
	DB *sql.DB
}

// Reset wipes one owner's data. The schema stays intact.
func (s *MaintenanceService) Reset(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return errs.ErrUnauthorized
	}
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM transaction_links WHERE transaction_id IN
			 (SELECT id FROM transactions WHERE owner_id = ?)`, ownerID); err != nil {
			return fmt.Errorf("reset transaction_links: %w", err)
		}
		tables := []string{
			"pending_matches",
			"reconciliation_rules",
			"transactions",
			"staff",
			"vendors",
			"categories",
		}
		for _, t := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t+" WHERE owner_id = ?", ownerID); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}
