package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/jcollier/studiobooks/internal/database/repository"
)

// SeedDefaults ensures baseline categories exist for a new owner.
// It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB, ownerID string) error {
	catRepo := repository.NewCategoryRepo(db)
	existing, err := catRepo.List(ctx, ownerID)
	if err == nil && len(existing) > 0 {
		return nil
	}
	defaults := []repository.Category{
		{Name: "Membership Income", Kind: repository.TypeIncome},
		{Name: "Class Packs", Kind: repository.TypeIncome},
		{Name: "Retail Sales", Kind: repository.TypeIncome},
		{Name: "Rent", Kind: repository.TypeExpense},
		{Name: "Payroll", Kind: repository.TypeExpense},
		{Name: "Equipment", Kind: repository.TypeExpense},
		{Name: "Utilities", Kind: repository.TypeExpense},
		{Name: "Insurance", Kind: repository.TypeExpense},
		{Name: "Software", Kind: repository.TypeExpense},
		{Name: "Marketing", Kind: repository.TypeExpense},
		{Name: "Bank Fees", Kind: repository.TypeExpense},
		{Name: "Other", Kind: "either"},
	}
	for _, c := range defaults {
		c.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("cat:"+ownerID+":"+c.Name)).String()
		c.OwnerID = ownerID
		if err := catRepo.Upsert(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
