// Package demo seeds sample data so a fresh install has something to
// reconcile.
package demo

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/jcollier/studiobooks/internal/database/repository"
)

// Repos bundles the repositories Seed writes through.
type Repos struct {
	Categories   *repository.CategoryRepo
	Vendors      *repository.VendorRepo
	Transactions *repository.TransactionRepo
}

// Seed creates a sample vendor and a month of studio-flavored transactions.
func Seed(ctx context.Context, ownerID string, repos Repos) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	vendor := repository.Vendor{ID: uuid.NewString(), OwnerID: ownerID, Name: "Mindbody Inc"}
	if err := repos.Vendors.Upsert(ctx, vendor); err != nil {
		return err
	}

	descs := []string{
		"MINDBODY MONTHLY SUB",
		"STARLING BANK FEE",
		"CLASS PACK 10X PURCHASE",
		"YOGA MAT WHOLESALE ORDER",
		"MONTHLY MEMBERSHIP DD",
	}
	parties := []string{"MINDBODY INC", "STARLING", "J SMITH", "FITKIT SUPPLIES LTD", "GOCARDLESS"}

	now := time.Now().UTC()
	for i := 0; i < 20; i++ {
		amount := int64(rng.Intn(20000) + 500)
		if rng.Intn(3) > 0 {
			amount = -amount
		}
		pick := rng.Intn(len(descs))
		tx := repository.Transaction{
			ID:          uuid.NewString(),
			OwnerID:     ownerID,
			Date:        now.AddDate(0, 0, -rng.Intn(30)),
			AmountCents: amount,
			Description: descs[pick],
			RawParty:    parties[pick],
			Status:      repository.StatusUnreconciled,
			Source:      repository.SourceManual,
		}
		if err := repos.Transactions.Insert(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}
