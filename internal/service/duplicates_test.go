package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jcollier/studiobooks/internal/database/repository"
)

func setCreatedAt(t *testing.T, env *testEnv, id string, at time.Time) {
	t.Helper()
	_, err := env.db.ExecContext(context.Background(),
		`UPDATE transactions SET created_at = ? WHERE id = ?`, at, id)
	require.NoError(t, err)
}

func TestCheckKeepsMostEnrichedRecord(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	insertCategory(t, env, "cat-cleaning")
	bare := insertTxn(t, env, repository.Transaction{AmountCents: -4500, Description: "CLEANCO", RawParty: "CLEANCO LTD"})
	categorized := insertTxn(t, env, repository.Transaction{
		AmountCents: -4500, Description: "CLEANCO", RawParty: "CLEANCO LTD",
		CategoryID: strp("cat-cleaning"),
	})
	confirmed := insertTxn(t, env, repository.Transaction{
		AmountCents: -4500, Description: "CLEANCO", RawParty: "CLEANCO LTD",
		Confirmed: true,
	})
	unrelated := insertTxn(t, env, repository.Transaction{AmountCents: -9999, Description: "SOMETHING ELSE"})

	res, err := env.duplicates().Check(ctx, testOwner)
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalGroups)
	require.Equal(t, 2, res.TotalDuplicateRows)

	g := res.Groups[0]
	require.Equal(t, confirmed.ID, g.KeepID, "confirmation outweighs a category link")
	require.ElementsMatch(t, []string{bare.ID, categorized.ID}, g.DeleteIDs)
	require.NotContains(t, g.DeleteIDs, unrelated.ID)
}

func TestCheckTieGoesToOldestRecord(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	first := insertTxn(t, env, repository.Transaction{AmountCents: -2000, Description: "MAT WASH", RawParty: "LAUNDRO"})
	second := insertTxn(t, env, repository.Transaction{AmountCents: -2000, Description: "MAT WASH", RawParty: "LAUNDRO"})
	// Equal scores, so creation order decides. Stamp distinct times to avoid
	// depending on insert timing within the same second.
	setCreatedAt(t, env, second.ID, time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	setCreatedAt(t, env, first.ID, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))

	res, err := env.duplicates().Check(ctx, testOwner)
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalGroups)
	require.Equal(t, second.ID, res.Groups[0].KeepID)
	require.Equal(t, []string{first.ID}, res.Groups[0].DeleteIDs)
}

func TestCheckIgnoresBankFeedRows(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	insertTxn(t, env, repository.Transaction{
		AmountCents: -3000, Description: "FEED ROW", RawParty: "BANK",
		Source: repository.SourceStarling, ExternalID: strp("ext-1"),
	})
	insertTxn(t, env, repository.Transaction{
		AmountCents: -3000, Description: "FEED ROW", RawParty: "BANK",
		Source: repository.SourceStarling, ExternalID: strp("ext-2"),
	})

	res, err := env.duplicates().Check(ctx, testOwner)
	require.NoError(t, err)
	require.Zero(t, res.TotalGroups, "rows with a feed identity are deduped upstream")
}

func TestCleanupDeletesLosers(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	keep := insertTxn(t, env, repository.Transaction{
		AmountCents: -4500, Description: "CLEANCO", RawParty: "CLEANCO LTD",
		Confirmed: true,
	})
	insertTxn(t, env, repository.Transaction{AmountCents: -4500, Description: "CLEANCO", RawParty: "CLEANCO LTD"})
	insertTxn(t, env, repository.Transaction{AmountCents: -4500, Description: "CLEANCO", RawParty: "CLEANCO LTD"})

	deleted, err := env.duplicates().Cleanup(ctx, testOwner, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	remaining, err := env.transactions.ListWithoutExternalID(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, keep.ID, remaining[0].ID)
}

func TestCleanupSparesLinkedRows(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	insertTxn(t, env, repository.Transaction{
		AmountCents: -8000, Description: "RENT", RawParty: "LANDLORD",
		Confirmed: true,
	})
	linked := insertTxn(t, env, repository.Transaction{AmountCents: -8000, Description: "RENT", RawParty: "LANDLORD"})
	plain := insertTxn(t, env, repository.Transaction{AmountCents: -8000, Description: "RENT", RawParty: "LANDLORD"})
	require.NoError(t, env.links.Add(ctx, repository.TransactionLink{
		TransactionID: linked.ID, LinkType: "bill", LinkID: "bill-44",
	}))

	deleted, err := env.duplicates().Cleanup(ctx, testOwner, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	still, err := env.transactions.Get(ctx, testOwner, linked.ID)
	require.NoError(t, err)
	require.NotNil(t, still, "a row with dependent links is never deleted")
	gone, err := env.transactions.Get(ctx, testOwner, plain.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestCleanupHonorsExplicitSubset(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	keep := insertTxn(t, env, repository.Transaction{
		AmountCents: -1000, Description: "COFFEE", RawParty: "CAFE",
		Confirmed: true,
	})
	dupA := insertTxn(t, env, repository.Transaction{AmountCents: -1000, Description: "COFFEE", RawParty: "CAFE"})
	dupB := insertTxn(t, env, repository.Transaction{AmountCents: -1000, Description: "COFFEE", RawParty: "CAFE"})

	// The survivor's id is not a deletion candidate; passing it is a no-op.
	deleted, err := env.duplicates().Cleanup(ctx, testOwner, []string{dupA.ID, keep.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	require.NotNil(t, mustGet(t, env, ctx, keep.ID))
	require.NotNil(t, mustGet(t, env, ctx, dupB.ID))
	gone, err := env.transactions.Get(ctx, testOwner, dupA.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func mustGet(t *testing.T, env *testEnv, ctx context.Context, id string) *repository.Transaction {
	t.Helper()
	txn, err := env.transactions.Get(ctx, testOwner, id)
	require.NoError(t, err)
	return txn
}

func TestIntegrityCounters(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	report, err := env.duplicates().Integrity(ctx, testOwner)
	require.NoError(t, err)
	require.Zero(t, report.DuplicateExternalIDs)
	require.Zero(t, report.DuplicateImportHashes)

	insertTxn(t, env, repository.Transaction{AmountCents: -100, Description: "A", ImportHash: strp("hash-1")})
	insertTxn(t, env, repository.Transaction{AmountCents: -200, Description: "B", ImportHash: strp("hash-1")})
	insertTxn(t, env, repository.Transaction{AmountCents: -300, Description: "C", ImportHash: strp("hash-2")})

	report, err = env.duplicates().Integrity(ctx, testOwner)
	require.NoError(t, err)
	require.Equal(t, 1, report.DuplicateImportHashes)
	require.Zero(t, report.DuplicateExternalIDs, "the unique feed index makes these impossible to create")
}

func TestNearDuplicates(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	a := insertTxn(t, env, repository.Transaction{
		AmountCents: -4500,
		Description: "CLEANING SUPPLIES LTD",
		Date:        time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	b := insertTxn(t, env, repository.Transaction{
		AmountCents: -4500,
		Description: "CLEANING SUPPLIES LTD.",
		Date:        time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
	})
	// Same description but three weeks later: outside the window.
	insertTxn(t, env, repository.Transaction{
		AmountCents: -4500,
		Description: "CLEANING SUPPLIES LTD",
		Date:        time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
	})
	// Same window but a different amount.
	insertTxn(t, env, repository.Transaction{
		AmountCents: -9900,
		Description: "CLEANING SUPPLIES LTD",
		Date:        time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
	})

	pairs, err := env.duplicates().NearDuplicates(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	require.ElementsMatch(t, []string{a.ID, b.ID}, []string{pairs[0].AID, pairs[0].BID})
	require.Greater(t, pairs[0].Similarity, 0.9)
}
