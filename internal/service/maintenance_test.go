package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jcollier/studiobooks/internal/database/repository"
	"github.com/jcollier/studiobooks/internal/errs"
)

func TestResetWipesOnlyOneOwner(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	insertCategory(t, env, "cat-1")
	mine := insertTxn(t, env, repository.Transaction{AmountCents: -1000, Description: "MINE"})
	rule := insertRule(t, env, repository.Rule{IsActive: true})
	insertMatch(t, env, repository.PendingMatch{TransactionID: mine.ID, RuleID: &rule.ID})
	theirs := insertTxn(t, env, repository.Transaction{OwnerID: "owner-2", AmountCents: -2000, Description: "THEIRS"})

	svc := &MaintenanceService{DB: env.db}
	require.ErrorIs(t, svc.Reset(ctx, ""), errs.ErrUnauthorized)
	require.NoError(t, svc.Reset(ctx, testOwner))

	gone, err := env.transactions.Get(ctx, testOwner, mine.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
	rules, err := env.rules.List(ctx, testOwner)
	require.NoError(t, err)
	require.Empty(t, rules)
	cats, err := env.categories.List(ctx, testOwner)
	require.NoError(t, err)
	require.Empty(t, cats)

	kept, err := env.transactions.Get(ctx, "owner-2", theirs.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
}
