package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jcollier/studiobooks/internal/database/repository"
	"github.com/jcollier/studiobooks/internal/errs"
)

func TestImportCSV(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	svc := &IngestService{Transactions: env.transactions}
	csv := strings.Join([]string{
		`10/03/2026,-75.00,MINDBODY SUB,MINDBODY INC`,
		`11/03/2026,120.50,CLASS PACK X10,STRIPE PAYOUT`,
	}, "\n")

	res, err := svc.ImportCSV(ctx, testOwner, strings.NewReader(csv), time.UTC)
	require.NoError(t, err)
	require.Equal(t, 2, res.Imported)
	require.Zero(t, res.Skipped)
	require.Empty(t, res.Errors)

	txns, err := env.transactions.ListWithoutExternalID(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	byDesc := map[string]repository.Transaction{}
	for _, txn := range txns {
		byDesc[txn.Description] = txn
	}
	sub := byDesc["MINDBODY SUB"]
	require.EqualValues(t, -7500, sub.AmountCents)
	require.Equal(t, repository.TypeExpense, sub.Type())
	require.Equal(t, repository.SourceCSV, sub.Source)
	require.Equal(t, repository.StatusUnreconciled, sub.Status)
	require.NotNil(t, sub.ImportHash)
	require.Equal(t, "2026-03-10", sub.Date.Format(time.DateOnly))

	pack := byDesc["CLASS PACK X10"]
	require.EqualValues(t, 12050, pack.AmountCents, "decimal parsing never loses a cent")
	require.Equal(t, repository.TypeIncome, pack.Type())
}

func TestImportCSVSkipsReimportedRows(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	svc := &IngestService{Transactions: env.transactions}
	csv := `10/03/2026,-75.00,MINDBODY SUB,MINDBODY INC`

	first, err := svc.ImportCSV(ctx, testOwner, strings.NewReader(csv), time.UTC)
	require.NoError(t, err)
	require.Equal(t, 1, first.Imported)

	second, err := svc.ImportCSV(ctx, testOwner, strings.NewReader(csv), time.UTC)
	require.NoError(t, err)
	require.Zero(t, second.Imported)
	require.Equal(t, 1, second.Skipped)

	txns, err := env.transactions.ListWithoutExternalID(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, txns, 1)
}

func TestImportCSVCollectsRowErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	svc := &IngestService{Transactions: env.transactions}
	csv := strings.Join([]string{
		`not-a-date,-75.00,BAD DATE,X`,
		`10/03/2026,not-a-number,BAD AMOUNT,X`,
		`10/03/2026,-12.34,GOOD ROW,X`,
	}, "\n")

	res, err := svc.ImportCSV(ctx, testOwner, strings.NewReader(csv), time.UTC)
	require.NoError(t, err, "row problems are collected, not fatal")
	require.Equal(t, 1, res.Imported)
	require.Len(t, res.Errors, 2)
}

func TestImportCSVRequiresOwner(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	svc := &IngestService{Transactions: env.transactions}
	_, err := svc.ImportCSV(context.Background(), "", strings.NewReader(""), time.UTC)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}
