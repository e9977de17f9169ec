package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jcollier/studiobooks/internal/database"
	"github.com/jcollier/studiobooks/internal/database/repository"
)

const testOwner = "owner-1"

type testEnv struct {
	db           *sql.DB
	transactions *repository.TransactionRepo
	rules        *repository.RuleRepo
	matches      *repository.PendingMatchRepo
	links        *repository.TransactionLinkRepo
	categories   *repository.CategoryRepo
	vendors      *repository.VendorRepo
	staff        *repository.StaffRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &testEnv{
		db:           db,
		transactions: repository.NewTransactionRepo(db),
		rules:        repository.NewRuleRepo(db),
		matches:      repository.NewPendingMatchRepo(db),
		links:        repository.NewTransactionLinkRepo(db),
		categories:   repository.NewCategoryRepo(db),
		vendors:      repository.NewVendorRepo(db),
		staff:        repository.NewStaffRepo(db),
	}
}

func (e *testEnv) engine() *MatchEngine {
	return &MatchEngine{Transactions: e.transactions, Rules: e.rules, Matches: e.matches}
}

func (e *testEnv) approvals() *ApprovalQueue {
	return &ApprovalQueue{
		Transactions: e.transactions,
		Matches:      e.matches,
		Rules:        e.rules,
		Categories:   e.categories,
		Vendors:      e.vendors,
		Staff:        e.staff,
	}
}

func (e *testEnv) duplicates() *DuplicateChecker {
	return &DuplicateChecker{Transactions: e.transactions, Links: e.links}
}

func strp(s string) *string { return &s }

func centsp(v int64) *int64 { return &v }

func insertTxn(t *testing.T, env *testEnv, txn repository.Transaction) repository.Transaction {
	t.Helper()
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.OwnerID == "" {
		txn.OwnerID = testOwner
	}
	if txn.Date.IsZero() {
		txn.Date = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	}
	if txn.Status == "" {
		txn.Status = repository.StatusUnreconciled
	}
	if txn.Source == "" {
		txn.Source = repository.SourceManual
	}
	require.NoError(t, env.transactions.Insert(context.Background(), txn))
	return txn
}

func insertRule(t *testing.T, env *testEnv, rule repository.Rule) repository.Rule {
	t.Helper()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.OwnerID == "" {
		rule.OwnerID = testOwner
	}
	if rule.Name == "" {
		rule.Name = "rule " + rule.ID[:8]
	}
	if rule.MatchType == "" {
		rule.MatchType = repository.MatchTypeDescription
		if rule.MatchDescriptionPattern == nil {
			rule.MatchDescriptionPattern = strp("never-matches-anything")
		}
	}
	require.NoError(t, env.rules.Insert(context.Background(), rule))
	return rule
}

func insertCategory(t *testing.T, env *testEnv, id string) {
	t.Helper()
	require.NoError(t, env.categories.Upsert(context.Background(),
		repository.Category{ID: id, OwnerID: testOwner, Name: id, Kind: "either"}))
}

func insertVendor(t *testing.T, env *testEnv, id string) {
	t.Helper()
	require.NoError(t, env.vendors.Upsert(context.Background(),
		repository.Vendor{ID: id, OwnerID: testOwner, Name: id}))
}

func insertStaff(t *testing.T, env *testEnv, id string) {
	t.Helper()
	require.NoError(t, env.staff.Upsert(context.Background(),
		repository.Staff{ID: id, OwnerID: testOwner, Name: id}))
}

func pendingMatchesFor(t *testing.T, env *testEnv, transactionID string) []repository.PendingMatch {
	t.Helper()
	out, err := env.matches.ListPendingForTransaction(context.Background(), testOwner, transactionID)
	require.NoError(t, err)
	return out
}

func getTxn(t *testing.T, env *testEnv, id string) repository.Transaction {
	t.Helper()
	txn, err := env.transactions.Get(context.Background(), testOwner, id)
	require.NoError(t, err)
	require.NotNil(t, txn)
	return *txn
}
