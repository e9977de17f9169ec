package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jcollier/studiobooks/internal/database/repository"
	"github.com/jcollier/studiobooks/internal/errs"
	"github.com/jcollier/studiobooks/internal/match"
)

// Batch sizes respect backend payload limits, not parallelism; every phase is
// strictly sequential within one run.
const (
	transactionBatchSize = 1000
	upsertChunkSize      = 500
	statusChunkSize      = 100
)

// MatchEngine applies active rules to transactions and records pending
// matches for the approval queue.
type MatchEngine struct {
	Transactions *repository.TransactionRepo
	Rules        *repository.RuleRepo
	Matches      *repository.PendingMatchRepo

	mu     sync.Mutex
	owners map[string]*sync.Mutex
}

// RunOptions controls the scope of an engine run.
type RunOptions struct {
	// IncludeConfirmed scans every transaction for the owner instead of only
	// unreconciled ones, letting confirmed records be re-matched.
	IncludeConfirmed bool
}

// RunResult summarizes one engine run.
type RunResult struct {
	Processed         int
	Matched           int
	AlreadyReconciled int
}

// Run evaluates the owner's active rules over transactions in batches and
// upserts one pending match per matched transaction. The first matching rule
// in priority order wins; later rules are not evaluated for that transaction.
// Runs for the same owner are serialized.
func (e *MatchEngine) Run(ctx context.Context, ownerID string, opts RunOptions) (RunResult, error) {
	if ownerID == "" {
		return RunResult{}, errs.ErrUnauthorized
	}
	unlock := e.lockOwner(ownerID)
	defer unlock()

	rules, err := e.Rules.ListActive(ctx, ownerID)
	if err != nil {
		return RunResult{}, fmt.Errorf("load rules: %w", err)
	}
	if len(rules) == 0 {
		return RunResult{}, nil
	}

	var result RunResult
	var candidates []repository.PendingMatch
	// Tracked beside the candidates rather than on them, so internal
	// bookkeeping never leaks into the persisted shape.
	wasReconciled := map[string]bool{}
	perRule := map[string]int{}

	afterID := ""
	for {
		batch, err := e.Transactions.ListBatch(ctx, ownerID, afterID, transactionBatchSize, !opts.IncludeConfirmed)
		if err != nil {
			return RunResult{}, fmt.Errorf("fetch transactions after %q: %w", afterID, err)
		}
		if len(batch) == 0 {
			break
		}
		afterID = batch[len(batch)-1].ID

		for _, txn := range batch {
			result.Processed++
			for _, rule := range rules {
				if !match.Matches(rule, txn) {
					continue
				}
				ruleID := rule.ID
				candidates = append(candidates, repository.PendingMatch{
					ID:                  uuid.NewString(),
					OwnerID:             ownerID,
					TransactionID:       txn.ID,
					RuleID:              &ruleID,
					SuggestedCategoryID: rule.ActionCategoryID,
					SuggestedStaffID:    rule.ActionStaffID,
					SuggestedVendorID:   rule.ActionVendorID,
					SuggestedNotes:      rule.ActionNotes,
					MatchConfidence:     1.0,
					Status:              repository.MatchPending,
				})
				result.Matched++
				perRule[rule.ID]++
				if txn.Confirmed || txn.Status == repository.StatusReconciled {
					wasReconciled[txn.ID] = true
					result.AlreadyReconciled++
				}
				break // first rule wins
			}
		}
		if len(batch) < transactionBatchSize {
			break
		}
	}

	for start := 0; start < len(candidates); start += upsertChunkSize {
		end := min(start+upsertChunkSize, len(candidates))
		if err := e.Matches.UpsertBatch(ctx, candidates[start:end]); err != nil {
			return RunResult{}, fmt.Errorf("upsert pending matches: %w", err)
		}
	}

	var pendingIDs []string
	for _, c := range candidates {
		if !wasReconciled[c.TransactionID] {
			pendingIDs = append(pendingIDs, c.TransactionID)
		}
	}
	for start := 0; start < len(pendingIDs); start += statusChunkSize {
		end := min(start+statusChunkSize, len(pendingIDs))
		if err := e.Transactions.UpdateStatus(ctx, ownerID, pendingIDs[start:end], repository.StatusPendingApproval); err != nil {
			return RunResult{}, fmt.Errorf("mark pending approval: %w", err)
		}
	}

	if err := e.Rules.RecordMatches(ctx, ownerID, perRule); err != nil {
		return RunResult{}, fmt.Errorf("record rule matches: %w", err)
	}
	return result, nil
}

// lockOwner serializes engine runs per owner. Concurrent runs for the same
// owner would race on the status-update phase even though upserts are safe.
func (e *MatchEngine) lockOwner(ownerID string) func() {
	e.mu.Lock()
	if e.owners == nil {
		e.owners = map[string]*sync.Mutex{}
	}
	m, ok := e.owners[ownerID]
	if !ok {
		m = &sync.Mutex{}
		e.owners[ownerID] = m
	}
	e.mu.Unlock()
	m.Lock()
	return m.Unlock
}
