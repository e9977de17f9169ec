package service

import (
	"context"
	"fmt"

	"github.com/jcollier/studiobooks/internal/database"
	"github.com/jcollier/studiobooks/internal/database/repository"
	"github.com/jcollier/studiobooks/internal/errs"
)

// Reference rows are fetched in chunks this size when building the queue view.
const joinChunkSize = 50

// ManualMatchBucket labels the display group for matches with no rule.
const ManualMatchBucket = "Manual Match"

// ApprovalQueue reviews pending matches: approve applies the suggestion to the
// transaction, reject returns it to the unreconciled pool.
type ApprovalQueue struct {
	Transactions *repository.TransactionRepo
	Matches      *repository.PendingMatchRepo
	Rules        *repository.RuleRepo
	Categories   *repository.CategoryRepo
	Vendors      *repository.VendorRepo
	Staff        *repository.StaffRepo
}

// QueueItem is one pending match joined with display data.
type QueueItem struct {
	Match             repository.PendingMatch
	Transaction       repository.Transaction
	RuleName          string
	CategoryName      string
	VendorName        string
	StaffName         string
	AlreadyReconciled bool
}

// QueueGroup is the per-rule grouping the operator bulk-acts on.
type QueueGroup struct {
	RuleID   *string
	RuleName string
	Items    []QueueItem
}

// List returns pending matches grouped by originating rule, matches with no
// rule under a synthetic manual bucket.
func (q *ApprovalQueue) List(ctx context.Context, ownerID string) ([]QueueGroup, error) {
	if ownerID == "" {
		return nil, errs.ErrUnauthorized
	}
	pending, err := q.Matches.ListPending(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list pending matches: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	txnIDs := make([]string, 0, len(pending))
	catIDs := map[string]bool{}
	vendorIDs := map[string]bool{}
	staffIDs := map[string]bool{}
	for _, m := range pending {
		txnIDs = append(txnIDs, m.TransactionID)
		if m.SuggestedCategoryID != nil {
			catIDs[*m.SuggestedCategoryID] = true
		}
		if m.SuggestedVendorID != nil {
			vendorIDs[*m.SuggestedVendorID] = true
		}
		if m.SuggestedStaffID != nil {
			staffIDs[*m.SuggestedStaffID] = true
		}
	}

	txnByID := map[string]repository.Transaction{}
	for start := 0; start < len(txnIDs); start += joinChunkSize {
		end := min(start+joinChunkSize, len(txnIDs))
		txns, err := q.Transactions.GetMany(ctx, ownerID, txnIDs[start:end])
		if err != nil {
			return nil, fmt.Errorf("fetch transactions: %w", err)
		}
		for _, t := range txns {
			txnByID[t.ID] = t
		}
	}

	catNames, err := q.namesChunked(ctx, ownerID, keys(catIDs), q.Categories.NamesByID)
	if err != nil {
		return nil, err
	}
	vendorNames, err := q.namesChunked(ctx, ownerID, keys(vendorIDs), q.Vendors.NamesByID)
	if err != nil {
		return nil, err
	}
	staffNames, err := q.namesChunked(ctx, ownerID, keys(staffIDs), q.Staff.NamesByID)
	if err != nil {
		return nil, err
	}

	rules, err := q.Rules.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	ruleNames := make(map[string]string, len(rules))
	for _, r := range rules {
		ruleNames[r.ID] = r.Name
	}

	groupIndex := map[string]int{}
	var groups []QueueGroup
	for _, m := range pending {
		txn, ok := txnByID[m.TransactionID]
		if !ok {
			continue
		}
		item := QueueItem{
			Match:             m,
			Transaction:       txn,
			AlreadyReconciled: txn.Confirmed || txn.Status == repository.StatusReconciled,
		}
		key := ""
		name := ManualMatchBucket
		if m.RuleID != nil {
			key = *m.RuleID
			name = ruleNames[*m.RuleID]
			if name == "" {
				name = "Deleted rule"
			}
			item.RuleName = name
		}
		if m.SuggestedCategoryID != nil {
			item.CategoryName = catNames[*m.SuggestedCategoryID]
		}
		if m.SuggestedVendorID != nil {
			item.VendorName = vendorNames[*m.SuggestedVendorID]
		}
		if m.SuggestedStaffID != nil {
			item.StaffName = staffNames[*m.SuggestedStaffID]
		}

		idx, ok := groupIndex[key]
		if !ok {
			idx = len(groups)
			groupIndex[key] = idx
			g := QueueGroup{RuleName: name}
			if m.RuleID != nil {
				ruleID := *m.RuleID
				g.RuleID = &ruleID
			}
			groups = append(groups, g)
		}
		groups[idx].Items = append(groups[idx].Items, item)
	}
	return groups, nil
}

// Approve applies the match's suggestion to its transaction and marks the
// match approved. A suggestion without a category cannot be blindly approved.
func (q *ApprovalQueue) Approve(ctx context.Context, ownerID, matchID string) error {
	return q.approve(ctx, ownerID, matchID, nil, nil)
}

// ApproveWithEdit approves the match with an operator-supplied category (and
// optional notes) overriding the rule's suggestion.
func (q *ApprovalQueue) ApproveWithEdit(ctx context.Context, ownerID, matchID, categoryID string, notes *string) error {
	if categoryID == "" {
		return errs.ErrMissingCategory
	}
	return q.approve(ctx, ownerID, matchID, &categoryID, notes)
}

func (q *ApprovalQueue) approve(ctx context.Context, ownerID, matchID string, categoryOverride, notesOverride *string) error {
	if ownerID == "" {
		return errs.ErrUnauthorized
	}
	m, err := q.Matches.Get(ctx, ownerID, matchID)
	if err != nil {
		return fmt.Errorf("load pending match: %w", err)
	}
	if m == nil {
		return fmt.Errorf("pending match %s: %w", matchID, errs.ErrNotFound)
	}
	if m.Status != repository.MatchPending {
		return fmt.Errorf("pending match %s already reviewed (%s)", matchID, m.Status)
	}

	categoryID := m.SuggestedCategoryID
	if categoryOverride != nil {
		categoryID = categoryOverride
	}
	if categoryID == nil {
		return errs.ErrMissingCategory
	}
	notes := m.SuggestedNotes
	if notesOverride != nil {
		notes = notesOverride
	}
	method := "rule"
	if m.RuleID == nil {
		method = "manual"
	}

	now := database.Now()
	err = q.Transactions.ApplyCategorization(ctx, ownerID, m.TransactionID, repository.Categorization{
		CategoryID: categoryID,
		StaffID:    m.SuggestedStaffID,
		VendorID:   m.SuggestedVendorID,
		Notes:      notes,
		Method:     method,
		At:         now,
	})
	if err != nil {
		return fmt.Errorf("apply categorization to %s: %w", m.TransactionID, err)
	}
	if err := q.Matches.SetStatus(ctx, ownerID, matchID, repository.MatchApproved, now); err != nil {
		return fmt.Errorf("mark match approved: %w", err)
	}
	return nil
}

// Reject returns the transaction to the unreconciled pool so later engine
// runs or other rules may re-match it. Fields committed by a prior approval
// are left untouched.
func (q *ApprovalQueue) Reject(ctx context.Context, ownerID, matchID string) error {
	if ownerID == "" {
		return errs.ErrUnauthorized
	}
	m, err := q.Matches.Get(ctx, ownerID, matchID)
	if err != nil {
		return fmt.Errorf("load pending match: %w", err)
	}
	if m == nil {
		return fmt.Errorf("pending match %s: %w", matchID, errs.ErrNotFound)
	}
	if m.Status != repository.MatchPending {
		return fmt.Errorf("pending match %s already reviewed (%s)", matchID, m.Status)
	}
	if err := q.Transactions.UpdateStatus(ctx, ownerID, []string{m.TransactionID}, repository.StatusUnreconciled); err != nil {
		return fmt.Errorf("return transaction to pool: %w", err)
	}
	if err := q.Matches.SetStatus(ctx, ownerID, matchID, repository.MatchRejected, database.Now()); err != nil {
		return fmt.Errorf("mark match rejected: %w", err)
	}
	return nil
}

// BulkResult reports per-id outcomes of a bulk operation. The batch never
// aborts on a failed item.
type BulkResult struct {
	Succeeded int
	Failed    int
	Errors    map[string]error
}

// BulkApprove approves each id independently and collects failures.
func (q *ApprovalQueue) BulkApprove(ctx context.Context, ownerID string, matchIDs []string) BulkResult {
	return q.bulk(ctx, ownerID, matchIDs, q.Approve)
}

// BulkReject rejects each id independently and collects failures.
func (q *ApprovalQueue) BulkReject(ctx context.Context, ownerID string, matchIDs []string) BulkResult {
	return q.bulk(ctx, ownerID, matchIDs, q.Reject)
}

func (q *ApprovalQueue) bulk(ctx context.Context, ownerID string, matchIDs []string, op func(context.Context, string, string) error) BulkResult {
	res := BulkResult{Errors: map[string]error{}}
	for _, id := range matchIDs {
		if err := op(ctx, ownerID, id); err != nil {
			res.Failed++
			res.Errors[id] = err
			continue
		}
		res.Succeeded++
	}
	return res
}

func (q *ApprovalQueue) namesChunked(ctx context.Context, ownerID string, ids []string, fetch func(context.Context, string, []string) (map[string]string, error)) (map[string]string, error) {
	out := map[string]string{}
	for start := 0; start < len(ids); start += joinChunkSize {
		end := min(start+joinChunkSize, len(ids))
		names, err := fetch(ctx, ownerID, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("resolve names: %w", err)
		}
		for id, name := range names {
			out[id] = name
		}
	}
	return out, nil
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
