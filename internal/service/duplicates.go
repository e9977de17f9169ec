package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jcollier/studiobooks/internal/database/repository"
	"github.com/jcollier/studiobooks/internal/errs"
)

// DuplicateChecker finds and removes duplicated transactions among records
// that lack a bank-feed identity (feed rows are deduped upstream by
// external id).
type DuplicateChecker struct {
	Transactions *repository.TransactionRepo
	Links        *repository.TransactionLinkRepo
}

// DuplicateGroup is a set of transactions sharing the exact identity key.
// KeepID is the most enriched record; the rest are deletion candidates.
type DuplicateGroup struct {
	Key       string
	KeepID    string
	DeleteIDs []string
}

// CheckResult summarizes a duplicate scan.
type CheckResult struct {
	Groups             []DuplicateGroup
	TotalGroups        int
	TotalDuplicateRows int
}

// Check groups transactions by (date, amount, description, counterparty,
// source) and picks a survivor per group by enrichment score, ties going to
// the oldest record on the assumption that the first import is canonical.
func (d *DuplicateChecker) Check(ctx context.Context, ownerID string) (CheckResult, error) {
	if ownerID == "" {
		return CheckResult{}, errs.ErrUnauthorized
	}
	txns, err := d.Transactions.ListWithoutExternalID(ctx, ownerID)
	if err != nil {
		return CheckResult{}, fmt.Errorf("scan transactions: %w", err)
	}

	byKey := map[string][]repository.Transaction{}
	var order []string
	for _, t := range txns {
		key := identityKey(t)
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], t)
	}

	var result CheckResult
	for _, key := range order {
		group := byKey[key]
		if len(group) < 2 {
			continue
		}
		keep := group[0]
		keepScore := enrichmentScore(keep)
		for _, t := range group[1:] {
			// Strict comparison keeps the earliest row on ties; the scan is
			// ordered by created_at.
			if s := enrichmentScore(t); s > keepScore {
				keep, keepScore = t, s
			}
		}
		dg := DuplicateGroup{Key: key, KeepID: keep.ID}
		for _, t := range group {
			if t.ID != keep.ID {
				dg.DeleteIDs = append(dg.DeleteIDs, t.ID)
			}
		}
		result.Groups = append(result.Groups, dg)
		result.TotalGroups++
		result.TotalDuplicateRows += len(dg.DeleteIDs)
	}
	return result, nil
}

// Cleanup deletes the scan's deletion candidates, or the supplied subset of
// them. Transactions with dependent link rows are excluded: referential
// safety overrides the scoring decision.
func (d *DuplicateChecker) Cleanup(ctx context.Context, ownerID string, ids []string) (int64, error) {
	if ownerID == "" {
		return 0, errs.ErrUnauthorized
	}
	scan, err := d.Check(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	candidates := map[string]bool{}
	for _, g := range scan.Groups {
		for _, id := range g.DeleteIDs {
			candidates[id] = true
		}
	}

	var toDelete []string
	if ids == nil {
		toDelete = keys(candidates)
		sort.Strings(toDelete)
	} else {
		for _, id := range ids {
			if candidates[id] {
				toDelete = append(toDelete, id)
			}
		}
	}
	if len(toDelete) == 0 {
		return 0, nil
	}

	linked := map[string]bool{}
	for start := 0; start < len(toDelete); start += statusChunkSize {
		end := min(start+statusChunkSize, len(toDelete))
		part, err := d.Links.LinkedTransactionIDs(ctx, toDelete[start:end])
		if err != nil {
			return 0, fmt.Errorf("check linked rows: %w", err)
		}
		for id := range part {
			linked[id] = true
		}
	}
	var safe []string
	for _, id := range toDelete {
		if !linked[id] {
			safe = append(safe, id)
		}
	}

	var deleted int64
	for start := 0; start < len(safe); start += statusChunkSize {
		end := min(start+statusChunkSize, len(safe))
		n, err := d.Transactions.DeleteByIDs(ctx, ownerID, safe[start:end])
		if err != nil {
			return deleted, fmt.Errorf("delete duplicates: %w", err)
		}
		deleted += n
	}
	return deleted, nil
}

// IntegrityReport carries read-only diagnostic counters. Both should be zero;
// non-zero values indicate a sync or re-import bug, and never feed cleanup.
type IntegrityReport struct {
	DuplicateExternalIDs  int
	DuplicateImportHashes int
}

// Integrity runs the diagnostic counters.
func (d *DuplicateChecker) Integrity(ctx context.Context, ownerID string) (IntegrityReport, error) {
	if ownerID == "" {
		return IntegrityReport{}, errs.ErrUnauthorized
	}
	extDupes, err := d.Transactions.CountDuplicateExternalIDs(ctx, ownerID)
	if err != nil {
		return IntegrityReport{}, fmt.Errorf("count external id duplicates: %w", err)
	}
	hashDupes, err := d.Transactions.CountDuplicateImportHashes(ctx, ownerID)
	if err != nil {
		return IntegrityReport{}, fmt.Errorf("count import hash duplicates: %w", err)
	}
	return IntegrityReport{DuplicateExternalIDs: extDupes, DuplicateImportHashes: hashDupes}, nil
}

// NearDuplicate is an advisory pair that is probably the same payment entered
// twice with slightly different descriptions. Advisory only; Cleanup never
// touches these.
type NearDuplicate struct {
	AID        string
	BID        string
	Similarity float64
}

const (
	nearDuplicateMaxDaysApart = 7
	nearDuplicateMaxDistance  = 0.4
)

// NearDuplicates reports same-amount pairs within a week of each other whose
// descriptions are close by normalized edit distance.
func (d *DuplicateChecker) NearDuplicates(ctx context.Context, ownerID string) ([]NearDuplicate, error) {
	if ownerID == "" {
		return nil, errs.ErrUnauthorized
	}
	txns, err := d.Transactions.ListWithoutExternalID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	var out []NearDuplicate
	for i := 0; i < len(txns); i++ {
		for j := i + 1; j < len(txns); j++ {
			a, b := txns[i], txns[j]
			if a.AmountCents != b.AmountCents {
				continue
			}
			if daysApart := a.Date.Sub(b.Date).Hours() / 24; daysApart > nearDuplicateMaxDaysApart || daysApart < -nearDuplicateMaxDaysApart {
				continue
			}
			if identityKey(a) == identityKey(b) {
				continue // exact duplicates are Check's business
			}
			dist := normalizedDistance(a.Description, b.Description)
			if dist >= nearDuplicateMaxDistance {
				continue
			}
			out = append(out, NearDuplicate{AID: a.ID, BID: b.ID, Similarity: 1 - dist})
		}
	}
	return out, nil
}

func identityKey(t repository.Transaction) string {
	return strings.Join([]string{
		t.Date.Format("2006-01-02"),
		fmt.Sprintf("%d", t.AmountCents),
		t.Description,
		t.RawParty,
		t.Source,
	}, "|")
}

// enrichmentScore measures how much useful linked data a record carries.
// Simple links count 1, financial document links 2, confirmation and a
// reconciled status 3 each.
func enrichmentScore(t repository.Transaction) int {
	score := 0
	if t.CategoryID != nil {
		score++
	}
	if t.VendorID != nil {
		score++
	}
	if t.StaffID != nil {
		score++
	}
	if t.PayableID != nil {
		score += 2
	}
	if t.BillID != nil {
		score += 2
	}
	if t.DebtID != nil {
		score += 2
	}
	if t.Confirmed {
		score += 3
	}
	if t.Status == repository.StatusReconciled {
		score += 3
	}
	return score
}

func normalizedDistance(a, b string) float64 {
	a = strings.ToUpper(a)
	b = strings.ToUpper(b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(maxLen)
}
