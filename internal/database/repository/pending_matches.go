package repository

import (
	"context"
	"database/sql"
	"time"
)

const pendingMatchColumns = `id, owner_id, transaction_id, rule_id,
 suggested_category_id, suggested_staff_id, suggested_vendor_id, suggested_notes,
 match_confidence, status, created_at, reviewed_at`

// PendingMatchRepo handles pending categorization suggestions.
type PendingMatchRepo struct{ db *sql.DB }

func NewPendingMatchRepo(db *sql.DB) *PendingMatchRepo { return &PendingMatchRepo{db: db} }

// Upsert inserts one match or, when a row already exists for the same
// (transaction, rule) pair, refreshes its suggestion and resets it to pending.
// Re-running the engine therefore updates rather than duplicates.
func (r *PendingMatchRepo) Upsert(ctx context.Context, m PendingMatch) error {
	return r.upsert(ctx, r.db, m)
}

// UpsertBatch upserts every candidate inside one transaction.
func (r *PendingMatchRepo) UpsertBatch(ctx context.Context, matches []PendingMatch) error {
	if len(matches) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := r.upsert(ctx, tx, m); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *PendingMatchRepo) upsert(ctx context.Context, ex execer, m PendingMatch) error {
	if m.RuleID != nil {
		_, err := ex.ExecContext(ctx, `
		INSERT INTO pending_matches(
		 id, owner_id, transaction_id, rule_id,
		 suggested_category_id, suggested_staff_id, suggested_vendor_id, suggested_notes,
		 match_confidence, status, created_at, reviewed_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, NULL)
		ON CONFLICT(transaction_id, rule_id) WHERE rule_id IS NOT NULL DO UPDATE SET
		 suggested_category_id = excluded.suggested_category_id,
		 suggested_staff_id = excluded.suggested_staff_id,
		 suggested_vendor_id = excluded.suggested_vendor_id,
		 suggested_notes = excluded.suggested_notes,
		 match_confidence = excluded.match_confidence,
		 status = 'pending',
		 reviewed_at = NULL
		`, m.ID, m.OwnerID, m.TransactionID, m.RuleID,
			m.SuggestedCategoryID, m.SuggestedStaffID, m.SuggestedVendorID, m.SuggestedNotes,
			m.MatchConfidence, MatchPending)
		return err
	}
	_, err := ex.ExecContext(ctx, `
	INSERT INTO pending_matches(
	 id, owner_id, transaction_id, rule_id,
	 suggested_category_id, suggested_staff_id, suggested_vendor_id, suggested_notes,
	 match_confidence, status, created_at, reviewed_at)
	VALUES(?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, NULL)
	ON CONFLICT(transaction_id) WHERE rule_id IS NULL DO UPDATE SET
	 suggested_category_id = excluded.suggested_category_id,
	 suggested_staff_id = excluded.suggested_staff_id,
	 suggested_vendor_id = excluded.suggested_vendor_id,
	 suggested_notes = excluded.suggested_notes,
	 match_confidence = excluded.match_confidence,
	 status = 'pending',
	 reviewed_at = NULL
	`, m.ID, m.OwnerID, m.TransactionID,
		m.SuggestedCategoryID, m.SuggestedStaffID, m.SuggestedVendorID, m.SuggestedNotes,
		m.MatchConfidence, MatchPending)
	return err
}

func (r *PendingMatchRepo) Get(ctx context.Context, ownerID, id string) (*PendingMatch, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+pendingMatchColumns+` FROM pending_matches WHERE owner_id = ? AND id = ?`, ownerID, id)
	m, err := scanPendingMatch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListPending returns all pending matches for the owner, oldest first.
func (r *PendingMatchRepo) ListPending(ctx context.Context, ownerID string) ([]PendingMatch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pendingMatchColumns+` FROM pending_matches
		 WHERE owner_id = ? AND status = ? ORDER BY created_at, id`, ownerID, MatchPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingMatch
	for rows.Next() {
		m, err := scanPendingMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListPendingForTransaction returns pending matches for one transaction.
func (r *PendingMatchRepo) ListPendingForTransaction(ctx context.Context, ownerID, transactionID string) ([]PendingMatch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pendingMatchColumns+` FROM pending_matches
		 WHERE owner_id = ? AND transaction_id = ? AND status = ? ORDER BY created_at, id`,
		ownerID, transactionID, MatchPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingMatch
	for rows.Next() {
		m, err := scanPendingMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetStatus transitions a match and stamps the review time.
func (r *PendingMatchRepo) SetStatus(ctx context.Context, ownerID, id, status string, reviewedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pending_matches SET status = ?, reviewed_at = ? WHERE owner_id = ? AND id = ?`,
		status, reviewedAt, ownerID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

func scanPendingMatch(row scanner) (PendingMatch, error) {
	var m PendingMatch
	var ruleID, category, staff, vendor, notes sql.NullString
	var reviewed sql.NullTime
	if err := row.Scan(&m.ID, &m.OwnerID, &m.TransactionID, &ruleID,
		&category, &staff, &vendor, &notes,
		&m.MatchConfidence, &m.Status, &m.CreatedAt, &reviewed); err != nil {
		return PendingMatch{}, err
	}
	m.RuleID = nullString(ruleID)
	m.SuggestedCategoryID = nullString(category)
	m.SuggestedStaffID = nullString(staff)
	m.SuggestedVendorID = nullString(vendor)
	m.SuggestedNotes = nullString(notes)
	if reviewed.Valid {
		at := reviewed.Time
		m.ReviewedAt = &at
	}
	return m, nil
}
