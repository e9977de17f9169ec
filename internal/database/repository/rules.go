package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

const ruleColumns = `id, owner_id, name, description, priority, match_type,
 match_vendor_id, match_staff_id, match_description_pattern, match_counter_party,
 match_amount_min_cents, match_amount_max_cents, match_transaction_type, conditions_json,
 action_category_id, action_staff_id, action_vendor_id, action_notes,
 is_active, requires_approval, match_count, last_matched_at, created_at, updated_at`

// RuleRepo stores reconciliation rules.
type RuleRepo struct{ db *sql.DB }

func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

func (r *RuleRepo) Insert(ctx context.Context, rule Rule) error {
	conditions, err := marshalConditions(rule.Conditions)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO reconciliation_rules(
	 id, owner_id, name, description, priority, match_type,
	 match_vendor_id, match_staff_id, match_description_pattern, match_counter_party,
	 match_amount_min_cents, match_amount_max_cents, match_transaction_type, conditions_json,
	 action_category_id, action_staff_id, action_vendor_id, action_notes,
	 is_active, requires_approval, match_count, last_matched_at, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`,
		rule.ID, rule.OwnerID, rule.Name, rule.Description, rule.Priority, rule.MatchType,
		rule.MatchVendorID, rule.MatchStaffID, rule.MatchDescriptionPattern, rule.MatchCounterParty,
		rule.MatchAmountMinCents, rule.MatchAmountMaxCents, rule.MatchTransactionType, conditions,
		rule.ActionCategoryID, rule.ActionStaffID, rule.ActionVendorID, rule.ActionNotes,
		rule.IsActive, rule.RequiresApproval)
	return err
}

func (r *RuleRepo) Update(ctx context.Context, rule Rule) error {
	conditions, err := marshalConditions(rule.Conditions)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
	UPDATE reconciliation_rules SET
	 name = ?, description = ?, priority = ?, match_type = ?,
	 match_vendor_id = ?, match_staff_id = ?, match_description_pattern = ?, match_counter_party = ?,
	 match_amount_min_cents = ?, match_amount_max_cents = ?, match_transaction_type = ?, conditions_json = ?,
	 action_category_id = ?, action_staff_id = ?, action_vendor_id = ?, action_notes = ?,
	 is_active = ?, requires_approval = ?, updated_at = CURRENT_TIMESTAMP
	WHERE owner_id = ? AND id = ?`,
		rule.Name, rule.Description, rule.Priority, rule.MatchType,
		rule.MatchVendorID, rule.MatchStaffID, rule.MatchDescriptionPattern, rule.MatchCounterParty,
		rule.MatchAmountMinCents, rule.MatchAmountMaxCents, rule.MatchTransactionType, conditions,
		rule.ActionCategoryID, rule.ActionStaffID, rule.ActionVendorID, rule.ActionNotes,
		rule.IsActive, rule.RequiresApproval, rule.OwnerID, rule.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// Delete removes the rule. Historical pending matches survive with rule_id
// nulled by the schema's ON DELETE SET NULL.
func (r *RuleRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reconciliation_rules WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

func (r *RuleRepo) Get(ctx context.Context, ownerID, id string) (*Rule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM reconciliation_rules WHERE owner_id = ? AND id = ?`, ownerID, id)
	rule, err := scanRule(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// List returns all rules in evaluation order: ascending priority, ties broken
// by creation time then id so the order is stable across runs.
func (r *RuleRepo) List(ctx context.Context, ownerID string) ([]Rule, error) {
	return r.list(ctx, ownerID, false)
}

// ListActive returns only enabled rules, in evaluation order.
func (r *RuleRepo) ListActive(ctx context.Context, ownerID string) ([]Rule, error) {
	return r.list(ctx, ownerID, true)
}

func (r *RuleRepo) list(ctx context.Context, ownerID string, activeOnly bool) ([]Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM reconciliation_rules WHERE owner_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY priority, created_at, id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *RuleRepo) SetActive(ctx context.Context, ownerID, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reconciliation_rules SET is_active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE owner_id = ? AND id = ?`, active, ownerID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// RecordMatches bumps match telemetry for each rule after an engine run.
func (r *RuleRepo) RecordMatches(ctx context.Context, ownerID string, counts map[string]int) error {
	if len(counts) == 0 {
		return nil
	}
	stmt, err := r.db.PrepareContext(ctx, `
	UPDATE reconciliation_rules
	SET match_count = match_count + ?, last_matched_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
	WHERE owner_id = ? AND id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for id, n := range counts {
		if n <= 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, n, ownerID, id); err != nil {
			return err
		}
	}
	return nil
}

func marshalConditions(conditions []Condition) (string, error) {
	if len(conditions) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(conditions)
	if err != nil {
		return "", fmt.Errorf("marshal conditions: %w", err)
	}
	return string(raw), nil
}

func scanRule(row scanner) (Rule, error) {
	var rule Rule
	var matchVendor, matchStaff, matchPattern, matchParty, matchTxnType sql.NullString
	var actionCategory, actionStaff, actionVendor, actionNotes sql.NullString
	var minCents, maxCents sql.NullInt64
	var conditionsRaw string
	var lastMatched sql.NullTime
	if err := row.Scan(&rule.ID, &rule.OwnerID, &rule.Name, &rule.Description, &rule.Priority, &rule.MatchType,
		&matchVendor, &matchStaff, &matchPattern, &matchParty,
		&minCents, &maxCents, &matchTxnType, &conditionsRaw,
		&actionCategory, &actionStaff, &actionVendor, &actionNotes,
		&rule.IsActive, &rule.RequiresApproval, &rule.MatchCount, &lastMatched,
		&rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return Rule{}, err
	}
	rule.MatchVendorID = nullString(matchVendor)
	rule.MatchStaffID = nullString(matchStaff)
	rule.MatchDescriptionPattern = nullString(matchPattern)
	rule.MatchCounterParty = nullString(matchParty)
	rule.MatchTransactionType = nullString(matchTxnType)
	rule.ActionCategoryID = nullString(actionCategory)
	rule.ActionStaffID = nullString(actionStaff)
	rule.ActionVendorID = nullString(actionVendor)
	rule.ActionNotes = nullString(actionNotes)
	if minCents.Valid {
		v := minCents.Int64
		rule.MatchAmountMinCents = &v
	}
	if maxCents.Valid {
		v := maxCents.Int64
		rule.MatchAmountMaxCents = &v
	}
	if lastMatched.Valid {
		at := lastMatched.Time
		rule.LastMatchedAt = &at
	}
	if conditionsRaw != "" {
		if err := json.Unmarshal([]byte(conditionsRaw), &rule.Conditions); err != nil {
			return Rule{}, fmt.Errorf("unmarshal conditions for rule %s: %w", rule.ID, err)
		}
	}
	return rule, nil
}
