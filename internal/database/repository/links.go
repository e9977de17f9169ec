package repository

import (
	"context"
	"database/sql"
)

// TransactionLinkRepo handles dependent join rows (payables, bills, debts).
type TransactionLinkRepo struct{ db *sql.DB }

func NewTransactionLinkRepo(db *sql.DB) *TransactionLinkRepo { return &TransactionLinkRepo{db: db} }

func (r *TransactionLinkRepo) Add(ctx context.Context, l TransactionLink) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT OR IGNORE INTO transaction_links(transaction_id, link_type, link_id)
	VALUES(?, ?, ?)`, l.TransactionID, l.LinkType, l.LinkID)
	return err
}

// LinkedTransactionIDs returns the subset of ids that have at least one
// dependent link row.
func (r *TransactionLinkRepo) LinkedTransactionIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	if len(ids) == 0 {
		return out, nil
	}
	placeholders, args := inClause(ids)
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT transaction_id FROM transaction_links
		 WHERE transaction_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
