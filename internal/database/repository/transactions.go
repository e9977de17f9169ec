package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const transactionColumns = `id, owner_id, date, amount_cents, description, raw_party, notes,
 category_id, vendor_id, staff_id, payable_id, bill_id, debt_id, confirmed, status,
 external_id, import_hash, source, reconciled_method, reconciled_at, created_at, updated_at`

// TransactionRepo handles transactions.
type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO transactions(
	 id, owner_id, date, amount_cents, description, raw_party, notes,
	 category_id, vendor_id, staff_id, payable_id, bill_id, debt_id, confirmed, status,
	 external_id, import_hash, source, reconciled_method, reconciled_at, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`,
		t.ID, t.OwnerID, t.Date, t.AmountCents, t.Description, t.RawParty, t.Notes,
		t.CategoryID, t.VendorID, t.StaffID, t.PayableID, t.BillID, t.DebtID,
		t.Confirmed, t.Status, t.ExternalID, t.ImportHash, t.Source,
		t.ReconciledMethod, t.ReconciledAt)
	return err
}

func (r *TransactionRepo) Get(ctx context.Context, ownerID, id string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE owner_id = ? AND id = ?`, ownerID, id)
	t, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// ListBatch returns up to limit transactions with id greater than afterID,
// ordered by id, so callers can walk the whole set without unbounded memory.
// When onlyUnreconciled is set, only status = 'unreconciled' rows are returned.
func (r *TransactionRepo) ListBatch(ctx context.Context, ownerID, afterID string, limit int, onlyUnreconciled bool) ([]Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = ? AND id > ?`
	args := []interface{}{ownerID, afterID}
	if onlyUnreconciled {
		query += ` AND status = ?`
		args = append(args, StatusUnreconciled)
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// GetMany returns the transactions with the given ids, in no particular order.
// Callers are expected to chunk ids to respect statement size limits.
func (r *TransactionRepo) GetMany(ctx context.Context, ownerID string, ids []string) ([]Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	args = append([]interface{}{ownerID}, args...)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE owner_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// UpdateStatus sets the status of every given transaction in one statement.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, ownerID string, ids []string, status string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders, args := inClause(ids)
	args = append([]interface{}{status, ownerID}, args...)
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE owner_id = ? AND id IN (`+placeholders+`)`, args...)
	return err
}

// Categorization is the set of fields an approval writes to a transaction.
type Categorization struct {
	CategoryID *string
	StaffID    *string
	VendorID   *string
	Notes      *string
	Method     string
	At         time.Time
}

// ApplyCategorization commits an approved suggestion. Absent staff/vendor/notes
// leave the existing values in place; the category always overwrites.
func (r *TransactionRepo) ApplyCategorization(ctx context.Context, ownerID, id string, c Categorization) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE transactions SET
	 category_id = ?,
	 staff_id = COALESCE(?, staff_id),
	 vendor_id = COALESCE(?, vendor_id),
	 notes = COALESCE(?, notes),
	 confirmed = 1,
	 status = ?,
	 reconciled_method = ?,
	 reconciled_at = ?,
	 updated_at = CURRENT_TIMESTAMP
	WHERE owner_id = ? AND id = ?`,
		c.CategoryID, c.StaffID, c.VendorID, c.Notes, StatusApproved, c.Method, c.At, ownerID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// ListWithoutExternalID returns every transaction lacking a bank-feed identity,
// the population the duplicate scan runs over.
func (r *TransactionRepo) ListWithoutExternalID(ctx context.Context, ownerID string) ([]Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE owner_id = ? AND external_id IS NULL
		 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// DeleteByIDs removes the given transactions and returns how many went.
func (r *TransactionRepo) DeleteByIDs(ctx context.Context, ownerID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders, args := inClause(ids)
	args = append([]interface{}{ownerID}, args...)
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE owner_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountDuplicateExternalIDs reports how many (source, external_id) pairs occur
// more than once. Non-zero means the upstream sync is misbehaving.
func (r *TransactionRepo) CountDuplicateExternalIDs(ctx context.Context, ownerID string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM (
	 SELECT source, external_id FROM transactions
	 WHERE owner_id = ? AND external_id IS NOT NULL
	 GROUP BY source, external_id HAVING COUNT(*) > 1
	)`, ownerID)
	var n int
	err := row.Scan(&n)
	return n, err
}

// CountDuplicateImportHashes reports how many import_hash values occur more
// than once. Non-zero means a re-import slipped past dedup.
func (r *TransactionRepo) CountDuplicateImportHashes(ctx context.Context, ownerID string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM (
	 SELECT import_hash FROM transactions
	 WHERE owner_id = ? AND import_hash IS NOT NULL
	 GROUP BY import_hash HAVING COUNT(*) > 1
	)`, ownerID)
	var n int
	err := row.Scan(&n)
	return n, err
}

// ImportHashExists reports whether a row with this import hash already exists.
func (r *TransactionRepo) ImportHashExists(ctx context.Context, ownerID, hash string) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE owner_id = ? AND import_hash = ?`, ownerID, hash)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func collectTransactions(rows *sql.Rows) ([]Transaction, error) {
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// scanner lets scanTransaction handle both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var notes, category, vendor, staff, payable, bill, debt, external, importHash, method sql.NullString
	var reconciledAt sql.NullTime
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Date, &t.AmountCents, &t.Description, &t.RawParty, &notes,
		&category, &vendor, &staff, &payable, &bill, &debt, &t.Confirmed, &t.Status,
		&external, &importHash, &t.Source, &method, &reconciledAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	t.Notes = nullString(notes)
	t.CategoryID = nullString(category)
	t.VendorID = nullString(vendor)
	t.StaffID = nullString(staff)
	t.PayableID = nullString(payable)
	t.BillID = nullString(bill)
	t.DebtID = nullString(debt)
	t.ExternalID = nullString(external)
	t.ImportHash = nullString(importHash)
	t.ReconciledMethod = nullString(method)
	if reconciledAt.Valid {
		at := reconciledAt.Time
		t.ReconciledAt = &at
	}
	return t, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func inClause(ids []string) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
