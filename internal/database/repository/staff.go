package repository

import (
	"context"
	"database/sql"
)

// StaffRepo handles staff members.
type StaffRepo struct{ db *sql.DB }

func NewStaffRepo(db *sql.DB) *StaffRepo { return &StaffRepo{db: db} }

func (r *StaffRepo) Upsert(ctx context.Context, s Staff) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO staff(id, owner_id, name) VALUES(?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, s.ID, s.OwnerID, s.Name)
	return err
}

func (r *StaffRepo) List(ctx context.Context, ownerID string) ([]Staff, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name FROM staff WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Staff
	for rows.Next() {
		var s Staff
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// NamesByID resolves display names for the given staff ids.
func (r *StaffRepo) NamesByID(ctx context.Context, ownerID string, ids []string) (map[string]string, error) {
	return namesByID(ctx, r.db, "staff", ownerID, ids)
}
