package repository

import (
	"context"
	"database/sql"
)

// VendorRepo handles vendors.
type VendorRepo struct{ db *sql.DB }

func NewVendorRepo(db *sql.DB) *VendorRepo { return &VendorRepo{db: db} }

func (r *VendorRepo) Upsert(ctx context.Context, v Vendor) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO vendors(id, owner_id, name) VALUES(?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, v.ID, v.OwnerID, v.Name)
	return err
}

func (r *VendorRepo) List(ctx context.Context, ownerID string) ([]Vendor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name FROM vendors WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Name); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// NamesByID resolves display names for the given vendor ids.
func (r *VendorRepo) NamesByID(ctx context.Context, ownerID string, ids []string) (map[string]string, error) {
	return namesByID(ctx, r.db, "vendors", ownerID, ids)
}
