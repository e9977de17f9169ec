package repository

import (
	"context"
	"database/sql"
)

// CategoryRepo handles categories.
type CategoryRepo struct{ db *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) Upsert(ctx context.Context, c Category) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO categories(id, owner_id, name, kind) VALUES(?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET name = excluded.name, kind = excluded.kind
	`, c.ID, c.OwnerID, c.Name, c.Kind)
	return err
}

func (r *CategoryRepo) List(ctx context.Context, ownerID string) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, kind FROM categories WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Kind); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// NamesByID resolves display names for the given category ids.
func (r *CategoryRepo) NamesByID(ctx context.Context, ownerID string, ids []string) (map[string]string, error) {
	return namesByID(ctx, r.db, "categories", ownerID, ids)
}
