package repository

import (
	"context"
	"database/sql"
)

// namesByID is the shared id -> name lookup behind the lookup repos. The table
// name is always one of our own constants, never caller input.
func namesByID(ctx context.Context, db *sql.DB, table, ownerID string, ids []string) (map[string]string, error) {
	out := map[string]string{}
	if len(ids) == 0 {
		return out, nil
	}
	placeholders, args := inClause(ids)
	args = append([]interface{}{ownerID}, args...)
	rows, err := db.QueryContext(ctx,
		`SELECT id, name FROM `+table+` WHERE owner_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}
