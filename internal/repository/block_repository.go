package repository

import (
	"context"
	"database/sql"
)

// BlockRepo reads the catalogue of administrative blocks halls belong to.
type BlockRepo struct{ DB *sql.DB }

func NewBlockRepo(db *sql.DB) *BlockRepo { return &BlockRepo{DB: db} }

// List returns the block names in display order.
func (r *BlockRepo) List(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT name FROM blocks ORDER BY position, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
