package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schema string

// Migrate creates the tables the service needs when they do not exist
// yet.  Every statement is idempotent so it is safe to run on each boot.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}

func statements(src string) []string {
	var out []string
	for _, part := range strings.Split(src, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
