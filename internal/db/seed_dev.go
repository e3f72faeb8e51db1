package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a demo card holder so the pairing flow can be exercised
// against a fresh dev database.  It never touches an existing row.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO users(name, cpf, email, phone, created_at_ms, updated_at_ms)
VALUES ('Demo User', '12345678900', 'demo@example.com', '+55 48 99999-0000', ?, ?);
`, now, now); err != nil {
		return fmt.Errorf("seed demo user: %w", err)
	}

	return nil
}
