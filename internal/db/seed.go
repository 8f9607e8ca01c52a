package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SeedUser is one directory entry written by Seed.
type SeedUser struct {
	ID     string
	Name   string
	Role   string
	Active bool
}

type SeedOptions struct {
	Users []SeedUser
}

// Seed upserts the configured users. Existing rows get their name, role and
// active flag refreshed; created_at_ms is preserved.
func Seed(ctx context.Context, conn *sql.DB, opt SeedOptions) error {
	now := time.Now().UTC().UnixMilli()

	for _, u := range opt.Users {
		id := strings.TrimSpace(u.ID)
		if id == "" {
			continue
		}
		active := 0
		if u.Active {
			active = 1
		}
		if _, err := conn.ExecContext(ctx, `
INSERT INTO users(user_id, name, role, active, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
  name = excluded.name,
  role = excluded.role,
  active = excluded.active,
  updated_at_ms = excluded.updated_at_ms;
`, id, u.Name, strings.ToLower(u.Role), active, now, now); err != nil {
			return fmt.Errorf("seed user %s: %w", id, err)
		}
	}
	return nil
}
