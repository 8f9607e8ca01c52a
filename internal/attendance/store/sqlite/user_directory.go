package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/store"
	dbpkg "github.com/opsdesk/attendance/internal/db"
)

type UserDirectory struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewUserDirectory(db *sql.DB, writer *dbpkg.Worker) *UserDirectory {
	return &UserDirectory{db: db, writer: writer}
}

func (d *UserDirectory) GetUser(ctx context.Context, id string) (store.User, error) {
	var u store.User
	var active int
	err := d.db.QueryRowContext(ctx, `
SELECT user_id, name, role, active FROM users WHERE user_id = ?;
`, strings.TrimSpace(id)).Scan(&u.ID, &u.Name, &u.Role, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, store.ErrNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("GetUser: %w", err)
	}
	u.Active = active != 0
	return u, nil
}

func (d *UserDirectory) ListActiveUsers(ctx context.Context) ([]store.User, error) {
	rows, err := d.db.QueryContext(ctx, `
SELECT user_id, name, role FROM users WHERE active = 1 ORDER BY user_id;
`)
	if err != nil {
		return nil, fmt.Errorf("ListActiveUsers: %w", err)
	}
	defer rows.Close()

	var out []store.User
	for rows.Next() {
		u := store.User{Active: true}
		if err := rows.Scan(&u.ID, &u.Name, &u.Role); err != nil {
			return nil, fmt.Errorf("ListActiveUsers scan: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// PutUser inserts or refreshes a directory entry.
func (d *UserDirectory) PutUser(ctx context.Context, u store.User) error {
	id := strings.TrimSpace(u.ID)
	if id == "" {
		return fmt.Errorf("PutUser: empty id")
	}
	active := 0
	if u.Active {
		active = 1
	}
	now := time.Now().UTC().UnixMilli()

	return d.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO users(user_id, name, role, active, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
  name = excluded.name,
  role = excluded.role,
  active = excluded.active,
  updated_at_ms = excluded.updated_at_ms;
`, id, u.Name, u.Role, active, now, now); err != nil {
			return fmt.Errorf("PutUser: %w", err)
		}
		return nil
	})
}
