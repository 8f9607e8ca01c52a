package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/attendance/internal/attendance/store"
)

type UserDirectory struct {
	pool *pgxpool.Pool
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

func (d *UserDirectory) GetUser(ctx context.Context, id string) (store.User, error) {
	var u store.User
	err := d.pool.QueryRow(ctx,
		`SELECT user_id, name, role, active FROM users WHERE user_id = $1`, strings.TrimSpace(id),
	).Scan(&u.ID, &u.Name, &u.Role, &u.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.User{}, store.ErrNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("GetUser: %w", err)
	}
	return u, nil
}

func (d *UserDirectory) ListActiveUsers(ctx context.Context) ([]store.User, error) {
	rows, err := d.pool.Query(ctx, `SELECT user_id, name, role FROM users WHERE active ORDER BY user_id`)
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

func (d *UserDirectory) PutUser(ctx context.Context, u store.User) error {
	id := strings.TrimSpace(u.ID)
	if id == "" {
		return fmt.Errorf("PutUser: empty id")
	}
	if _, err := d.pool.Exec(ctx, `
INSERT INTO users(user_id, name, role, active) VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE SET
  name = EXCLUDED.name, role = EXCLUDED.role, active = EXCLUDED.active, updated_at = now()`,
		id, u.Name, u.Role, u.Active); err != nil {
		return fmt.Errorf("PutUser: %w", err)
	}
	return nil
}

// ActivityLog appends audit lines to activity_log.
type ActivityLog struct {
	pool *pgxpool.Pool
}

func NewActivityLog(pool *pgxpool.Pool) *ActivityLog {
	return &ActivityLog{pool: pool}
}

func (l *ActivityLog) LogActivity(ctx context.Context, e store.ActivityEntry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if _, err := l.pool.Exec(ctx, `
INSERT INTO activity_log(actor_id, verb, entity_type, entity_id, at) VALUES ($1, $2, $3, $4, $5)`,
		e.ActorID, e.Verb, e.EntityType, e.EntityID, e.At); err != nil {
		return fmt.Errorf("LogActivity: %w", err)
	}
	return nil
}

func (l *ActivityLog) ForEntity(ctx context.Context, entityType, entityID string) ([]store.ActivityEntry, error) {
	rows, err := l.pool.Query(ctx, `
SELECT actor_id, verb, entity_type, entity_id, at FROM activity_log
WHERE entity_type = $1 AND entity_id = $2 ORDER BY at, activity_id`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("ForEntity: %w", err)
	}
	defer rows.Close()

	var out []store.ActivityEntry
	for rows.Next() {
		var e store.ActivityEntry
		if err := rows.Scan(&e.ActorID, &e.Verb, &e.EntityType, &e.EntityID, &e.At); err != nil {
			return nil, fmt.Errorf("ForEntity scan: %w", err)
		}
		e.At = e.At.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
