package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/store"
	dbpkg "github.com/opsdesk/attendance/internal/db"
)

// ActivityLog appends audit lines to activity_log.
type ActivityLog struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewActivityLog(db *sql.DB, writer *dbpkg.Worker) *ActivityLog {
	return &ActivityLog{db: db, writer: writer}
}

func (l *ActivityLog) LogActivity(ctx context.Context, e store.ActivityEntry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return l.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO activity_log(actor_id, verb, entity_type, entity_id, at_ms)
VALUES (?, ?, ?, ?, ?);
`, e.ActorID, e.Verb, e.EntityType, e.EntityID, e.At.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("LogActivity: %w", err)
		}
		return nil
	})
}

// ForEntity returns the audit trail of one entity, oldest first.
func (l *ActivityLog) ForEntity(ctx context.Context, entityType, entityID string) ([]store.ActivityEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT actor_id, verb, entity_type, entity_id, at_ms
FROM activity_log
WHERE entity_type = ? AND entity_id = ?
ORDER BY at_ms, activity_id;
`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("ForEntity: %w", err)
	}
	defer rows.Close()

	var out []store.ActivityEntry
	for rows.Next() {
		var e store.ActivityEntry
		var atMs int64
		if err := rows.Scan(&e.ActorID, &e.Verb, &e.EntityType, &e.EntityID, &atMs); err != nil {
			return nil, fmt.Errorf("ForEntity scan: %w", err)
		}
		e.At = time.UnixMilli(atMs).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
