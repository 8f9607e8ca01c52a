package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opsdesk/attendance/internal/attendance/store"
	"github.com/opsdesk/attendance/internal/attendance/types"
	dbpkg "github.com/opsdesk/attendance/internal/db"
)

// RecordStore persists attendance records in SQLite. Instants are stored as
// UTC unix milliseconds and returned in loc.
type RecordStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
	loc    *time.Location
	now    func() time.Time
}

func NewRecordStore(db *sql.DB, writer *dbpkg.Worker, loc *time.Location) *RecordStore {
	if loc == nil {
		loc = time.Local
	}
	return &RecordStore{db: db, writer: writer, loc: loc, now: time.Now}
}

const recordColumns = `
  record_id, user_id, day_ms,
  login_at_ms, logout_at_ms, mode, status,
  early_sign_in_min, late_sign_in_min, early_logout_min, late_logout_min, total_hours,
  lunch_start_ms, lunch_end_ms, last_activity_ms, wfh_pings,
  edited_by, edited_at_ms, created_at_ms, updated_at_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *RecordStore) scan(row rowScanner) (store.AttendanceRecord, error) {
	var rec store.AttendanceRecord
	var dayMs, createdMs, updatedMs int64
	var mode, status string
	var login, logout, lunchStart, lunchEnd, lastActivity, editedAt sql.NullInt64
	var earlyIn, lateIn, earlyOut, lateOut sql.NullInt64
	var hours sql.NullFloat64
	var editedBy sql.NullString
	err := row.Scan(
		&rec.ID, &rec.UserID, &dayMs,
		&login, &logout, &mode, &status,
		&earlyIn, &lateIn, &earlyOut, &lateOut, &hours,
		&lunchStart, &lunchEnd, &lastActivity, &rec.WFHActivityPings,
		&editedBy, &editedAt, &createdMs, &updatedMs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.AttendanceRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.AttendanceRecord{}, err
	}

	rec.Date = time.UnixMilli(dayMs).In(s.loc)
	rec.Mode = types.Mode(mode)
	rec.Status = types.Status(status)
	rec.LoginTime = s.timeOf(login)
	rec.LogoutTime = s.timeOf(logout)
	rec.EarlySignInMinutes = intOf(earlyIn)
	rec.LateSignInMinutes = intOf(lateIn)
	rec.EarlyLogoutMinutes = intOf(earlyOut)
	rec.LateLogoutMinutes = intOf(lateOut)
	if hours.Valid {
		v := hours.Float64
		rec.TotalHours = &v
	}
	rec.LunchStart = s.timeOf(lunchStart)
	rec.LunchEnd = s.timeOf(lunchEnd)
	rec.LastActivityTime = s.timeOf(lastActivity)
	if editedBy.Valid {
		v := editedBy.String
		rec.EditedBy = &v
	}
	rec.EditedAt = s.timeOf(editedAt)
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return rec, nil
}

func (s *RecordStore) timeOf(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).In(s.loc)
	return &t
}

func intOf(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func msOf(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixMilli()
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func (s *RecordStore) GetByUserAndDate(ctx context.Context, userID string, day time.Time) (store.AttendanceRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT`+recordColumns+`
FROM attendance_records WHERE user_id = ? AND day_ms = ?;`, userID, day.UnixMilli())
	rec, err := s.scan(row)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return rec, fmt.Errorf("GetByUserAndDate: %w", err)
	}
	return rec, err
}

func (s *RecordStore) GetByID(ctx context.Context, id string) (store.AttendanceRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT`+recordColumns+`
FROM attendance_records WHERE record_id = ?;`, id)
	rec, err := s.scan(row)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return rec, fmt.Errorf("GetByID: %w", err)
	}
	return rec, err
}

// UpsertByUserAndDate inserts the row for (UserID, Date) or replaces every
// mutable column of the existing one. The existing record_id and
// created_at_ms win on conflict.
func (s *RecordStore) UpsertByUserAndDate(ctx context.Context, rec store.AttendanceRecord) (store.AttendanceRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	nowMs := s.now().UTC().UnixMilli()

	var saved store.AttendanceRecord
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO attendance_records(`+recordColumns+`
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, day_ms) DO UPDATE SET
  login_at_ms = excluded.login_at_ms,
  logout_at_ms = excluded.logout_at_ms,
  mode = excluded.mode,
  status = excluded.status,
  early_sign_in_min = excluded.early_sign_in_min,
  late_sign_in_min = excluded.late_sign_in_min,
  early_logout_min = excluded.early_logout_min,
  late_logout_min = excluded.late_logout_min,
  total_hours = excluded.total_hours,
  lunch_start_ms = excluded.lunch_start_ms,
  lunch_end_ms = excluded.lunch_end_ms,
  last_activity_ms = excluded.last_activity_ms,
  wfh_pings = excluded.wfh_pings,
  edited_by = excluded.edited_by,
  edited_at_ms = excluded.edited_at_ms,
  updated_at_ms = excluded.updated_at_ms;
`, s.args(rec, nowMs, nowMs)...); err != nil {
			return fmt.Errorf("UpsertByUserAndDate: %w", err)
		}

		row := tx.QueryRowContext(ctx, `SELECT`+recordColumns+`
FROM attendance_records WHERE user_id = ? AND day_ms = ?;`, rec.UserID, rec.Date.UnixMilli())
		var err error
		saved, err = s.scan(row)
		if err != nil {
			return fmt.Errorf("UpsertByUserAndDate reload: %w", err)
		}
		return nil
	})
	return saved, err
}

// UpdateByID rewrites the mutable columns of an existing record. user_id and
// day_ms are never changed.
func (s *RecordStore) UpdateByID(ctx context.Context, rec store.AttendanceRecord) (store.AttendanceRecord, error) {
	nowMs := s.now().UTC().UnixMilli()

	var saved store.AttendanceRecord
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE attendance_records SET
  login_at_ms = ?, logout_at_ms = ?, mode = ?, status = ?,
  early_sign_in_min = ?, late_sign_in_min = ?, early_logout_min = ?, late_logout_min = ?,
  total_hours = ?, lunch_start_ms = ?, lunch_end_ms = ?,
  last_activity_ms = ?, wfh_pings = ?,
  edited_by = ?, edited_at_ms = ?, updated_at_ms = ?
WHERE record_id = ?;
`,
			msOf(rec.LoginTime), msOf(rec.LogoutTime), string(rec.Mode), string(rec.Status),
			nullable(rec.EarlySignInMinutes), nullable(rec.LateSignInMinutes),
			nullable(rec.EarlyLogoutMinutes), nullable(rec.LateLogoutMinutes),
			nullable(rec.TotalHours), msOf(rec.LunchStart), msOf(rec.LunchEnd),
			msOf(rec.LastActivityTime), rec.WFHActivityPings,
			nullable(rec.EditedBy), msOf(rec.EditedAt), nowMs,
			rec.ID,
		)
		if err != nil {
			return fmt.Errorf("UpdateByID: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}

		row := tx.QueryRowContext(ctx, `SELECT`+recordColumns+`
FROM attendance_records WHERE record_id = ?;`, rec.ID)
		saved, err = s.scan(row)
		if err != nil {
			return fmt.Errorf("UpdateByID reload: %w", err)
		}
		return nil
	})
	return saved, err
}

func (s *RecordStore) args(rec store.AttendanceRecord, createdMs, updatedMs int64) []any {
	return []any{
		rec.ID, rec.UserID, rec.Date.UnixMilli(),
		msOf(rec.LoginTime), msOf(rec.LogoutTime), string(rec.Mode), string(rec.Status),
		nullable(rec.EarlySignInMinutes), nullable(rec.LateSignInMinutes),
		nullable(rec.EarlyLogoutMinutes), nullable(rec.LateLogoutMinutes),
		nullable(rec.TotalHours),
		msOf(rec.LunchStart), msOf(rec.LunchEnd), msOf(rec.LastActivityTime), rec.WFHActivityPings,
		nullable(rec.EditedBy), msOf(rec.EditedAt), createdMs, updatedMs,
	}
}

func (s *RecordStore) ListByDate(ctx context.Context, day time.Time) ([]store.AttendanceRecord, error) {
	return s.list(ctx, "ListByDate", `SELECT`+recordColumns+`
FROM attendance_records WHERE day_ms = ? ORDER BY user_id;`, day.UnixMilli())
}

// ListOpenWFH returns WFH records on day with a login and no logout.
func (s *RecordStore) ListOpenWFH(ctx context.Context, day time.Time) ([]store.AttendanceRecord, error) {
	return s.list(ctx, "ListOpenWFH", `SELECT`+recordColumns+`
FROM attendance_records
WHERE day_ms = ? AND mode = ? AND login_at_ms IS NOT NULL AND logout_at_ms IS NULL
ORDER BY user_id;`, day.UnixMilli(), string(types.ModeWFH))
}

func (s *RecordStore) list(ctx context.Context, op, query string, args ...any) ([]store.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []store.AttendanceRecord
	for rows.Next() {
		rec, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
