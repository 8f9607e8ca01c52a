package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/attendance/internal/attendance/store"
	"github.com/opsdesk/attendance/internal/attendance/types"
)

// RecordStore keeps one row per (user_id, day). day is a DATE in the
// policy timezone; instants are TIMESTAMPTZ and come back in loc.
type RecordStore struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

func NewRecordStore(pool *pgxpool.Pool, loc *time.Location) *RecordStore {
	if loc == nil {
		loc = time.Local
	}
	return &RecordStore{pool: pool, loc: loc}
}

const recordColumns = `
  record_id, user_id, to_char(day, 'YYYY-MM-DD'),
  login_at, logout_at, mode, status,
  early_sign_in_min, late_sign_in_min, early_logout_min, late_logout_min, total_hours,
  lunch_start, lunch_end, last_activity, wfh_pings,
  edited_by, edited_at, created_at, updated_at`

func (s *RecordStore) scan(row pgx.Row) (store.AttendanceRecord, error) {
	var rec store.AttendanceRecord
	var day, mode, status string
	err := row.Scan(
		&rec.ID, &rec.UserID, &day,
		&rec.LoginTime, &rec.LogoutTime, &mode, &status,
		&rec.EarlySignInMinutes, &rec.LateSignInMinutes,
		&rec.EarlyLogoutMinutes, &rec.LateLogoutMinutes, &rec.TotalHours,
		&rec.LunchStart, &rec.LunchEnd, &rec.LastActivityTime, &rec.WFHActivityPings,
		&rec.EditedBy, &rec.EditedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.AttendanceRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.AttendanceRecord{}, err
	}

	rec.Date, err = time.ParseInLocation(time.DateOnly, day, s.loc)
	if err != nil {
		return store.AttendanceRecord{}, fmt.Errorf("parse day %q: %w", day, err)
	}
	rec.Mode = types.Mode(mode)
	rec.Status = types.Status(status)
	for _, t := range []*time.Time{rec.LoginTime, rec.LogoutTime, rec.LunchStart, rec.LunchEnd, rec.LastActivityTime, rec.EditedAt} {
		if t != nil {
			*t = t.In(s.loc)
		}
	}
	return rec, nil
}

func (s *RecordStore) dayArg(day time.Time) string {
	return day.In(s.loc).Format(time.DateOnly)
}

func (s *RecordStore) GetByUserAndDate(ctx context.Context, userID string, day time.Time) (store.AttendanceRecord, error) {
	rec, err := s.scan(s.pool.QueryRow(ctx, `SELECT`+recordColumns+`
FROM attendance_records WHERE user_id = $1 AND day = $2::date`, userID, s.dayArg(day)))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return rec, fmt.Errorf("GetByUserAndDate: %w", err)
	}
	return rec, err
}

func (s *RecordStore) GetByID(ctx context.Context, id string) (store.AttendanceRecord, error) {
	rec, err := s.scan(s.pool.QueryRow(ctx, `SELECT`+recordColumns+`
FROM attendance_records WHERE record_id = $1`, id))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return rec, fmt.Errorf("GetByID: %w", err)
	}
	return rec, err
}

func (s *RecordStore) UpsertByUserAndDate(ctx context.Context, rec store.AttendanceRecord) (store.AttendanceRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	saved, err := s.scan(s.pool.QueryRow(ctx, `
INSERT INTO attendance_records(
  record_id, user_id, day, login_at, logout_at, mode, status,
  early_sign_in_min, late_sign_in_min, early_logout_min, late_logout_min, total_hours,
  lunch_start, lunch_end, last_activity, wfh_pings, edited_by, edited_at
) VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (user_id, day) DO UPDATE SET
  login_at = EXCLUDED.login_at,
  logout_at = EXCLUDED.logout_at,
  mode = EXCLUDED.mode,
  status = EXCLUDED.status,
  early_sign_in_min = EXCLUDED.early_sign_in_min,
  late_sign_in_min = EXCLUDED.late_sign_in_min,
  early_logout_min = EXCLUDED.early_logout_min,
  late_logout_min = EXCLUDED.late_logout_min,
  total_hours = EXCLUDED.total_hours,
  lunch_start = EXCLUDED.lunch_start,
  lunch_end = EXCLUDED.lunch_end,
  last_activity = EXCLUDED.last_activity,
  wfh_pings = EXCLUDED.wfh_pings,
  edited_by = EXCLUDED.edited_by,
  edited_at = EXCLUDED.edited_at,
  updated_at = now()
RETURNING`+recordColumns,
		rec.ID, rec.UserID, s.dayArg(rec.Date), rec.LoginTime, rec.LogoutTime,
		string(rec.Mode), string(rec.Status),
		rec.EarlySignInMinutes, rec.LateSignInMinutes, rec.EarlyLogoutMinutes, rec.LateLogoutMinutes,
		rec.TotalHours, rec.LunchStart, rec.LunchEnd, rec.LastActivityTime, rec.WFHActivityPings,
		rec.EditedBy, rec.EditedAt,
	))
	if err != nil {
		return store.AttendanceRecord{}, fmt.Errorf("UpsertByUserAndDate: %w", err)
	}
	return saved, nil
}

func (s *RecordStore) UpdateByID(ctx context.Context, rec store.AttendanceRecord) (store.AttendanceRecord, error) {
	saved, err := s.scan(s.pool.QueryRow(ctx, `
UPDATE attendance_records SET
  login_at = $2, logout_at = $3, mode = $4, status = $5,
  early_sign_in_min = $6, late_sign_in_min = $7, early_logout_min = $8, late_logout_min = $9,
  total_hours = $10, lunch_start = $11, lunch_end = $12, last_activity = $13, wfh_pings = $14,
  edited_by = $15, edited_at = $16, updated_at = now()
WHERE record_id = $1
RETURNING`+recordColumns,
		rec.ID, rec.LoginTime, rec.LogoutTime, string(rec.Mode), string(rec.Status),
		rec.EarlySignInMinutes, rec.LateSignInMinutes, rec.EarlyLogoutMinutes, rec.LateLogoutMinutes,
		rec.TotalHours, rec.LunchStart, rec.LunchEnd, rec.LastActivityTime, rec.WFHActivityPings,
		rec.EditedBy, rec.EditedAt,
	))
	if errors.Is(err, store.ErrNotFound) {
		return store.AttendanceRecord{}, err
	}
	if err != nil {
		return store.AttendanceRecord{}, fmt.Errorf("UpdateByID: %w", err)
	}
	return saved, nil
}

func (s *RecordStore) ListByDate(ctx context.Context, day time.Time) ([]store.AttendanceRecord, error) {
	return s.list(ctx, "ListByDate", `SELECT`+recordColumns+`
FROM attendance_records WHERE day = $1::date ORDER BY user_id`, s.dayArg(day))
}

func (s *RecordStore) ListOpenWFH(ctx context.Context, day time.Time) ([]store.AttendanceRecord, error) {
	return s.list(ctx, "ListOpenWFH", `SELECT`+recordColumns+`
FROM attendance_records
WHERE day = $1::date AND mode = $2 AND login_at IS NOT NULL AND logout_at IS NULL
ORDER BY user_id`, s.dayArg(day), string(types.ModeWFH))
}

func (s *RecordStore) list(ctx context.Context, op, query string, args ...any) ([]store.AttendanceRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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
