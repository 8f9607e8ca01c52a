package store

import (
	"context"
	"errors"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/types"
)

// ErrNotFound is returned by every store when the addressed row is absent.
var ErrNotFound = errors.New("store: not found")

// AttendanceRecord is the one row per (UserID, Date). Date is local midnight
// of the calendar day in the policy timezone.
type AttendanceRecord struct {
	ID     string
	UserID string
	Date   time.Time

	LoginTime  *time.Time
	LogoutTime *time.Time

	Mode   types.Mode
	Status types.Status

	EarlySignInMinutes *int
	LateSignInMinutes  *int
	EarlyLogoutMinutes *int
	LateLogoutMinutes  *int
	TotalHours         *float64

	LunchStart *time.Time
	LunchEnd   *time.Time

	LastActivityTime *time.Time
	WFHActivityPings int

	EditedBy *string
	EditedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOpen reports whether the user has an active clocked-in session.
func (r AttendanceRecord) IsOpen() bool {
	return r.LoginTime != nil && r.LogoutTime == nil
}

// Clone returns a deep copy so callers can mutate without aliasing the
// stored value.
func (r AttendanceRecord) Clone() AttendanceRecord {
	out := r
	out.LoginTime = cloneTime(r.LoginTime)
	out.LogoutTime = cloneTime(r.LogoutTime)
	out.EarlySignInMinutes = cloneInt(r.EarlySignInMinutes)
	out.LateSignInMinutes = cloneInt(r.LateSignInMinutes)
	out.EarlyLogoutMinutes = cloneInt(r.EarlyLogoutMinutes)
	out.LateLogoutMinutes = cloneInt(r.LateLogoutMinutes)
	if r.TotalHours != nil {
		v := *r.TotalHours
		out.TotalHours = &v
	}
	out.LunchStart = cloneTime(r.LunchStart)
	out.LunchEnd = cloneTime(r.LunchEnd)
	out.LastActivityTime = cloneTime(r.LastActivityTime)
	if r.EditedBy != nil {
		v := *r.EditedBy
		out.EditedBy = &v
	}
	out.EditedAt = cloneTime(r.EditedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// RecordStore persists daily attendance records. (UserID, Date) is unique;
// UpsertByUserAndDate inserts or replaces the row for that key atomically.
type RecordStore interface {
	GetByUserAndDate(ctx context.Context, userID string, day time.Time) (AttendanceRecord, error)
	GetByID(ctx context.Context, id string) (AttendanceRecord, error)
	UpsertByUserAndDate(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, error)
	UpdateByID(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, error)
	ListByDate(ctx context.Context, day time.Time) ([]AttendanceRecord, error)
	ListOpenWFH(ctx context.Context, day time.Time) ([]AttendanceRecord, error)
}
