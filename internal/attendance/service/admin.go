package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opsdesk/attendance/internal/attendance/classify"
	"github.com/opsdesk/attendance/internal/attendance/store"
	"github.com/opsdesk/attendance/internal/attendance/types"
)

// AdminConvertMode rewrites a record's mode after the fact and re-derives
// every mode-dependent field. Converting to the record's current mode is a
// no-op and writes nothing.
func (e *Engine) AdminConvertMode(ctx context.Context, recordID string, newMode types.Mode, actorID string) (store.AttendanceRecord, error) {
	if !newMode.Valid() {
		return store.AttendanceRecord{}, ErrInvalidMode
	}
	admin, err := e.actor(ctx, actorID, capAdmin)
	if err != nil {
		return store.AttendanceRecord{}, err
	}

	rec, err := e.recordByID(ctx, recordID)
	if err != nil {
		return store.AttendanceRecord{}, err
	}
	unlock := e.locks.lock(recordKey(rec.UserID, rec.Date))
	defer unlock()

	// Re-read under the lock.
	if rec, err = e.recordByID(ctx, recordID); err != nil {
		return store.AttendanceRecord{}, err
	}
	if rec.Mode == newMode {
		return rec, nil
	}

	now := e.clock()
	switch newMode {
	case types.ModeWFH:
		e.convertToWFH(&rec, now)
	case types.ModeOffice:
		e.convertToOffice(&rec)
	case types.ModeLeave:
		convertToLeave(&rec)
	}
	stampEdit(&rec, admin.ID, now)

	saved, err := e.records.UpdateByID(ctx, rec)
	if err != nil {
		return store.AttendanceRecord{}, fmt.Errorf("AdminConvertMode update: %w", err)
	}
	e.audit(ctx, admin.ID, "convert_mode", saved)
	return saved, nil
}

func (e *Engine) recordByID(ctx context.Context, id string) (store.AttendanceRecord, error) {
	rec, err := e.records.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.AttendanceRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return store.AttendanceRecord{}, fmt.Errorf("load record %s: %w", id, err)
	}
	return rec, nil
}

// convertToWFH drops OFFICE offsets. A closed OFFICE record gets its lunch
// deduction added back, capped at the elapsed time, before the WFH threshold
// is applied; any other closed record has its hours recomputed from login
// and logout.
func (e *Engine) convertToWFH(rec *store.AttendanceRecord, now time.Time) {
	prev := rec.Mode
	rec.Mode = types.ModeWFH
	rec.LastActivityTime = nil
	rec.WFHActivityPings = 0

	switch {
	case rec.LoginTime == nil:
		rec.Status = types.StatusPresent

	case rec.LogoutTime == nil:
		rec.Status = types.StatusPresent
		seen := now
		rec.LastActivityTime = &seen
		rec.WFHActivityPings = 1

	default:
		elapsed := classify.ElapsedHours(*rec.LoginTime, *rec.LogoutTime)
		hours := elapsed
		if prev == types.ModeOffice && rec.TotalHours != nil &&
			classify.LunchDeducted(e.policy, *rec.LogoutTime, rec.Date) {
			// A deduction clamped at zero cannot give back more than was worked.
			hours = math.Min(*rec.TotalHours+e.policy.LunchDuration().Hours(), elapsed)
		}
		rec.TotalHours = classify.FloatPtr(hours)
		rec.Status = classify.WFH(e.policy, hours)
	}
	classify.ApplyProfile(rec)
}

// convertToOffice re-runs the sign-in ladder on the original login and, for
// closed records, recomputes hours with the lunch deduction and the logout
// offsets.
func (e *Engine) convertToOffice(rec *store.AttendanceRecord) {
	rec.Mode = types.ModeOffice
	classify.ApplySignIn(e.policy, rec)
	if rec.LoginTime == nil {
		rec.EarlySignInMinutes = nil
		rec.LateSignInMinutes = nil
		return
	}
	if rec.LogoutTime != nil {
		hours := classify.TotalHours(e.policy, types.ModeOffice, *rec.LoginTime, *rec.LogoutTime, rec.Date)
		rec.TotalHours = classify.FloatPtr(hours)
		classify.ApplyLogout(e.policy, rec)
	}
}

func convertToLeave(rec *store.AttendanceRecord) {
	rec.Mode = types.ModeLeave
	rec.Status = types.StatusPresent
	classify.ApplyProfile(rec)
}

func stampEdit(rec *store.AttendanceRecord, actorID string, at time.Time) {
	by := actorID
	rec.EditedBy = &by
	rec.EditedAt = &at
}

// ── Bulk mark ────────────────────────────────────────────────────────────────

type BulkError struct {
	UserID string
	Err    error
}

type BulkResult struct {
	Date    time.Time
	Mode    types.Mode
	Success int
	Errors  []BulkError
}

// AdminBulkMarkDay writes a full office-hours record for every active user
// on date. A failure for one user is collected and the batch carries on.
func (e *Engine) AdminBulkMarkDay(ctx context.Context, date time.Time, mode types.Mode, actorID string) (BulkResult, error) {
	if mode == "" {
		mode = types.ModeOffice
	}
	if !mode.Valid() {
		return BulkResult{}, ErrInvalidMode
	}
	if date.IsZero() {
		return BulkResult{}, ErrInvalidDate
	}
	admin, err := e.actor(ctx, actorID, capAdmin)
	if err != nil {
		return BulkResult{}, err
	}

	users, err := e.users.ListActiveUsers(ctx)
	if err != nil {
		return BulkResult{}, fmt.Errorf("AdminBulkMarkDay list users: %w", err)
	}

	day := e.policy.Day(date)
	now := e.clock()
	res := BulkResult{Date: day, Mode: mode}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.bulkLimit)
	for _, u := range users {
		g.Go(func() error {
			err := e.markDay(gctx, u.ID, day, mode, admin.ID, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors = append(res.Errors, BulkError{UserID: u.ID, Err: err})
			} else {
				res.Success++
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(res.Errors, func(i, j int) bool { return res.Errors[i].UserID < res.Errors[j].UserID })
	e.logger.Printf("bulk mark %s %s by %s: %d ok, %d failed",
		day.Format(time.DateOnly), mode, admin.ID, res.Success, len(res.Errors))
	return res, nil
}

func (e *Engine) markDay(ctx context.Context, userID string, day time.Time, mode types.Mode, adminID string, now time.Time) error {
	unlock := e.locks.lock(recordKey(userID, day))
	defer unlock()

	login := e.policy.OfficeStart(day)
	logout := e.policy.OfficeEnd(day)
	rec := store.AttendanceRecord{
		UserID:             userID,
		Date:               day,
		LoginTime:          &login,
		LogoutTime:         &logout,
		Mode:               mode,
		Status:             types.StatusPresent,
		EarlySignInMinutes: classify.IntPtr(0),
		LateSignInMinutes:  classify.IntPtr(0),
		EarlyLogoutMinutes: classify.IntPtr(0),
		LateLogoutMinutes:  classify.IntPtr(0),
	}
	if mode == types.ModeOffice {
		rec.TotalHours = classify.FloatPtr(classify.TotalHours(e.policy, mode, login, logout, day))
	}
	classify.ApplyProfile(&rec)
	stampEdit(&rec, adminID, now)

	saved, err := e.records.UpsertByUserAndDate(ctx, rec)
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	e.audit(ctx, adminID, "bulk_mark", saved)
	return nil
}

// ListDay returns every record on date. Admin only.
func (e *Engine) ListDay(ctx context.Context, actorID string, date time.Time) ([]store.AttendanceRecord, error) {
	if _, err := e.actor(ctx, actorID, capAdmin); err != nil {
		return nil, err
	}
	recs, err := e.records.ListByDate(ctx, e.policy.Day(date))
	if err != nil {
		return nil, fmt.Errorf("ListDay: %w", err)
	}
	return recs, nil
}
