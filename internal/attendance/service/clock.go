package service

import (
	"context"
	"fmt"

	"github.com/opsdesk/attendance/internal/attendance/classify"
	"github.com/opsdesk/attendance/internal/attendance/notify"
	"github.com/opsdesk/attendance/internal/attendance/store"
	"github.com/opsdesk/attendance/internal/attendance/types"
)

// ClockIn opens today's session for actorID under mode (empty means OFFICE).
//
// Clocking in again with the same mode while open fails. Clocking in with a
// different mode while open switches mode and re-derives status from the
// original login instant.
func (e *Engine) ClockIn(ctx context.Context, actorID string, mode types.Mode) (store.AttendanceRecord, error) {
	if mode == "" {
		mode = types.ModeOffice
	}
	if !mode.Valid() {
		return store.AttendanceRecord{}, ErrInvalidMode
	}
	user, err := e.actor(ctx, actorID, capClock)
	if err != nil {
		return store.AttendanceRecord{}, err
	}

	now := e.clock()
	day := e.policy.Day(now)
	unlock := e.locks.lock(recordKey(user.ID, day))
	defer unlock()

	rec, found, err := e.load(ctx, user.ID, day)
	if err != nil {
		return store.AttendanceRecord{}, err
	}

	verb := "clock_in"
	switch {
	case found && rec.IsOpen() && rec.Mode == mode:
		return store.AttendanceRecord{}, ErrDuplicateClockIn

	case found && rec.IsOpen():
		verb = "switch_mode"
		rec.Mode = mode
		classify.ApplySignIn(e.policy, &rec)

	default:
		if !found {
			rec = store.AttendanceRecord{UserID: user.ID, Date: day}
		}
		login := now
		rec.LoginTime = &login
		rec.LogoutTime = nil
		rec.TotalHours = nil
		rec.EarlyLogoutMinutes = nil
		rec.LateLogoutMinutes = nil
		rec.Mode = mode
		classify.ApplySignIn(e.policy, &rec)
	}

	if rec.Mode == types.ModeWFH {
		seen := now
		rec.LastActivityTime = &seen
		rec.WFHActivityPings = 1
	}

	saved, err := e.records.UpsertByUserAndDate(ctx, rec)
	if err != nil {
		return store.AttendanceRecord{}, fmt.Errorf("ClockIn upsert: %w", err)
	}

	e.audit(ctx, user.ID, verb, saved)
	e.dispatch(ctx, notify.Event{
		ActorID:   user.ID,
		ActorName: user.Name,
		Kind:      notify.KindClockIn,
		Mode:      saved.Mode,
		At:        now,
	})
	return saved, nil
}

// ClockOut closes today's session. A stale logout earlier than the login
// (left behind by a superseded cycle) is cleared and the clock-out proceeds
// against the repaired record; both land in a single write.
func (e *Engine) ClockOut(ctx context.Context, actorID string) (store.AttendanceRecord, error) {
	user, err := e.actor(ctx, actorID, capClock)
	if err != nil {
		return store.AttendanceRecord{}, err
	}

	now := e.clock()
	day := e.policy.Day(now)
	unlock := e.locks.lock(recordKey(user.ID, day))
	defer unlock()

	rec, found, err := e.load(ctx, user.ID, day)
	if err != nil {
		return store.AttendanceRecord{}, err
	}
	if !found || rec.LoginTime == nil {
		return store.AttendanceRecord{}, ErrNotClockedIn
	}

	if rec.LogoutTime != nil {
		if !rec.LoginTime.After(*rec.LogoutTime) {
			return store.AttendanceRecord{}, ErrAlreadyClockedOut
		}
		e.repairStaleLogout(&rec)
	}

	logout := now
	rec.LogoutTime = &logout
	hours := classify.TotalHours(e.policy, rec.Mode, *rec.LoginTime, logout, rec.Date)
	rec.TotalHours = &hours
	classify.ApplyLogout(e.policy, &rec)

	switch rec.Mode {
	case types.ModeWFH:
		rec.Status = classify.WFH(e.policy, hours)
	case types.ModeLeave:
		rec.Status = types.StatusPresent
	}

	saved, err := e.records.UpdateByID(ctx, rec)
	if err != nil {
		return store.AttendanceRecord{}, fmt.Errorf("ClockOut update: %w", err)
	}

	e.audit(ctx, user.ID, "clock_out", saved)
	e.dispatch(ctx, notify.Event{
		ActorID:   user.ID,
		ActorName: user.Name,
		Kind:      notify.KindClockOut,
		Mode:      saved.Mode,
		At:        now,
	})
	return saved, nil
}

// repairStaleLogout clears a logout left behind by a superseded cycle. The
// repair is persisted together with the clock-out that follows it.
func (e *Engine) repairStaleLogout(rec *store.AttendanceRecord) {
	e.logger.Printf("repairing record %s: logout %s precedes login %s",
		rec.ID, rec.LogoutTime.Format("15:04:05"), rec.LoginTime.Format("15:04:05"))

	rec.LogoutTime = nil
	rec.TotalHours = nil
	rec.EarlyLogoutMinutes = nil
	rec.LateLogoutMinutes = nil
}
