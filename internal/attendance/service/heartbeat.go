package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/store"
	"github.com/opsdesk/attendance/internal/attendance/types"
)

// WFHHeartbeat records a liveness ping on today's open WFH session. It never
// changes status.
func (e *Engine) WFHHeartbeat(ctx context.Context, actorID string) (store.AttendanceRecord, error) {
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
	if rec.Mode != types.ModeWFH || rec.LogoutTime != nil {
		return store.AttendanceRecord{}, ErrNotWFHSession
	}

	rec.LastActivityTime = &now
	rec.WFHActivityPings++

	saved, err := e.records.UpdateByID(ctx, rec)
	if err != nil {
		return store.AttendanceRecord{}, fmt.Errorf("WFHHeartbeat update: %w", err)
	}
	e.audit(ctx, user.ID, "wfh_heartbeat", saved)
	return saved, nil
}

// Liveness describes how recently a WFH session checked in.
type Liveness struct {
	LastActivity     *time.Time
	NextHeartbeatDue *time.Time
	Inactive         bool
}

// Liveness is nil for anything but an open WFH session.
func (e *Engine) Liveness(rec store.AttendanceRecord, now time.Time) *Liveness {
	if rec.Mode != types.ModeWFH || !rec.IsOpen() {
		return nil
	}
	lv := &Liveness{LastActivity: rec.LastActivityTime}
	last := rec.LoginTime
	if rec.LastActivityTime != nil {
		last = rec.LastActivityTime
	}
	due := last.Add(e.policy.HeartbeatInterval())
	lv.NextHeartbeatDue = &due
	lv.Inactive = now.Sub(*last) > e.policy.InactivityThreshold()
	return lv
}

// Today returns actorID's record for the current day.
func (e *Engine) Today(ctx context.Context, actorID string) (store.AttendanceRecord, error) {
	user, err := e.actor(ctx, actorID, capClock)
	if err != nil {
		return store.AttendanceRecord{}, err
	}
	rec, err := e.records.GetByUserAndDate(ctx, user.ID, e.policy.Day(e.clock()))
	if errors.Is(err, store.ErrNotFound) {
		return store.AttendanceRecord{}, ErrNoRecordToday
	}
	if err != nil {
		return store.AttendanceRecord{}, fmt.Errorf("Today: %w", err)
	}
	return rec, nil
}

// Now is the engine's clock in the policy timezone.
func (e *Engine) Now() time.Time { return e.clock() }
