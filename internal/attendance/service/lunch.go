package service

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/store"
)

// StartLunch stamps lunchStart on today's open session. Lunch stamps are
// informational; total hours use the policy's fixed lunch deduction.
func (e *Engine) StartLunch(ctx context.Context, actorID string) (store.AttendanceRecord, error) {
	return e.mutateOpen(ctx, actorID, "start_lunch", func(rec *store.AttendanceRecord, now time.Time) error {
		if rec.LunchStart != nil {
			return ErrLunchAlreadyStarted
		}
		rec.LunchStart = &now
		return nil
	})
}

func (e *Engine) EndLunch(ctx context.Context, actorID string) (store.AttendanceRecord, error) {
	return e.mutateOpen(ctx, actorID, "end_lunch", func(rec *store.AttendanceRecord, now time.Time) error {
		if rec.LunchStart == nil {
			return ErrLunchNotStarted
		}
		if rec.LunchEnd != nil {
			return ErrLunchAlreadyEnded
		}
		rec.LunchEnd = &now
		return nil
	})
}

// mutateOpen runs fn against today's open session for actorID under the
// record's key lock and persists the result.
func (e *Engine) mutateOpen(
	ctx context.Context,
	actorID string,
	verb string,
	fn func(rec *store.AttendanceRecord, now time.Time) error,
) (store.AttendanceRecord, error) {
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
	if !found || !rec.IsOpen() {
		return store.AttendanceRecord{}, ErrNotClockedIn
	}

	if err := fn(&rec, now); err != nil {
		return store.AttendanceRecord{}, err
	}

	saved, err := e.records.UpdateByID(ctx, rec)
	if err != nil {
		return store.AttendanceRecord{}, fmt.Errorf("%s update: %w", verb, err)
	}
	e.audit(ctx, user.ID, verb, saved)
	return saved, nil
}
