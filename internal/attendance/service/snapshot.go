package service

import (
	"time"

	"github.com/opsdesk/attendance/internal/attendance/store"
	"github.com/opsdesk/attendance/internal/attendance/types"
)

// Snapshot renders rec for the wire with instants in loc.
func Snapshot(rec store.AttendanceRecord, loc *time.Location) types.RecordSnapshot {
	fmtTime := func(t *time.Time) *string {
		if t == nil {
			return nil
		}
		s := t.In(loc).Format(time.RFC3339)
		return &s
	}
	return types.RecordSnapshot{
		ID:                 rec.ID,
		UserID:             rec.UserID,
		Date:               rec.Date.In(loc).Format(time.DateOnly),
		LoginTime:          fmtTime(rec.LoginTime),
		LogoutTime:         fmtTime(rec.LogoutTime),
		Mode:               rec.Mode,
		Status:             rec.Status,
		EarlySignInMinutes: rec.EarlySignInMinutes,
		LateSignInMinutes:  rec.LateSignInMinutes,
		EarlyLogoutMinutes: rec.EarlyLogoutMinutes,
		LateLogoutMinutes:  rec.LateLogoutMinutes,
		TotalHours:         rec.TotalHours,
		LunchStart:         fmtTime(rec.LunchStart),
		LunchEnd:           fmtTime(rec.LunchEnd),
		LastActivityTime:   fmtTime(rec.LastActivityTime),
		WFHActivityPings:   rec.WFHActivityPings,
		EditedBy:           rec.EditedBy,
		EditedAt:           fmtTime(rec.EditedAt),
	}
}

func LivenessView(lv *Liveness, loc *time.Location) *types.LivenessSnapshot {
	if lv == nil {
		return nil
	}
	out := &types.LivenessSnapshot{Inactive: lv.Inactive}
	if lv.LastActivity != nil {
		s := lv.LastActivity.In(loc).Format(time.RFC3339)
		out.LastActivity = &s
	}
	if lv.NextHeartbeatDue != nil {
		s := lv.NextHeartbeatDue.In(loc).Format(time.RFC3339)
		out.NextHeartbeatDue = &s
	}
	return out
}

// BulkView renders a BulkResult for the wire.
func BulkView(res BulkResult, loc *time.Location) types.BulkMarkResponse {
	out := types.BulkMarkResponse{
		Date:    res.Date.In(loc).Format(time.DateOnly),
		Mode:    res.Mode,
		Success: res.Success,
		Failed:  len(res.Errors),
		Errors:  make([]types.BulkMarkError, 0, len(res.Errors)),
	}
	for _, be := range res.Errors {
		out.Errors = append(out.Errors, types.BulkMarkError{UserID: be.UserID, Error: be.Err.Error()})
	}
	return out
}
