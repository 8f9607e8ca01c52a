package classify

import (
	"github.com/opsdesk/attendance/internal/attendance/policy"
	"github.com/opsdesk/attendance/internal/attendance/store"
	"github.com/opsdesk/attendance/internal/attendance/types"
)

// FieldProfile says which mode-specific fields a record may carry.
type FieldProfile struct {
	SignInOffsets bool
	LogoutOffsets bool
	WFHTracking   bool
}

var profiles = map[types.Mode]FieldProfile{
	types.ModeOffice: {SignInOffsets: true, LogoutOffsets: true},
	types.ModeWFH:    {WFHTracking: true},
	types.ModeLeave:  {},
}

func ProfileFor(m types.Mode) FieldProfile {
	return profiles[m]
}

// ApplyProfile clears every field rec's mode does not carry.
func ApplyProfile(rec *store.AttendanceRecord) {
	prof := ProfileFor(rec.Mode)
	if !prof.SignInOffsets {
		rec.EarlySignInMinutes = nil
		rec.LateSignInMinutes = nil
	}
	if !prof.LogoutOffsets {
		rec.EarlyLogoutMinutes = nil
		rec.LateLogoutMinutes = nil
	}
	if !prof.WFHTracking {
		rec.LastActivityTime = nil
		rec.WFHActivityPings = 0
	}
	if rec.Mode == types.ModeLeave {
		rec.Status = types.StatusPresent
	}
}

// ApplySignIn sets status and sign-in offsets from rec.LoginTime under
// rec.Mode. WFH gets a Present placeholder until clock-out decides.
func ApplySignIn(p policy.Policy, rec *store.AttendanceRecord) {
	switch {
	case rec.Mode == types.ModeOffice && rec.LoginTime != nil:
		c := Office(p, *rec.LoginTime, rec.Date)
		rec.Status = c.Status
		rec.EarlySignInMinutes = IntPtr(c.EarlyMinutes)
		rec.LateSignInMinutes = IntPtr(c.LateMinutes)
	default:
		rec.Status = types.StatusPresent
	}
	ApplyProfile(rec)
}

// ApplyLogout fills the logout offsets for OFFICE records.
func ApplyLogout(p policy.Policy, rec *store.AttendanceRecord) {
	if rec.Mode == types.ModeOffice && rec.LogoutTime != nil {
		early, late := OfficeLogout(p, *rec.LogoutTime, rec.Date)
		rec.EarlyLogoutMinutes = IntPtr(early)
		rec.LateLogoutMinutes = IntPtr(late)
	}
	ApplyProfile(rec)
}

func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
