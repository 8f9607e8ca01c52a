// Package classify derives attendance status and minute offsets from
// instants and a policy. Everything here is pure.
package classify

import (
	"math"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/policy"
	"github.com/opsdesk/attendance/internal/attendance/types"
)

// SignIn is the outcome of classifying an OFFICE login.
type SignIn struct {
	Status       types.Status
	EarlyMinutes int
	LateMinutes  int
}

// RoundMinutes rounds d to the nearest whole minute, halves away from zero.
func RoundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

// Office classifies a login instant against the office timetable of day.
// The ladder runs absent, half-day, late, present; an instant exactly on a
// threshold falls into the stricter category.
func Office(p policy.Policy, login, day time.Time) SignIn {
	diff := RoundMinutes(login.Sub(p.OfficeStart(day)))

	switch {
	case !login.Before(p.AbsentThreshold(day)):
		return SignIn{Status: types.StatusAbsent, LateMinutes: diff}
	case !login.Before(p.HalfDayThreshold(day)):
		return SignIn{Status: types.StatusHalfDay, LateMinutes: diff}
	case diff > p.LateThresholdMinutes:
		return SignIn{Status: types.StatusLate, LateMinutes: diff}
	case diff < 0:
		return SignIn{Status: types.StatusPresent, EarlyMinutes: -diff}
	default:
		return SignIn{Status: types.StatusPresent}
	}
}

// OfficeLogout returns early/late logout minutes against office end.
func OfficeLogout(p policy.Policy, logout, day time.Time) (early, late int) {
	diff := RoundMinutes(logout.Sub(p.OfficeEnd(day)))
	switch {
	case diff < 0:
		return -diff, 0
	case diff > 0:
		return 0, diff
	}
	return 0, 0
}

// LunchDeducted reports whether an OFFICE clock-out at logout loses the
// fixed lunch duration. Actual lunch start/end stamps play no part.
func LunchDeducted(p policy.Policy, logout, day time.Time) bool {
	return !logout.Before(p.LunchWindowStart(day))
}

// ElapsedHours is logout-login in hours, clamped at zero.
func ElapsedHours(login, logout time.Time) float64 {
	return math.Max(0, logout.Sub(login).Hours())
}

// TotalHours is elapsed time, less the lunch duration for OFFICE clock-outs
// at or after the lunch window, clamped at zero.
func TotalHours(p policy.Policy, mode types.Mode, login, logout, day time.Time) float64 {
	hours := logout.Sub(login).Hours()
	if mode == types.ModeOffice && LunchDeducted(p, logout, day) {
		hours -= p.LunchDuration().Hours()
	}
	return math.Max(0, hours)
}

// WFH maps worked hours to Present or Absent. Reaching the threshold
// exactly counts as Present.
func WFH(p policy.Policy, totalHours float64) types.Status {
	if totalHours >= p.WFHMinHoursForPresent {
		return types.StatusPresent
	}
	return types.StatusAbsent
}
