// Package policy holds the office timetable and the thresholds the
// classifier and engine work against. A Policy is immutable once built and
// safe to share between goroutines.
package policy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day, minute resolution.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (ClockTime, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("bad clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return ClockTime{}, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("bad minute in %q", s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) minutes() int { return c.Hour*60 + c.Minute }

// On returns the instant of c on the calendar day containing day, in loc.
func (c ClockTime) On(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, loc)
}

type Policy struct {
	Location *time.Location

	OfficeStartTime      ClockTime
	OfficeEndTime        ClockTime
	LunchWindowStartTime ClockTime
	HalfDayTime          ClockTime
	AbsentTime           ClockTime

	LateThresholdMinutes int
	LunchDurationMinutes int

	WFHMinHoursForPresent         float64
	WFHHeartbeatIntervalMinutes   int
	WFHInactivityThresholdMinutes int
}

// Default is the agency's standard timetable.
func Default() Policy {
	return Policy{
		Location:                      time.Local,
		OfficeStartTime:               ClockTime{Hour: 10},
		OfficeEndTime:                 ClockTime{Hour: 19},
		LunchWindowStartTime:          ClockTime{Hour: 13},
		HalfDayTime:                   ClockTime{Hour: 12, Minute: 5},
		AbsentTime:                    ClockTime{Hour: 14},
		LateThresholdMinutes:          5,
		LunchDurationMinutes:          30,
		WFHMinHoursForPresent:         8.5,
		WFHHeartbeatIntervalMinutes:   5,
		WFHInactivityThresholdMinutes: 15,
	}
}

// Validate checks that the thresholds nest: office start + late threshold
// < half-day < absent, and office start < office end.
func (p Policy) Validate() error {
	if p.Location == nil {
		return errors.New("policy: location is required")
	}
	if p.LateThresholdMinutes < 0 || p.LunchDurationMinutes < 0 {
		return errors.New("policy: minute thresholds must be non-negative")
	}
	start := p.OfficeStartTime.minutes()
	if p.OfficeEndTime.minutes() <= start {
		return fmt.Errorf("policy: office end %s must be after start %s", p.OfficeEndTime, p.OfficeStartTime)
	}
	if start+p.LateThresholdMinutes >= p.HalfDayTime.minutes() {
		return fmt.Errorf("policy: half-day %s must be after the late boundary", p.HalfDayTime)
	}
	if p.HalfDayTime.minutes() >= p.AbsentTime.minutes() {
		return fmt.Errorf("policy: absent %s must be after half-day %s", p.AbsentTime, p.HalfDayTime)
	}
	if p.WFHMinHoursForPresent < 0 {
		return errors.New("policy: wfh minimum hours must be non-negative")
	}
	if p.WFHHeartbeatIntervalMinutes <= 0 || p.WFHInactivityThresholdMinutes <= 0 {
		return errors.New("policy: wfh heartbeat interval and inactivity threshold must be positive")
	}
	return nil
}

// Day normalises t to local midnight of its calendar day.
func (p Policy) Day(t time.Time) time.Time {
	d := t.In(p.Location)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, p.Location)
}

// ParseDay parses "YYYY-MM-DD" as a calendar day in the policy timezone.
func (p Policy) ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), p.Location)
}

func (p Policy) OfficeStart(day time.Time) time.Time {
	return p.OfficeStartTime.On(day, p.Location)
}

func (p Policy) OfficeEnd(day time.Time) time.Time {
	return p.OfficeEndTime.On(day, p.Location)
}

func (p Policy) LunchWindowStart(day time.Time) time.Time {
	return p.LunchWindowStartTime.On(day, p.Location)
}

func (p Policy) HalfDayThreshold(day time.Time) time.Time {
	return p.HalfDayTime.On(day, p.Location)
}

func (p Policy) AbsentThreshold(day time.Time) time.Time {
	return p.AbsentTime.On(day, p.Location)
}

func (p Policy) LunchDuration() time.Duration {
	return time.Duration(p.LunchDurationMinutes) * time.Minute
}

func (p Policy) HeartbeatInterval() time.Duration {
	return time.Duration(p.WFHHeartbeatIntervalMinutes) * time.Minute
}

func (p Policy) InactivityThreshold() time.Duration {
	return time.Duration(p.WFHInactivityThresholdMinutes) * time.Minute
}
