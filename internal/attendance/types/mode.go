package types

import (
	"fmt"
	"strings"
)

// Mode is the working arrangement a record was clocked under.
type Mode string

const (
	ModeOffice Mode = "OFFICE"
	ModeWFH    Mode = "WFH"
	ModeLeave  Mode = "LEAVE"
)

// ParseMode accepts the wire spelling of a mode, case-insensitively.
// An empty string means OFFICE.
func ParseMode(s string) (Mode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch Mode(s) {
	case "":
		return ModeOffice, nil
	case ModeOffice, ModeWFH, ModeLeave:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unsupported mode %q", s)
}

func (m Mode) Valid() bool {
	return m == ModeOffice || m == ModeWFH || m == ModeLeave
}

// Status is always derived; callers never set it directly.
type Status string

const (
	StatusPresent Status = "Present"
	StatusLate    Status = "Late"
	StatusHalfDay Status = "HalfDay"
	StatusAbsent  Status = "Absent"
)
