package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error an Engine operation returns matches exactly one of
// these with errors.Is, apart from wrapped infrastructure failures.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInactiveUser = errors.New("user is inactive")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation error")
)

var (
	ErrDuplicateClockIn    = fmt.Errorf("%w: already clocked in with this mode", ErrInvalidState)
	ErrNotClockedIn        = fmt.Errorf("%w: clock in first", ErrInvalidState)
	ErrAlreadyClockedOut   = fmt.Errorf("%w: already clocked out", ErrInvalidState)
	ErrLunchAlreadyStarted = fmt.Errorf("%w: lunch already started", ErrInvalidState)
	ErrLunchNotStarted     = fmt.Errorf("%w: lunch not started", ErrInvalidState)
	ErrLunchAlreadyEnded   = fmt.Errorf("%w: lunch already ended", ErrInvalidState)
	ErrNotWFHSession       = fmt.Errorf("%w: no open work-from-home session", ErrInvalidState)

	ErrInvalidMode = fmt.Errorf("%w: unsupported mode", ErrValidation)
	ErrInvalidDate = fmt.Errorf("%w: invalid date", ErrValidation)

	ErrRecordNotFound = fmt.Errorf("%w: attendance record", ErrNotFound)
	ErrNoRecordToday  = fmt.Errorf("%w: no attendance record today", ErrNotFound)
)
