// Package notify carries attendance notification intents to whatever
// transport is wired in. Delivery is best-effort.
package notify

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/types"
)

const (
	KindClockIn     = "clock_in"
	KindClockOut    = "clock_out"
	KindWFHInactive = "wfh_inactive"
)

type Event struct {
	ActorID    string     `json:"actor_id"`
	ActorName  string     `json:"actor_name"`
	Kind       string     `json:"kind"`
	Mode       types.Mode `json:"mode"`
	At         time.Time  `json:"at"`
	Recipients []string   `json:"recipients,omitempty"`
}

type Emitter interface {
	Notify(ctx context.Context, ev Event) error
}

// LogEmitter writes each event to a logger.
type LogEmitter struct {
	Logger *log.Logger
}

func (e LogEmitter) Notify(_ context.Context, ev Event) error {
	e.Logger.Printf("notify %s: %s (%s) mode=%s at=%s to=[%s]",
		ev.Kind, ev.ActorName, ev.ActorID, ev.Mode,
		ev.At.Format(time.RFC3339), strings.Join(ev.Recipients, ","))
	return nil
}

// Multi fans an event out to every emitter and joins their errors.
type Multi []Emitter

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
