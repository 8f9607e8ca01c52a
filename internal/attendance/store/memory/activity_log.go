package memory

import (
	"context"
	"sync"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/store"
)

// ActivityLog is an in-memory append-only audit log.
// It is intended for use in tests and dev environments.
type ActivityLog struct {
	mu      sync.Mutex
	entries []store.ActivityEntry
}

func NewActivityLog() *ActivityLog {
	return &ActivityLog{}
}

func (l *ActivityLog) LogActivity(_ context.Context, e store.ActivityEntry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

// Entries returns a copy of all recorded entries.  Test-only helper.
func (l *ActivityLog) Entries() []store.ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]store.ActivityEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *ActivityLog) ForEntity(_ context.Context, entityType, entityID string) ([]store.ActivityEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []store.ActivityEntry
	for _, e := range l.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}
