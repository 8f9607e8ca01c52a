package store

import (
	"context"
	"time"
)

// ActivityEntry is one audit line written after a successful mutation.
type ActivityEntry struct {
	ActorID    string
	Verb       string
	EntityType string
	EntityID   string
	At         time.Time
}

// ActivityLog is an append-only audit sink.
type ActivityLog interface {
	LogActivity(ctx context.Context, e ActivityEntry) error
}
