package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/notify"
	"github.com/opsdesk/attendance/internal/attendance/policy"
	"github.com/opsdesk/attendance/internal/attendance/store"
)

const defaultBulkConcurrency = 8

// Dependencies wires an Engine. Records, Users and Authorizer are required;
// everything else has a usable zero value.
type Dependencies struct {
	Policy     policy.Policy
	Records    store.RecordStore
	Users      store.UserDirectory
	Activity   store.ActivityLog
	Notifier   notify.Emitter
	Authorizer Authorizer
	Logger     *log.Logger

	// Recipients is copied onto every clock-in/out notification.
	Recipients []string

	// Now overrides the wall clock (tests).
	Now func() time.Time

	// BulkConcurrency bounds the per-user fan-out of AdminBulkMarkDay.
	BulkConcurrency int
}

// Engine is the attendance state machine. Each operation is a
// read-modify-write of one (user, day) record, serialised per key.
type Engine struct {
	policy     policy.Policy
	records    store.RecordStore
	users      store.UserDirectory
	activity   store.ActivityLog
	notifier   notify.Emitter
	authz      Authorizer
	logger     *log.Logger
	recipients []string
	now        func() time.Time
	bulkLimit  int

	locks    keyLocks
	inflight sync.WaitGroup
}

func NewEngine(d Dependencies) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	limit := d.BulkConcurrency
	if limit <= 0 {
		limit = defaultBulkConcurrency
	}
	return &Engine{
		policy:     d.Policy,
		records:    d.Records,
		users:      d.Users,
		activity:   d.Activity,
		notifier:   d.Notifier,
		authz:      d.Authorizer,
		logger:     logger,
		recipients: append([]string(nil), d.Recipients...),
		now:        now,
		bulkLimit:  limit,
		locks:      keyLocks{m: make(map[string]*keyLock)},
	}
}

func (e *Engine) Policy() policy.Policy { return e.policy }

// Wait blocks until every dispatched notification has finished.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

func (e *Engine) clock() time.Time {
	return e.now().In(e.policy.Location)
}

// ── Actor checks ─────────────────────────────────────────────────────────────

type capability int

const (
	capClock capability = iota
	capAdmin
)

func (e *Engine) actor(ctx context.Context, actorID string, need capability) (store.User, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return store.User{}, ErrUnauthorized
	}
	u, err := e.users.GetUser(ctx, actorID)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, ErrUnauthorized
	}
	if err != nil {
		return store.User{}, fmt.Errorf("load actor %s: %w", actorID, err)
	}

	switch need {
	case capAdmin:
		if !e.authz.IsAdmin(u.Role) {
			return store.User{}, ErrForbidden
		}
	default:
		if !e.authz.CanClockInOut(u.Role) {
			return store.User{}, ErrForbidden
		}
	}
	if !u.Active {
		return store.User{}, ErrInactiveUser
	}
	return u, nil
}

// ── Per-key serialisation ────────────────────────────────────────────────────

type keyLock struct {
	mu   sync.Mutex
	refs int
}

type keyLocks struct {
	mu sync.Mutex
	m  map[string]*keyLock
}

func recordKey(userID string, day time.Time) string {
	return userID + "|" + day.Format(time.DateOnly)
}

// lock acquires the mutex for key and returns its release func. Entries are
// dropped once no goroutine holds or waits on them.
func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &keyLock{}
		k.m[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}

// ── Side effects ─────────────────────────────────────────────────────────────

// dispatch hands ev to the notifier on its own goroutine. Failures are only
// logged.
func (e *Engine) dispatch(ctx context.Context, ev notify.Event) {
	if e.notifier == nil {
		return
	}
	if len(ev.Recipients) == 0 {
		ev.Recipients = e.recipients
	}
	ctx = context.WithoutCancel(ctx)

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		if err := e.notifier.Notify(ctx, ev); err != nil {
			e.logger.Printf("notify %s for %s failed: %v", ev.Kind, ev.ActorID, err)
		}
	}()
}

// audit writes the activity line for a successful mutation. A failed audit
// write does not fail the mutation.
func (e *Engine) audit(ctx context.Context, actorID, verb string, rec store.AttendanceRecord) {
	if e.activity == nil {
		return
	}
	err := e.activity.LogActivity(ctx, store.ActivityEntry{
		ActorID:    actorID,
		Verb:       verb,
		EntityType: "attendance",
		EntityID:   rec.ID,
		At:         e.clock().UTC(),
	})
	if err != nil {
		e.logger.Printf("activity log %s %s: %v", verb, rec.ID, err)
	}
}

func (e *Engine) load(ctx context.Context, userID string, day time.Time) (store.AttendanceRecord, bool, error) {
	rec, err := e.records.GetByUserAndDate(ctx, userID, day)
	if errors.Is(err, store.ErrNotFound) {
		return store.AttendanceRecord{}, false, nil
	}
	if err != nil {
		return store.AttendanceRecord{}, false, fmt.Errorf("load record %s: %w", recordKey(userID, day), err)
	}
	return rec, true, nil
}
