package service_test

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/notify"
	"github.com/opsdesk/attendance/internal/attendance/policy"
	"github.com/opsdesk/attendance/internal/attendance/service"
	"github.com/opsdesk/attendance/internal/attendance/store"
	"github.com/opsdesk/attendance/internal/attendance/store/memory"
)

func silentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// fakeClock is a settable wall clock shared between a test and its engine.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// recordingEmitter captures every event; fail makes Notify return an error
// after recording.
type recordingEmitter struct {
	mu     sync.Mutex
	events []notify.Event
	fail   error
}

func (r *recordingEmitter) Notify(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.fail
}

func (r *recordingEmitter) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Event, len(r.events))
	copy(out, r.events)
	return out
}

// flakyRecords fails upserts for one user.
type flakyRecords struct {
	*memory.RecordStore
	failUser string
}

func (f flakyRecords) UpsertByUserAndDate(ctx context.Context, rec store.AttendanceRecord) (store.AttendanceRecord, error) {
	if rec.UserID == f.failUser {
		return store.AttendanceRecord{}, errors.New("disk full")
	}
	return f.RecordStore.UpsertByUserAndDate(ctx, rec)
}

// failingUpdates lets upserts through and fails every UpdateByID.
type failingUpdates struct {
	*memory.RecordStore
}

func (failingUpdates) UpdateByID(context.Context, store.AttendanceRecord) (store.AttendanceRecord, error) {
	return store.AttendanceRecord{}, errors.New("boom")
}

type fixture struct {
	engine   *service.Engine
	records  *memory.RecordStore
	users    *memory.UserDirectory
	activity *memory.ActivityLog
	emitter  *recordingEmitter
	clock    *fakeClock
}

// Test day: Tuesday 3 March 2026, UTC, default timetable
// (office 10:00-19:00, lunch window 13:00, half-day 12:05, absent 14:00).
func at(h, m int) time.Time {
	return time.Date(2026, 3, 3, h, m, 0, 0, time.UTC)
}

var testDay = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

func testPolicy() policy.Policy {
	p := policy.Default()
	p.Location = time.UTC
	return p
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRecords(t, nil)
}

func newFixtureWithRecords(t *testing.T, records store.RecordStore) *fixture {
	t.Helper()

	mem := memory.NewRecordStore()
	if records == nil {
		records = mem
	}
	f := &fixture{
		records: mem,
		users: memory.NewUserDirectory(
			store.User{ID: "emp", Name: "Asha", Role: "employee", Active: true},
			store.User{ID: "emp2", Name: "Ben", Role: "employee", Active: true},
			store.User{ID: "boss", Name: "Chidi", Role: "admin", Active: true},
			store.User{ID: "gone", Name: "Dana", Role: "employee", Active: false},
			store.User{ID: "guest", Name: "Eli", Role: "visitor", Active: true},
		),
		activity: memory.NewActivityLog(),
		emitter:  &recordingEmitter{},
		clock:    &fakeClock{t: at(10, 0)},
	}
	f.engine = service.NewEngine(service.Dependencies{
		Policy:     testPolicy(),
		Records:    records,
		Users:      f.users,
		Activity:   f.activity,
		Notifier:   f.emitter,
		Authorizer: service.NewRolePolicy([]string{"employee"}, []string{"admin"}),
		Logger:     silentLogger(),
		Recipients: []string{"ops@agency.test"},
		Now:        f.clock.Now,
	})
	t.Cleanup(f.engine.Wait)
	return f
}

func (f *fixture) clockIn(t *testing.T, user string, mode string, h, m int) store.AttendanceRecord {
	t.Helper()
	f.clock.Set(at(h, m))
	rec, err := f.engine.ClockIn(context.Background(), user, modeOf(t, mode))
	if err != nil {
		t.Fatalf("ClockIn(%s, %s) at %02d:%02d: %v", user, mode, h, m, err)
	}
	return rec
}

func (f *fixture) clockOut(t *testing.T, user string, h, m int) store.AttendanceRecord {
	t.Helper()
	f.clock.Set(at(h, m))
	rec, err := f.engine.ClockOut(context.Background(), user)
	if err != nil {
		t.Fatalf("ClockOut(%s) at %02d:%02d: %v", user, h, m, err)
	}
	return rec
}

func intVal(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func floatNear(p *float64, want float64) bool {
	if p == nil {
		return false
	}
	d := *p - want
	return d < 1e-9 && d > -1e-9
}
