package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/store"
	sqlitestore "github.com/opsdesk/attendance/internal/attendance/store/sqlite"
	"github.com/opsdesk/attendance/internal/db"
)

// openTestDB returns a migrated in-memory SQLite database unique to the
// test. It is closed when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.OpenDSN(context.Background(), db.MemoryDSN("test_"+t.Name()))
	if err != nil {
		t.Fatalf("openTestDB: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(w.Close)
	return w
}

// testStores opens a database with the users emp, emp2 (active) and gone
// (inactive) already present.
type testStores struct {
	conn     *sql.DB
	records  *sqlitestore.RecordStore
	users    *sqlitestore.UserDirectory
	activity *sqlitestore.ActivityLog
}

var ist = time.FixedZone("IST", 5*3600+1800)

func newTestStores(t *testing.T) testStores {
	t.Helper()
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	s := testStores{
		conn:     conn,
		records:  sqlitestore.NewRecordStore(conn, w, ist),
		users:    sqlitestore.NewUserDirectory(conn, w),
		activity: sqlitestore.NewActivityLog(conn, w),
	}
	for _, u := range []store.User{
		{ID: "emp", Name: "Asha", Role: "employee", Active: true},
		{ID: "emp2", Name: "Ben", Role: "employee", Active: true},
		{ID: "gone", Name: "Dana", Role: "employee", Active: false},
	} {
		if err := s.users.PutUser(context.Background(), u); err != nil {
			t.Fatalf("PutUser %s: %v", u.ID, err)
		}
	}
	return s
}

func istAt(h, m int) time.Time {
	return time.Date(2026, 3, 3, h, m, 0, 0, ist)
}

var istDay = time.Date(2026, 3, 3, 0, 0, 0, 0, ist)

func tp(t time.Time) *time.Time { return &t }
func ip(i int) *int             { return &i }
