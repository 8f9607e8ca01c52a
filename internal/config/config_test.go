package config_test

import (
	"testing"
	"time"

	"github.com/opsdesk/attendance/internal/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"ATTENDANCE_ENV", "ATTENDANCE_STORE", "ATTENDANCE_HTTP_ADDR", "ATTENDANCE_GRPC_ADDR",
		"ATTENDANCE_OFFICE_START", "ATTENDANCE_LATE_THRESHOLD_MINUTES", "ATTENDANCE_TZ",
		"ATTENDANCE_CLOCK_ROLES", "ATTENDANCE_ADMIN_ROLES", "ATTENDANCE_SEED_USERS",
	} {
		t.Setenv(k, "")
	}

	c := config.FromEnv()
	if c.HTTPAddr != ":8080" || c.GRPCAddr != "" || c.Env != "dev" || c.StoreDriver != "sqlite" {
		t.Errorf("addr/env/store = %q/%q/%q/%q", c.HTTPAddr, c.GRPCAddr, c.Env, c.StoreDriver)
	}
	if c.OfficeStart != "10:00" || c.AbsentTime != "14:00" || c.LateThresholdMinutes != 5 {
		t.Errorf("timetable = %s/%s/%d", c.OfficeStart, c.AbsentTime, c.LateThresholdMinutes)
	}
	if len(c.ClockRoles) != 1 || c.ClockRoles[0] != "employee" || c.AdminRoles[0] != "admin" {
		t.Errorf("roles = %v/%v", c.ClockRoles, c.AdminRoles)
	}
	if c.SweepIntervalMinutes != 5 {
		t.Errorf("sweep interval = %d", c.SweepIntervalMinutes)
	}
}

func TestFromEnv_FailSoft(t *testing.T) {
	t.Setenv("ATTENDANCE_ENV", "staging")
	t.Setenv("ATTENDANCE_STORE", "mongo")
	t.Setenv("ATTENDANCE_OFFICE_START", "25:99")
	t.Setenv("ATTENDANCE_LATE_THRESHOLD_MINUTES", "-3")
	t.Setenv("ATTENDANCE_WFH_MIN_HOURS", "lots")

	c := config.FromEnv()
	if c.Env != "dev" || c.StoreDriver != "sqlite" {
		t.Errorf("env/store = %q/%q", c.Env, c.StoreDriver)
	}
	if c.OfficeStart != "10:00" || c.LateThresholdMinutes != 5 || c.WFHMinHours != 8.5 {
		t.Errorf("fallbacks = %s/%d/%v", c.OfficeStart, c.LateThresholdMinutes, c.WFHMinHours)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ATTENDANCE_STORE", "Postgres")
	t.Setenv("ATTENDANCE_ALLOW_ALL", "1")
	t.Setenv("ATTENDANCE_NOTIFY_RECIPIENTS", "ops@agency.test, ,hr@agency.test")
	t.Setenv("ATTENDANCE_SEED_USERS", "emp:Asha:Employee, boss:Chidi:admin ,solo,:nameless:admin")
	t.Setenv("ATTENDANCE_OFFICE_START", "09:30")
	t.Setenv("ATTENDANCE_TZ", "UTC")

	c := config.FromEnv()
	if c.StoreDriver != "postgres" || !c.AllowAll {
		t.Errorf("store/allowAll = %q/%v", c.StoreDriver, c.AllowAll)
	}
	if len(c.Recipients) != 2 || c.Recipients[1] != "hr@agency.test" {
		t.Errorf("recipients = %v", c.Recipients)
	}

	want := []config.SeedUser{
		{ID: "emp", Name: "Asha", Role: "employee"},
		{ID: "boss", Name: "Chidi", Role: "admin"},
		{ID: "solo", Name: "solo", Role: "employee"},
	}
	if len(c.SeedUsers) != len(want) {
		t.Fatalf("seed users = %+v", c.SeedUsers)
	}
	for i := range want {
		if c.SeedUsers[i] != want[i] {
			t.Errorf("seed[%d] = %+v, want %+v", i, c.SeedUsers[i], want[i])
		}
	}

	p, err := c.TimePolicy()
	if err != nil {
		t.Fatalf("TimePolicy: %v", err)
	}
	if p.Location != time.UTC || p.OfficeStartTime.Hour != 9 || p.OfficeStartTime.Minute != 30 {
		t.Errorf("policy = %+v", p)
	}
}

func TestTimePolicy_Rejects(t *testing.T) {
	c := config.FromEnv()

	bad := c
	bad.Timezone = "Mars/Olympus_Mons"
	if _, err := bad.TimePolicy(); err == nil {
		t.Error("expected unknown timezone to fail")
	}

	bad = c
	bad.Timezone = "UTC"
	bad.HalfDayTime = "15:00"
	if _, err := bad.TimePolicy(); err == nil {
		t.Error("expected half-day after absent to fail")
	}
}
