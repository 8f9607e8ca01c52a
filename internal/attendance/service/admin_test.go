package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/service"
	"github.com/opsdesk/attendance/internal/attendance/store/memory"
	"github.com/opsdesk/attendance/internal/attendance/types"
)

// ── AdminConvertMode ─────────────────────────────────────────────────────────

func TestConvertMode_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	rec := f.clockIn(t, "emp", "OFFICE", 10, 0)

	_, err := f.engine.AdminConvertMode(context.Background(), rec.ID, types.ModeWFH, "emp")
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestConvertMode_UnknownRecord(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.AdminConvertMode(context.Background(), "missing", types.ModeWFH, "boss")
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConvertMode_InvalidMode(t *testing.T) {
	f := newFixture(t)
	rec := f.clockIn(t, "emp", "OFFICE", 10, 0)
	_, err := f.engine.AdminConvertMode(context.Background(), rec.ID, types.Mode("HYBRID"), "boss")
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestConvertMode_SameModeIsNoop(t *testing.T) {
	f := newFixture(t)
	rec := f.clockIn(t, "emp", "OFFICE", 10, 0)

	got, err := f.engine.AdminConvertMode(context.Background(), rec.ID, types.ModeOffice, "boss")
	if err != nil {
		t.Fatalf("AdminConvertMode: %v", err)
	}
	if got.EditedBy != nil || !got.UpdatedAt.Equal(rec.UpdatedAt) {
		t.Error("same-mode conversion wrote to the record")
	}
	if len(f.activity.Entries()) != 1 {
		t.Errorf("same-mode conversion was audited")
	}
}

func TestConvertMode_OpenOfficeToWFH(t *testing.T) {
	f := newFixture(t)
	rec := f.clockIn(t, "emp", "OFFICE", 10, 30)

	f.clock.Set(at(11, 0))
	got, err := f.engine.AdminConvertMode(context.Background(), rec.ID, types.ModeWFH, "boss")
	if err != nil {
		t.Fatalf("AdminConvertMode: %v", err)
	}
	if got.Mode != types.ModeWFH || got.Status != types.StatusPresent {
		t.Errorf("mode/status = %s/%s", got.Mode, got.Status)
	}
	if got.LateSignInMinutes != nil || got.EarlySignInMinutes != nil {
		t.Error("office offsets survived")
	}
	if got.WFHActivityPings != 1 || !got.LastActivityTime.Equal(at(11, 0)) {
		t.Errorf("tracking = %v/%d", got.LastActivityTime, got.WFHActivityPings)
	}
	if !got.IsOpen() {
		t.Error("conversion closed the session")
	}
	if got.EditedBy == nil || *got.EditedBy != "boss" || !got.EditedAt.Equal(at(11, 0)) {
		t.Errorf("edit stamp = %v/%v", got.EditedBy, got.EditedAt)
	}
}

func TestConvertMode_ClosedOfficeToWFHReversesLunch(t *testing.T) {
	f := newFixture(t)
	f.clockIn(t, "emp", "OFFICE", 10, 0)
	rec := f.clockOut(t, "emp", 18, 45) // 8.75h elapsed, 8.25h after lunch

	got, err := f.engine.AdminConvertMode(context.Background(), rec.ID, types.ModeWFH, "boss")
	if err != nil {
		t.Fatalf("AdminConvertMode: %v", err)
	}
	if !floatNear(got.TotalHours, 8.75) {
		t.Errorf("total hours = %v, want 8.75", got.TotalHours)
	}
	if got.Status != types.StatusPresent {
		t.Errorf("status = %s, want Present (8.75 >= 8.5)", got.Status)
	}
	if got.EarlyLogoutMinutes != nil || got.LateLogoutMinutes != nil {
		t.Error("logout offsets survived")
	}
	if got.IsOpen() {
		t.Error("conversion reopened the session")
	}
}

func TestConvertMode_ClampedOfficeHoursToWFHUseElapsedTime(t *testing.T) {
	f := newFixture(t)
	f.clockIn(t, "emp", "OFFICE", 12, 50)
	rec := f.clockOut(t, "emp", 13, 10) // 20 minutes, clamped to 0 after lunch
	if !floatNear(rec.TotalHours, 0) {
		t.Fatalf("office hours = %v, want 0", rec.TotalHours)
	}

	got, err := f.engine.AdminConvertMode(context.Background(), rec.ID, types.ModeWFH, "boss")
	if err != nil {
		t.Fatalf("AdminConvertMode: %v", err)
	}
	if !floatNear(got.TotalHours, 20.0/60.0) {
		t.Errorf("total hours = %v, want %v", got.TotalHours, 20.0/60.0)
	}
	if got.Status != types.StatusAbsent {
		t.Errorf("status = %s, want Absent", got.Status)
	}
}

func TestConvertMode_ClosedOfficeBeforeLunchWindowToWFH(t *testing.T) {
	f := newFixture(t)
	f.clockIn(t, "emp", "OFFICE", 9, 0)
	rec := f.clockOut(t, "emp", 12, 30)

	got, err := f.engine.AdminConvertMode(context.Background(), rec.ID, types.ModeWFH, "boss")
	if err != nil {
		t.Fatalf("AdminConvertMode: %v", err)
	}
	if !floatNear(got.TotalHours, 3.5) || got.Status != types.StatusAbsent {
		t.Errorf("hours/status = %v/%s, want 3.5/Absent", got.TotalHours, got.Status)
	}
}

func TestConvertMode_OfficeWFHOfficeRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clockIn(t, "emp", "OFFICE", 10, 20)
	orig := f.clockOut(t, "emp", 19, 10)

	wfh, err := f.engine.AdminConvertMode(ctx, orig.ID, types.ModeWFH, "boss")
	if err != nil {
		t.Fatalf("to WFH: %v", err)
	}
	back, err := f.engine.AdminConvertMode(ctx, wfh.ID, types.ModeOffice, "boss")
	if err != nil {
		t.Fatalf("to OFFICE: %v", err)
	}

	if !floatNear(back.TotalHours, *orig.TotalHours) {
		t.Errorf("total hours = %v, want %v", *back.TotalHours, *orig.TotalHours)
	}
	if back.Status != orig.Status {
		t.Errorf("status = %s, want %s", back.Status, orig.Status)
	}
	if intVal(back.LateSignInMinutes) != intVal(orig.LateSignInMinutes) ||
		intVal(back.LateLogoutMinutes) != intVal(orig.LateLogoutMinutes) {
		t.Errorf("offsets = %d/%d, want %d/%d",
			intVal(back.LateSignInMinutes), intVal(back.LateLogoutMinutes),
			intVal(orig.LateSignInMinutes), intVal(orig.LateLogoutMinutes))
	}
	if back.LastActivityTime != nil || back.WFHActivityPings != 0 {
		t.Error("WFH tracking survived the return to OFFICE")
	}
}

func TestConvertMode_WFHAbsentToOfficeReclassifies(t *testing.T) {
	f := newFixture(t)
	f.clockIn(t, "emp", "WFH", 9, 0)
	rec := f.clockOut(t, "emp", 17, 0)
	if rec.Status != types.StatusAbsent {
		t.Fatalf("precondition: status = %s", rec.Status)
	}

	got, err := f.engine.AdminConvertMode(context.Background(), rec.ID, types.ModeOffice, "boss")
	if err != nil {
		t.Fatalf("AdminConvertMode: %v", err)
	}
	if got.Status != types.StatusPresent || intVal(got.EarlySignInMinutes) != 60 || intVal(got.LateSignInMinutes) != 0 {
		t.Errorf("status/early/late = %s/%d/%d, want Present/60/0",
			got.Status, intVal(got.EarlySignInMinutes), intVal(got.LateSignInMinutes))
	}
	if !floatNear(got.TotalHours, 7.5) {
		t.Errorf("total hours = %v, want 7.5", got.TotalHours)
	}
	if intVal(got.EarlyLogoutMinutes) != 120 || intVal(got.LateLogoutMinutes) != 0 {
		t.Errorf("logout early/late = %d/%d, want 120/0",
			intVal(got.EarlyLogoutMinutes), intVal(got.LateLogoutMinutes))
	}
}

func TestConvertMode_ToLeaveClearsEverything(t *testing.T) {
	f := newFixture(t)
	f.clockIn(t, "emp", "OFFICE", 15, 0)
	rec := f.clockOut(t, "emp", 19, 0)

	got, err := f.engine.AdminConvertMode(context.Background(), rec.ID, types.ModeLeave, "boss")
	if err != nil {
		t.Fatalf("AdminConvertMode: %v", err)
	}
	if got.Status != types.StatusPresent {
		t.Errorf("status = %s, want Present", got.Status)
	}
	if got.EarlySignInMinutes != nil || got.LateSignInMinutes != nil ||
		got.EarlyLogoutMinutes != nil || got.LateLogoutMinutes != nil ||
		got.LastActivityTime != nil || got.WFHActivityPings != 0 {
		t.Errorf("leave record kept mode fields: %+v", got)
	}
	if got.LogoutTime == nil {
		t.Error("conversion reopened the session")
	}
}

func TestConvertMode_AuditsAdmin(t *testing.T) {
	f := newFixture(t)
	rec := f.clockIn(t, "emp", "OFFICE", 10, 0)
	if _, err := f.engine.AdminConvertMode(context.Background(), rec.ID, types.ModeLeave, "boss"); err != nil {
		t.Fatalf("AdminConvertMode: %v", err)
	}
	trail, err := f.activity.ForEntity(context.Background(), "attendance", rec.ID)
	if err != nil || len(trail) != 2 {
		t.Fatalf("trail = %+v, err = %v", trail, err)
	}
	if trail[0].Verb != "clock_in" || trail[0].ActorID != "emp" {
		t.Errorf("first entry = %+v", trail[0])
	}
	last := trail[1]
	if last.Verb != "convert_mode" || last.ActorID != "boss" || last.EntityID != rec.ID {
		t.Errorf("last entry = %+v", last)
	}
}

// ── AdminBulkMarkDay ─────────────────────────────────────────────────────────

func TestBulkMarkDay_MarksEveryActiveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.AdminBulkMarkDay(ctx, testDay.Add(15*time.Hour), types.ModeOffice, "boss")
	if err != nil {
		t.Fatalf("AdminBulkMarkDay: %v", err)
	}
	// emp, emp2, boss, guest are active; gone is not.
	if res.Success != 4 || len(res.Errors) != 0 {
		t.Fatalf("success=%d errors=%v", res.Success, res.Errors)
	}
	if !res.Date.Equal(testDay) {
		t.Errorf("date = %v, want %v", res.Date, testDay)
	}

	rec, err := f.records.GetByUserAndDate(ctx, "emp", testDay)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !rec.LoginTime.Equal(at(10, 0)) || !rec.LogoutTime.Equal(at(19, 0)) {
		t.Errorf("span = %v-%v", rec.LoginTime, rec.LogoutTime)
	}
	if rec.Status != types.StatusPresent || !floatNear(rec.TotalHours, 8.5) {
		t.Errorf("status/hours = %s/%v", rec.Status, rec.TotalHours)
	}
	if intVal(rec.LateSignInMinutes) != 0 || intVal(rec.EarlyLogoutMinutes) != 0 {
		t.Error("office offsets should be zero")
	}
	if rec.EditedBy == nil || *rec.EditedBy != "boss" {
		t.Errorf("edited by = %v", rec.EditedBy)
	}

	if _, err := f.records.GetByUserAndDate(ctx, "gone", testDay); err == nil {
		t.Error("inactive user was marked")
	}
}

func TestBulkMarkDay_WFHHasNoHours(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.AdminBulkMarkDay(context.Background(), testDay, types.ModeWFH, "boss"); err != nil {
		t.Fatalf("AdminBulkMarkDay: %v", err)
	}
	rec, _ := f.records.GetByUserAndDate(context.Background(), "emp2", testDay)
	if rec.TotalHours != nil || rec.LateSignInMinutes != nil {
		t.Errorf("wfh bulk record = %+v", rec)
	}
	if rec.Mode != types.ModeWFH || rec.Status != types.StatusPresent {
		t.Errorf("mode/status = %s/%s", rec.Mode, rec.Status)
	}
}

func TestBulkMarkDay_OverwritesExistingRecord(t *testing.T) {
	f := newFixture(t)
	in := f.clockIn(t, "emp", "OFFICE", 15, 0)
	if _, err := f.engine.AdminBulkMarkDay(context.Background(), testDay, types.ModeOffice, "boss"); err != nil {
		t.Fatalf("AdminBulkMarkDay: %v", err)
	}
	rec, _ := f.records.GetByUserAndDate(context.Background(), "emp", testDay)
	if rec.ID != in.ID {
		t.Error("bulk mark created a second record for the same day")
	}
	if rec.Status != types.StatusPresent {
		t.Errorf("status = %s", rec.Status)
	}
}

func TestBulkMarkDay_IsolatesFailures(t *testing.T) {
	flaky := flakyRecords{RecordStore: memory.NewRecordStore(), failUser: "emp2"}
	f := newFixtureWithRecords(t, flaky)

	res, err := f.engine.AdminBulkMarkDay(context.Background(), testDay, types.ModeOffice, "boss")
	if err != nil {
		t.Fatalf("AdminBulkMarkDay: %v", err)
	}
	if res.Success != 3 {
		t.Errorf("success = %d, want 3", res.Success)
	}
	if len(res.Errors) != 1 || res.Errors[0].UserID != "emp2" {
		t.Fatalf("errors = %+v", res.Errors)
	}

	view := service.BulkView(res, time.UTC)
	if view.Failed != 1 || view.Errors[0].Error == "" || view.Date != "2026-03-03" {
		t.Errorf("view = %+v", view)
	}
}

func TestBulkMarkDay_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.AdminBulkMarkDay(context.Background(), testDay, types.ModeOffice, "emp")
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestBulkMarkDay_RejectsZeroDate(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.AdminBulkMarkDay(context.Background(), time.Time{}, types.ModeOffice, "boss")
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestListDay(t *testing.T) {
	f := newFixture(t)
	f.clockIn(t, "emp", "OFFICE", 10, 0)
	f.clockIn(t, "emp2", "WFH", 10, 0)

	recs, err := f.engine.ListDay(context.Background(), "boss", testDay)
	if err != nil {
		t.Fatalf("ListDay: %v", err)
	}
	if len(recs) != 2 || recs[0].UserID != "emp" || recs[1].UserID != "emp2" {
		t.Errorf("records = %+v", recs)
	}
	if _, err := f.engine.ListDay(context.Background(), "emp", testDay); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("non-admin ListDay: %v", err)
	}
}
