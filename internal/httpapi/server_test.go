package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/opsdesk/attendance/internal/attendance/notify"
	"github.com/opsdesk/attendance/internal/attendance/policy"
	"github.com/opsdesk/attendance/internal/attendance/service"
	"github.com/opsdesk/attendance/internal/attendance/store"
	"github.com/opsdesk/attendance/internal/attendance/store/memory"
	"github.com/opsdesk/attendance/internal/attendance/types"
	"github.com/opsdesk/attendance/internal/auth"
	"github.com/opsdesk/attendance/internal/httpapi"
)

const testSecret = "test-secret"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(h, m int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = time.Date(2026, 3, 3, h, m, 0, 0, time.UTC)
}

type testEnv struct {
	ts       *httptest.Server
	clock    *testClock
	engine   *service.Engine
	hub      *notify.Hub
	verifier *auth.Verifier
}

// newTestServer wires the full dependency graph on memory stores and
// returns an httptest.Server. The clock starts at 10:00 on 2026-03-03 UTC.
func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	logger := log.New(io.Discard, "", 0)
	clock := &testClock{}
	clock.Set(10, 0)

	pol := policy.Default()
	pol.Location = time.UTC

	hub := notify.NewHub(logger)
	engine := service.NewEngine(service.Dependencies{
		Policy:  pol,
		Records: memory.NewRecordStore(),
		Users: memory.NewUserDirectory(
			store.User{ID: "emp", Name: "Asha", Role: "employee", Active: true},
			store.User{ID: "boss", Name: "Chidi", Role: "admin", Active: true},
			store.User{ID: "gone", Name: "Dana", Role: "employee", Active: false},
		),
		Activity:   memory.NewActivityLog(),
		Notifier:   hub,
		Authorizer: service.NewRolePolicy([]string{"employee"}, []string{"admin"}),
		Logger:     logger,
		Now:        clock.Now,
	})
	t.Cleanup(engine.Wait)

	verifier := auth.NewVerifier(testSecret)
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:   logger,
		Addr:     ":0",
		Engine:   engine,
		Verifier: verifier,
		Feed:     hub,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, clock: clock, engine: engine, hub: hub, verifier: verifier}
}

func (e *testEnv) token(t *testing.T, user string) string {
	t.Helper()
	tok, err := e.verifier.Issue(user, "", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, user, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, user))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, bytes.TrimSpace(b))
	}
}

// ── Auth ─────────────────────────────────────────────────────────────────────

func TestAuth_MissingAndBadTokens_401(t *testing.T) {
	env := newTestServer(t)

	resp := env.do(t, http.MethodPost, "/v1/attendance/clock-in", "", "")
	expectStatus(t, resp, http.StatusUnauthorized)

	req, _ := http.NewRequest(http.MethodPost, env.ts.URL+"/v1/attendance/clock-in", nil)
	req.Header.Set("Authorization", "Bearer nope")
	bad, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer bad.Body.Close()
	expectStatus(t, bad, http.StatusUnauthorized)
}

func TestAuth_UnknownUser_401(t *testing.T) {
	env := newTestServer(t)
	resp := env.do(t, http.MethodPost, "/v1/attendance/clock-in", "stranger", "")
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestAuth_InactiveUser_403(t *testing.T) {
	env := newTestServer(t)
	resp := env.do(t, http.MethodPost, "/v1/attendance/clock-in", "gone", "")
	expectStatus(t, resp, http.StatusForbidden)
	if e := decodeBody[types.ErrorResponse](t, resp); e.Error != "inactive_user" {
		t.Errorf("error = %q", e.Error)
	}
}

// ── Clock in / out ───────────────────────────────────────────────────────────

func TestClockInOut_OfficeDay(t *testing.T) {
	env := newTestServer(t)

	env.clock.Set(10, 20)
	resp := env.do(t, http.MethodPost, "/v1/attendance/clock-in", "emp", `{"mode":"office"}`)
	expectStatus(t, resp, http.StatusOK)
	in := decodeBody[types.RecordSnapshot](t, resp)
	if in.Status != types.StatusLate || in.LateSignInMinutes == nil || *in.LateSignInMinutes != 20 {
		t.Errorf("clock-in = %+v", in)
	}
	if in.LoginTime == nil || *in.LoginTime != "2026-03-03T10:20:00Z" || in.Date != "2026-03-03" {
		t.Errorf("login/date = %v/%s", in.LoginTime, in.Date)
	}

	dup := env.do(t, http.MethodPost, "/v1/attendance/clock-in", "emp", `{"mode":"OFFICE"}`)
	expectStatus(t, dup, http.StatusConflict)

	env.clock.Set(19, 20)
	out := env.do(t, http.MethodPost, "/v1/attendance/clock-out", "emp", "")
	expectStatus(t, out, http.StatusOK)
	rec := decodeBody[types.RecordSnapshot](t, out)
	if rec.TotalHours == nil || *rec.TotalHours != 8.5 || rec.LogoutTime == nil {
		t.Errorf("clock-out = %+v", rec)
	}

	again := env.do(t, http.MethodPost, "/v1/attendance/clock-out", "emp", "")
	expectStatus(t, again, http.StatusConflict)
}

func TestClockIn_EmptyBodyDefaultsToOffice(t *testing.T) {
	env := newTestServer(t)
	resp := env.do(t, http.MethodPost, "/v1/attendance/clock-in", "emp", "")
	expectStatus(t, resp, http.StatusOK)
	if rec := decodeBody[types.RecordSnapshot](t, resp); rec.Mode != types.ModeOffice {
		t.Errorf("mode = %s", rec.Mode)
	}
}

func TestClockIn_BadInput_400(t *testing.T) {
	env := newTestServer(t)

	for name, body := range map[string]string{
		"bad mode":      `{"mode":"HYBRID"}`,
		"unknown field": `{"mode":"WFH","extra":1}`,
		"not json":      `nope`,
	} {
		resp := env.do(t, http.MethodPost, "/v1/attendance/clock-in", "emp", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d", name, resp.StatusCode)
		}
	}
}

func TestClockOut_WithoutClockIn_409(t *testing.T) {
	env := newTestServer(t)
	resp := env.do(t, http.MethodPost, "/v1/attendance/clock-out", "emp", "")
	expectStatus(t, resp, http.StatusConflict)
}

// ── Lunch, heartbeat, today ──────────────────────────────────────────────────

func TestLunchAndHeartbeat(t *testing.T) {
	env := newTestServer(t)
	expectStatus(t, env.do(t, http.MethodPost, "/v1/attendance/clock-in", "emp", `{"mode":"WFH"}`), http.StatusOK)

	env.clock.Set(13, 0)
	expectStatus(t, env.do(t, http.MethodPost, "/v1/attendance/lunch/start", "emp", ""), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodPost, "/v1/attendance/lunch/start", "emp", ""), http.StatusConflict)
	env.clock.Set(13, 30)
	expectStatus(t, env.do(t, http.MethodPost, "/v1/attendance/lunch/end", "emp", ""), http.StatusOK)

	env.clock.Set(13, 35)
	hb := env.do(t, http.MethodPost, "/v1/attendance/heartbeat", "emp", "")
	expectStatus(t, hb, http.StatusOK)
	if rec := decodeBody[types.RecordSnapshot](t, hb); rec.WFHActivityPings != 2 {
		t.Errorf("pings = %d", rec.WFHActivityPings)
	}

	env.clock.Set(14, 0)
	today := env.do(t, http.MethodGet, "/v1/attendance/today", "emp", "")
	expectStatus(t, today, http.StatusOK)
	got := decodeBody[types.TodayResponse](t, today)
	if got.Liveness == nil || !got.Liveness.Inactive {
		t.Errorf("liveness = %+v", got.Liveness)
	}
	if got.Record.LunchStart == nil || got.Record.LunchEnd == nil {
		t.Error("lunch stamps missing")
	}
}

func TestToday_NoRecord_404(t *testing.T) {
	env := newTestServer(t)
	expectStatus(t, env.do(t, http.MethodGet, "/v1/attendance/today", "emp", ""), http.StatusNotFound)
}

// ── Admin ────────────────────────────────────────────────────────────────────

func TestAdmin_ConvertMode(t *testing.T) {
	env := newTestServer(t)
	in := decodeBody[types.RecordSnapshot](t, env.do(t, http.MethodPost, "/v1/attendance/clock-in", "emp", ""))

	path := "/v1/admin/attendance/" + in.ID + "/mode"
	expectStatus(t, env.do(t, http.MethodPost, path, "emp", `{"mode":"WFH"}`), http.StatusForbidden)
	expectStatus(t, env.do(t, http.MethodPost, path, "boss", `{}`), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodPost, "/v1/admin/attendance/missing/mode", "boss", `{"mode":"WFH"}`), http.StatusNotFound)

	resp := env.do(t, http.MethodPost, path, "boss", `{"mode":"WFH"}`)
	expectStatus(t, resp, http.StatusOK)
	rec := decodeBody[types.RecordSnapshot](t, resp)
	if rec.Mode != types.ModeWFH || rec.EditedBy == nil || *rec.EditedBy != "boss" {
		t.Errorf("converted = %+v", rec)
	}
}

func TestAdmin_BulkMarkAndList(t *testing.T) {
	env := newTestServer(t)

	expectStatus(t, env.do(t, http.MethodPost, "/v1/admin/attendance/bulk-mark", "boss", `{"date":"03/03/2026"}`), http.StatusBadRequest)

	resp := env.do(t, http.MethodPost, "/v1/admin/attendance/bulk-mark", "boss", `{"date":"2026-03-02","mode":"OFFICE"}`)
	expectStatus(t, resp, http.StatusOK)
	res := decodeBody[types.BulkMarkResponse](t, resp)
	if res.Success != 2 || res.Failed != 0 || res.Date != "2026-03-02" {
		t.Errorf("bulk = %+v", res)
	}

	list := env.do(t, http.MethodGet, "/v1/admin/attendance?date=2026-03-02", "boss", "")
	expectStatus(t, list, http.StatusOK)
	got := decodeBody[struct {
		Date    string                 `json:"date"`
		Records []types.RecordSnapshot `json:"records"`
	}](t, list)
	if got.Date != "2026-03-02" || len(got.Records) != 2 {
		t.Errorf("list = %+v", got)
	}

	expectStatus(t, env.do(t, http.MethodGet, "/v1/admin/attendance?date=yesterday", "boss", ""), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodGet, "/v1/admin/attendance", "emp", ""), http.StatusForbidden)
}

// ── Protobuf negotiation ─────────────────────────────────────────────────────

func TestClockIn_ProtobufResponse(t *testing.T) {
	env := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, env.ts.URL+"/v1/attendance/clock-in", strings.NewReader(`{"mode":"LEAVE"}`))
	req.Header.Set("Authorization", "Bearer "+env.token(t, "emp"))
	req.Header.Set("Accept", "application/x-protobuf")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	if ct := resp.Header.Get("Content-Type"); ct != "application/x-protobuf" {
		t.Fatalf("content-type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	var msg structpb.Struct
	if err := proto.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := msg.GetFields()["mode"].GetStringValue(); got != "LEAVE" {
		t.Errorf("mode = %q", got)
	}
	if got := msg.GetFields()["user_id"].GetStringValue(); got != "emp" {
		t.Errorf("user_id = %q", got)
	}
}

// ── Health + notifications ───────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	env := newTestServer(t)
	resp := env.do(t, http.MethodGet, "/healthz", "", "")
	expectStatus(t, resp, http.StatusOK)
	if got := decodeBody[map[string]any](t, resp); got["ok"] != true {
		t.Errorf("healthz = %v", got)
	}
}

func TestNotificationsFeed(t *testing.T) {
	env := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/v1/notifications/ws?access_token=" + env.token(t, "boss")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	expectStatus(t, env.do(t, http.MethodPost, "/v1/attendance/clock-in", "emp", `{"mode":"WFH"}`), http.StatusOK)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev notify.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Kind != notify.KindClockIn || ev.ActorName != "Asha" || ev.Mode != types.ModeWFH {
		t.Errorf("event = %+v", ev)
	}

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(env.ts.URL, "http")+"/v1/notifications/ws", nil)
	if err == nil {
		t.Error("unauthenticated websocket dial succeeded")
	}
}
