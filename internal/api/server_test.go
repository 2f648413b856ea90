package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-loadsynth/internal/activity"
	"github.com/nerrad567/gray-logic-loadsynth/internal/appliance"
	"github.com/nerrad567/gray-logic-loadsynth/internal/audit"
	"github.com/nerrad567/gray-logic-loadsynth/internal/auth"
	"github.com/nerrad567/gray-logic-loadsynth/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-loadsynth/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-loadsynth/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
	"github.com/nerrad567/gray-logic-loadsynth/internal/runlog"
	"github.com/nerrad567/gray-logic-loadsynth/internal/simulation"
	"github.com/nerrad567/gray-logic-loadsynth/internal/synthesis"
	_ "github.com/nerrad567/gray-logic-loadsynth/migrations"
)

type stubHealth struct{ err error }

func (s stubHealth) HealthCheck(context.Context) error { return s.err }

// testRun is a one-day run with a kettle boiling for alice and bob.
func testRun() *simulation.Result {
	res := &simulation.Result{
		RunID:         "run-1",
		Name:          "flat",
		Seed:          7,
		Days:          1,
		FirstWeekday:  presence.Monday,
		StartedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Channels:      simulation.NewChannels(presence.SecondsPerDay),
		Stats:         map[string]synthesis.Counts{"TEA": {Scheduled: 2}},
		ApplianceRuns: map[string]int{"KETTLE": 2},
	}
	for i, user := range []string{"alice", "bob"} {
		start := int64(7+i) * 3600
		op := activity.DeviceOperation{
			ApplianceType: "KETTLE",
			DeviceHandle:  "kettle_a",
			Start:         start,
			Duration:      180,
			Samples:       []appliance.Sample{{Offset: 0, Power: 2000}},
		}
		res.Occurrences = append(res.Occurrences, &synthesis.Occurrence{
			ID: "occ-" + user, Activity: "TEA", User: user, Start: start, End: start + 180,
			Attempts: 1, Outcome: synthesis.OutcomePlaced, Operations: []activity.DeviceOperation{op},
		})
		res.Channels.Add(op, user, "TEA")
	}
	return res
}

// testServer creates an open Server over an in-memory run log holding testRun.
func testServer(t *testing.T, health map[string]HealthChecker) (*Server, *httptest.Server) {
	t.Helper()
	return testServerWith(t, health, config.SecurityConfig{})
}

func testServerWith(t *testing.T, health map[string]HealthChecker, security config.SecurityConfig) (*Server, *httptest.Server) {
	t.Helper()

	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	repo := runlog.NewSQLiteRepository(db)
	if err := repo.SaveRun(context.Background(), testRun(), "none"); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1"},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: security,
		Logger:   logging.Discard(),
		Runs:     repo,
		Audit:    audit.NewSQLiteRepository(db),
		Health:   health,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, wantStatus int, v any) {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx // test request
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Test cleanup

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // diagnostics only
		t.Fatalf("GET %s status = %d, want %d; body = %s", url, resp.StatusCode, wantStatus, body)
	}
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without run log should fail")
	}
}

func TestHealth(t *testing.T) {
	_, ts := testServer(t, map[string]HealthChecker{"database": stubHealth{}})

	var body struct {
		Status  string            `json:"status"`
		Version string            `json:"version"`
		Checks  map[string]string `json:"checks"`
	}
	getJSON(t, ts.URL+"/api/v1/health", http.StatusOK, &body)
	if body.Status != "ok" || body.Version != "test" || body.Checks["database"] != "ok" {
		t.Errorf("health = %+v", body)
	}
}

func TestHealth_Degraded(t *testing.T) {
	_, ts := testServer(t, map[string]HealthChecker{
		"database": stubHealth{},
		"mqtt":     stubHealth{err: errors.New("not connected")},
	})

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	getJSON(t, ts.URL+"/api/v1/health", http.StatusServiceUnavailable, &body)
	if body.Status != "degraded" || body.Checks["mqtt"] != "not connected" {
		t.Errorf("health = %+v", body)
	}
}

func TestListRuns(t *testing.T) {
	_, ts := testServer(t, nil)

	var body struct {
		Runs  []runlog.Run `json:"runs"`
		Count int          `json:"count"`
	}
	getJSON(t, ts.URL+"/api/v1/runs", http.StatusOK, &body)
	if body.Count != 1 || body.Runs[0].ID != "run-1" || body.Runs[0].FirstWeekday != "monday" {
		t.Errorf("runs = %+v", body)
	}
}

func TestListRuns_BadLimit(t *testing.T) {
	_, ts := testServer(t, nil)
	for _, limit := range []string{"0", "-1", "abc", "1001"} {
		getJSON(t, ts.URL+"/api/v1/runs?limit="+limit, http.StatusBadRequest, nil)
	}
}

func TestGetRun(t *testing.T) {
	_, ts := testServer(t, nil)

	var run runlog.Run
	getJSON(t, ts.URL+"/api/v1/runs/run-1", http.StatusOK, &run)
	if run.Name != "flat" || run.Seed != 7 {
		t.Errorf("run = %+v", run)
	}

	var apiErr Error
	getJSON(t, ts.URL+"/api/v1/runs/missing", http.StatusNotFound, &apiErr)
	if apiErr.Code != ErrCodeNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, ErrCodeNotFound)
	}
}

func TestRunStats(t *testing.T) {
	_, ts := testServer(t, nil)

	var stats runlog.Stats
	getJSON(t, ts.URL+"/api/v1/runs/run-1/stats", http.StatusOK, &stats)
	if len(stats.Activities) != 1 || stats.Activities[0].Scheduled != 2 {
		t.Errorf("activities = %+v", stats.Activities)
	}
	if len(stats.Appliances) != 1 || stats.Appliances[0].Runs != 2 {
		t.Errorf("appliances = %+v", stats.Appliances)
	}

	getJSON(t, ts.URL+"/api/v1/runs/missing/stats", http.StatusNotFound, nil)
}

func TestRunOccurrences(t *testing.T) {
	_, ts := testServer(t, nil)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "all", query: "", want: 2},
		{name: "by user", query: "?user=bob", want: 1},
		{name: "by activity", query: "?activity=NAP", want: 0},
		{name: "by day", query: "?day=0", want: 2},
		{name: "limit", query: "?limit=1", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body struct {
				Occurrences []runlog.Occurrence `json:"occurrences"`
				Count       int                 `json:"count"`
			}
			getJSON(t, ts.URL+"/api/v1/runs/run-1/occurrences"+tt.query, http.StatusOK, &body)
			if body.Count != tt.want || len(body.Occurrences) != tt.want {
				t.Errorf("count = %d, want %d", body.Count, tt.want)
			}
		})
	}

	getJSON(t, ts.URL+"/api/v1/runs/run-1/occurrences?day=x", http.StatusBadRequest, nil)
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	_, ts := testServer(t, nil)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/runs", nil) //nolint:noctx // test request
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close() //nolint:errcheck // Test cleanup

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestMetrics(t *testing.T) {
	_, ts := testServer(t, nil)
	getJSON(t, ts.URL+"/api/v1/runs/run-1", http.StatusOK, nil)

	resp, err := http.Get(ts.URL + "/metrics") //nolint:noctx // test request
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck // Test cleanup
	body, _ := io.ReadAll(resp.Body) //nolint:errcheck // checked through content

	for _, want := range []string{
		`loadsynth_http_requests_total{route="/api/v1/runs/{id}`,
		"loadsynth_websocket_clients 0",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestWebSocket_RunEvents(t *testing.T) {
	srv, ts := testServer(t, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close() //nolint:errcheck // Test cleanup

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	srv.Hub().RunStarted("run-2", "flat", 3)
	srv.Hub().RunDay(simulation.DayProgress{RunID: "run-2", Day: 1, Days: 3, Occurrences: 4})

	want := []string{EventRunStarted, EventRunDay}
	for _, event := range want {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if msg.Type != WSTypeEvent || msg.EventType != event {
			t.Errorf("message = %+v, want event %s", msg, event)
		}
	}
}

func TestWebSocket_Unsubscribe(t *testing.T) {
	srv, ts := testServer(t, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close() //nolint:errcheck // Test cleanup

	unsub := WSMessage{Type: WSTypeUnsubscribe, ID: "1", Payload: WSSubscribePayload{Channels: []string{EventRunDay}}}
	if err := conn.WriteJSON(unsub); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline
	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if ack.Type != WSTypeResponse || ack.ID != "1" {
		t.Fatalf("ack = %+v", ack)
	}

	srv.Hub().RunDay(simulation.DayProgress{RunID: "run-2", Day: 1})
	srv.Hub().RunCompleted(testRun())

	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.EventType != EventRunCompleted {
		t.Errorf("first event after unsubscribe = %q, want %q", msg.EventType, EventRunCompleted)
	}
}

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func token(t *testing.T, role auth.Role) string {
	t.Helper()
	tok, err := auth.GenerateToken("tester", role, testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return tok
}

func doRequest(t *testing.T, method, url, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil) //nolint:noctx // test request
	if err != nil {
		t.Fatal(err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	resp.Body.Close() //nolint:errcheck // status only
	return resp
}

func TestAuth(t *testing.T) {
	_, ts := testServerWith(t, nil, config.SecurityConfig{JWT: config.JWTConfig{Secret: testJWTSecret}})
	viewer, admin := token(t, auth.RoleViewer), token(t, auth.RoleAdmin)

	forged, err := auth.GenerateToken("tester", auth.RoleAdmin, "another-secret-another-secret-000", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		bearer string
		want   int
	}{
		{name: "health is open", method: http.MethodGet, path: "/api/v1/health", want: http.StatusOK},
		{name: "metrics are open", method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{name: "runs need a token", method: http.MethodGet, path: "/api/v1/runs", want: http.StatusUnauthorized},
		{name: "forged token", method: http.MethodGet, path: "/api/v1/runs", bearer: forged, want: http.StatusUnauthorized},
		{name: "viewer lists runs", method: http.MethodGet, path: "/api/v1/runs", bearer: viewer, want: http.StatusOK},
		{name: "viewer reads stats", method: http.MethodGet, path: "/api/v1/runs/run-1/stats", bearer: viewer, want: http.StatusOK},
		{name: "viewer cannot delete", method: http.MethodDelete, path: "/api/v1/runs/run-1", bearer: viewer, want: http.StatusForbidden},
		{name: "viewer cannot read audit", method: http.MethodGet, path: "/api/v1/audit", bearer: viewer, want: http.StatusForbidden},
		{name: "admin reads audit", method: http.MethodGet, path: "/api/v1/audit", bearer: admin, want: http.StatusOK},
		{name: "ws needs a token", method: http.MethodGet, path: "/api/v1/ws", want: http.StatusUnauthorized},
		{name: "admin deletes", method: http.MethodDelete, path: "/api/v1/runs/run-1", bearer: admin, want: http.StatusNoContent},
		{name: "deleted run is gone", method: http.MethodGet, path: "/api/v1/runs/run-1", bearer: admin, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, tt.method, ts.URL+tt.path, tt.bearer)
			if resp.StatusCode != tt.want {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, resp.StatusCode, tt.want)
			}
		})
	}
}

func TestAuth_WebSocketQueryToken(t *testing.T) {
	_, ts := testServerWith(t, nil, config.SecurityConfig{JWT: config.JWTConfig{Secret: testJWTSecret}})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws?token=" + token(t, auth.RoleViewer)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	conn.Close() //nolint:errcheck // Test cleanup
}

func TestDeleteRun_OpenServer(t *testing.T) {
	_, ts := testServer(t, nil)

	if resp := doRequest(t, http.MethodDelete, ts.URL+"/api/v1/runs/run-1", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", resp.StatusCode)
	}
	if resp := doRequest(t, http.MethodDelete, ts.URL+"/api/v1/runs/run-1", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteRun_RecordsAudit(t *testing.T) {
	_, ts := testServerWith(t, nil, config.SecurityConfig{JWT: config.JWTConfig{Secret: testJWTSecret}})
	admin := token(t, auth.RoleAdmin)

	if resp := doRequest(t, http.MethodDelete, ts.URL+"/api/v1/runs/run-1", admin); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/audit?action=run.deleted", nil) //nolint:noctx // test request
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck // Test cleanup

	var got audit.ListResult
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding audit list: %v", err)
	}
	if got.Total != 1 {
		t.Fatalf("Total = %d, want 1", got.Total)
	}
	e := got.Entries[0]
	if e.RunID != "run-1" || e.Subject != "tester" || e.Source != audit.SourceAPI {
		t.Errorf("entry = %+v", e)
	}
}

func TestListAudit_BadOffset(t *testing.T) {
	_, ts := testServer(t, nil)
	getJSON(t, ts.URL+"/api/v1/audit?offset=-1", http.StatusBadRequest, nil)
}
