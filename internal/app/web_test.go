package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
	"github.com/relabs-tech/vehicle_telemetry/internal/tracklog"
)

func newTestServer(t *testing.T, snap *telemetry.Snapshot, loader RouteLoader, track *tracklog.Recorder) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newWebHandler(snap, loader, track, ""))
	t.Cleanup(srv.Close)
	return srv
}

func TestWeb_Telemetry(t *testing.T) {
	snap := telemetry.NewSnapshot()
	snap.SpeedKmh.Set(37.5)
	srv := newTestServer(t, snap, nil, nil)

	resp, err := http.Get(srv.URL + "/api/telemetry")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %q", ct)
	}
	var st telemetry.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.SpeedKmh != 37.5 || st.Latitude != telemetry.DefaultLatitude {
		t.Fatalf("unexpected state: %+v", st)
	}

	resp2, err := http.Post(srv.URL+"/api/telemetry", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp2.StatusCode)
	}
}

func TestWeb_Status(t *testing.T) {
	snap := telemetry.NewSnapshot()
	snap.SetAlert(telemetry.AlertWarning, "Low tyre pressure")
	srv := newTestServer(t, snap, nil, nil)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var bar telemetry.StatusBar
	if err := json.NewDecoder(resp.Body).Decode(&bar); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bar.GPS != "GPS LOST" || !bar.AlertVisible || bar.AlertTitle != "WARNING" {
		t.Fatalf("unexpected status: %+v", bar)
	}
}

func TestWeb_Command(t *testing.T) {
	snap := telemetry.NewSnapshot()
	srv := newTestServer(t, snap, nil, nil)

	resp, err := http.Post(srv.URL+"/api/command", "application/json", strings.NewReader(`{"battery_percent": 12}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := snap.BatteryPercent.Get(); got != 12 {
		t.Fatalf("battery=%d want 12", got)
	}

	resp, err = http.Post(srv.URL+"/api/command", "application/json", strings.NewReader(`{"alert_level": 9}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWeb_Route(t *testing.T) {
	snap := telemetry.NewSnapshot()

	srv := newTestServer(t, snap, nil, nil)
	resp, err := http.Post(srv.URL+"/api/route", "application/json", strings.NewReader(`[{"lat":1,"lon":1},{"lat":2,"lon":2}]`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 without a route loader, got %d", resp.StatusCode)
	}

	l := &recordingLoader{}
	srv = newTestServer(t, snap, l, nil)
	resp, err = http.Post(srv.URL+"/api/route", "application/json", strings.NewReader(`[{"lat":1,"lon":1},{"lat":2,"lon":2}]`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if len(l.got) != 2 {
		t.Fatalf("route not loaded: %+v", l.got)
	}

	resp, err = http.Post(srv.URL+"/api/route", "application/json", strings.NewReader(`[{"lat":1,"lon":1}]`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a one-point route, got %d", resp.StatusCode)
	}
}

func TestWeb_Track(t *testing.T) {
	snap := telemetry.NewSnapshot()

	srv := newTestServer(t, snap, nil, nil)
	resp, err := http.Get(srv.URL + "/api/track")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 with track log disabled, got %d", resp.StatusCode)
	}

	rec, err := tracklog.Open(filepath.Join(t.TempDir(), "track.db"), 0)
	if err != nil {
		t.Fatalf("open track: %v", err)
	}
	t.Cleanup(func() { rec.Close() })
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		st := telemetry.State{FixValid: true, Latitude: float64(i), Longitude: 1}
		if _, err := rec.Record(context.Background(), st, t0.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	srv = newTestServer(t, snap, nil, rec)
	resp, err = http.Get(srv.URL + "/api/track?limit=2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var pts []tracklog.Point
	if err := json.NewDecoder(resp.Body).Decode(&pts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pts) != 2 || pts[0].Latitude != 1 || pts[1].Latitude != 2 {
		t.Fatalf("unexpected points: %+v", pts)
	}

	bad, err := http.Get(srv.URL + "/api/track?limit=abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", bad.StatusCode)
	}
}

func TestWeb_WebsocketStreamsChanges(t *testing.T) {
	snap := telemetry.NewSnapshot()
	srv := newTestServer(t, snap, nil, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/telemetry"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first telemetry.State
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial state: %v", err)
	}
	if first.Version != snap.Version() {
		t.Fatalf("initial version %d want %d", first.Version, snap.Version())
	}

	snap.FixValid.Set(true)
	snap.Latitude.Set(45.0)

	for {
		var st telemetry.State
		if err := conn.ReadJSON(&st); err != nil {
			t.Fatalf("read update: %v", err)
		}
		if st.Version <= first.Version {
			t.Fatalf("version did not advance: %d", st.Version)
		}
		if st.Latitude == 45.0 && st.FixValid {
			return
		}
	}
}
