package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/satindergrewal/mnome/internal/audio"
	"github.com/satindergrewal/mnome/internal/metronome"
	"github.com/satindergrewal/mnome/internal/player"
	"github.com/satindergrewal/mnome/internal/trainer"
)

type testSink struct{ fail error }

func (s *testSink) Name() string                 { return "test" }
func (s *testSink) Open(src player.Source) error { return s.fail }
func (s *testSink) Close() error                 { return nil }

func newTestServer(t *testing.T, sink player.Sink, streams Streams) (*httptest.Server, *player.Engine) {
	t.Helper()
	logger := zap.NewNop()
	engine := player.New(audio.Playback, logger, sink)
	app, err := metronome.New(engine, trainer.New(engine, logger), io.Discard, logger, metronome.DefaultOptions())
	if err != nil {
		t.Fatalf("metronome.New: %v", err)
	}
	srv := httptest.NewServer(NewRouter(app, logger, streams))
	t.Cleanup(func() {
		srv.Close()
		engine.Close()
	})
	return srv, engine
}

func do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode: %v", method, url, err)
	}
	return resp.StatusCode, out
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &testSink{}, Streams{})
	code, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", code, body)
	}
}

func TestStatus(t *testing.T) {
	srv, _ := newTestServer(t, &testSink{}, Streams{})
	code, body := do(t, http.MethodGet, srv.URL+"/api/status", "")
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if body["bpm"] != float64(80) || body["pattern"] != "!+++" || body["running"] != false {
		t.Errorf("status body = %v", body)
	}
	if _, ok := body["ramp"]; !ok {
		t.Errorf("status body has no ramp: %v", body)
	}
}

func TestStartStopToggle(t *testing.T) {
	srv, engine := newTestServer(t, &testSink{}, Streams{})

	steps := []struct {
		path    string
		running bool
	}{
		{"/api/start", true},
		{"/api/start", true}, // already running is fine
		{"/api/stop", false},
		{"/api/stop", false},
		{"/api/toggle", true},
		{"/api/toggle", false},
	}
	for _, s := range steps {
		code, body := do(t, http.MethodPost, srv.URL+s.path, "")
		if code != http.StatusOK || body["ok"] != true {
			t.Errorf("POST %s = %d %v", s.path, code, body)
		}
		if engine.IsRunning() != s.running {
			t.Errorf("after %s running = %v, want %v", s.path, engine.IsRunning(), s.running)
		}
	}
}

func TestSetBPM(t *testing.T) {
	srv, engine := newTestServer(t, &testSink{}, Streams{})
	tests := []struct {
		body string
		code int
		want int
	}{
		{`{"bpm":132}`, http.StatusOK, 132},
		{`{"bpm":0}`, http.StatusBadRequest, 132},
		{`{"bpm":5000}`, http.StatusBadRequest, 132},
		{`{}`, http.StatusBadRequest, 132},
		{`not json`, http.StatusBadRequest, 132},
	}
	for _, tc := range tests {
		code, body := do(t, http.MethodPost, srv.URL+"/api/bpm", tc.body)
		if code != tc.code {
			t.Errorf("POST /api/bpm %s = %d %v, want %d", tc.body, code, body, tc.code)
		}
		if engine.BPM() != tc.want {
			t.Errorf("after %s BPM = %d, want %d", tc.body, engine.BPM(), tc.want)
		}
	}
}

func TestSetPattern(t *testing.T) {
	srv, engine := newTestServer(t, &testSink{}, Streams{})

	code, _ := do(t, http.MethodPost, srv.URL+"/api/pattern", `{"pattern":"a!+z.+"}`)
	if code != http.StatusOK {
		t.Fatalf("pattern code = %d", code)
	}
	if got := engine.Pattern().String(); got != "!+.+" {
		t.Errorf("Pattern = %q, want %q", got, "!+.+")
	}

	code, body := do(t, http.MethodPost, srv.URL+"/api/pattern", `{"pattern":"..."}`)
	if code != http.StatusBadRequest || body["ok"] != false {
		t.Errorf("silent pattern = %d %v, want 400", code, body)
	}
}

func TestRamp(t *testing.T) {
	srv, _ := newTestServer(t, &testSink{}, Streams{})

	code, body := do(t, http.MethodPost, srv.URL+"/api/ramp", `{"step":5,"every":30,"max":120}`)
	if code != http.StatusOK {
		t.Fatalf("ramp = %d %v", code, body)
	}
	status := body["status"].(map[string]any)
	ramp := status["ramp"].(map[string]any)
	if ramp["enabled"] != true || ramp["step"] != float64(5) || ramp["max"] != float64(120) {
		t.Errorf("ramp status = %v", ramp)
	}

	code, _ = do(t, http.MethodPost, srv.URL+"/api/ramp", `{"step":0,"every":30,"max":120}`)
	if code != http.StatusBadRequest {
		t.Errorf("invalid ramp = %d, want 400", code)
	}

	code, body = do(t, http.MethodDelete, srv.URL+"/api/ramp", "")
	if code != http.StatusOK {
		t.Fatalf("delete ramp = %d", code)
	}
	ramp = body["status"].(map[string]any)["ramp"].(map[string]any)
	if ramp["enabled"] != false {
		t.Errorf("ramp still enabled: %v", ramp)
	}
}

func TestDeviceFailureIsUnavailable(t *testing.T) {
	srv, engine := newTestServer(t, &testSink{fail: errors.New("no audio device")}, Streams{})
	code, body := do(t, http.MethodPost, srv.URL+"/api/start", "")
	if code != http.StatusServiceUnavailable {
		t.Errorf("start = %d %v, want 503", code, body)
	}
	if engine.IsRunning() {
		t.Error("engine running after device failure")
	}
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{metronome.ErrInvalidArgument, http.StatusBadRequest},
		{player.ErrEmptyPattern, http.StatusConflict},
		{player.ErrDeviceInit, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := statusCode(tc.err); got != tc.want {
			t.Errorf("statusCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &testSink{}, Streams{})
	do(t, http.MethodPost, srv.URL+"/api/start", "")

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	for _, name := range []string{"mnome_tempo_bpm", "mnome_playback_running", "mnome_commands_total"} {
		if !strings.Contains(string(b), name) {
			t.Errorf("/metrics has no %s", name)
		}
	}
}

func TestStreamsMountedOnlyWhenGiven(t *testing.T) {
	srv, _ := newTestServer(t, &testSink{}, Streams{})
	resp, err := http.Get(srv.URL + "/stream")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("/stream without handler = %d, want 404", resp.StatusCode)
	}

	called := false
	stream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})
	srv2, _ := newTestServer(t, &testSink{}, Streams{HTTP: stream})
	resp, err = http.Get(srv2.URL + "/stream")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if !called || resp.StatusCode != http.StatusTeapot {
		t.Errorf("/stream = %d, called %v", resp.StatusCode, called)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, &testSink{}, Streams{})
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/bpm", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
