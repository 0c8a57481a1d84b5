package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/yantram/internal/app"
	"github.com/ayusman/yantram/internal/bulb"
	"github.com/ayusman/yantram/internal/capture"
	"github.com/ayusman/yantram/internal/detector"
	"github.com/ayusman/yantram/internal/overlay"
	"github.com/ayusman/yantram/internal/store"
	"github.com/ayusman/yantram/internal/theme"
)

type testEnv struct {
	ts     *httptest.Server
	srv    *Server
	det    *detector.FakeSource
	ctrl   *app.Controller
	themes *theme.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	det := detector.NewFakeSource()
	cam := capture.NewBlankCamera(64, 48)
	frames := capture.NewFrameBuffer()
	themes := theme.NewStore(theme.Blue)

	ctrl := app.New(app.Config{
		Constraints:   capture.DefaultConstraints(),
		Opener:        func(int, capture.Constraints) capture.Camera { return cam },
		WarmupTimeout: time.Second,
		NewDetector:   func() (detector.Source, error) { return det, nil },
		Renderer:      overlay.NewRenderer(overlay.DefaultStyle()),
		Themes:        themes,
		Bulb:          bulb.New(),
		Sink:          frames,
		Store:         st,
		Refresh:       func() app.Refresher { return app.NewTickerRefresher(2 * time.Millisecond) },
	})
	t.Cleanup(func() { ctrl.Close() })

	srv := New(Config{Store: st, Controller: ctrl, Themes: themes, Frames: frames})
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})

	return &testEnv{ts: ts, srv: srv, det: det, ctrl: ctrl, themes: themes}
}

func (e *testEnv) postJSON(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := e.ts.Client().Post(e.ts.URL+path, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", path, err)
	}
	return resp
}

func TestAPI_CameraWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := newTestEnv(t)
	palm := detector.OpenPalmLandmarks()
	env.det.SetHand(&palm)
	client := env.ts.Client()

	// 1. Enable the camera
	resp := env.postJSON(t, "/api/camera", `{"active": true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/camera status = %d", resp.StatusCode)
	}
	var status app.Status
	json.NewDecoder(resp.Body).Decode(&status)
	resp.Body.Close()
	if !status.Active {
		t.Fatal("camera not active after enable")
	}

	// 2. Poll state until the open hand is seen
	deadline := time.Now().Add(2 * time.Second)
	var state map[string]any
	for time.Now().Before(deadline) {
		resp, err := client.Get(env.ts.URL + "/api/state")
		if err != nil {
			t.Fatalf("GET /api/state error = %v", err)
		}
		state = nil
		json.NewDecoder(resp.Body).Decode(&state)
		resp.Body.Close()
		if state["power"] == "full" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if state["power"] != "full" || state["state"] != "open" {
		t.Fatalf("state = %v", state)
	}

	// 3. Switch theme
	req, _ := http.NewRequest(http.MethodPut, env.ts.URL+"/api/theme", strings.NewReader(`{"theme":"neon"}`))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PUT /api/theme error = %v", err)
	}
	resp.Body.Close()
	if env.themes.Get() != theme.Neon {
		t.Errorf("theme = %s", env.themes.Get())
	}

	// 4. Disable the camera
	resp = env.postJSON(t, "/api/camera", `{"active": false}`)
	resp.Body.Close()
	if env.ctrl.Status().Active {
		t.Fatal("camera still active")
	}

	// 5. The session was recorded
	resp, err = client.Get(env.ts.URL + "/api/sessions")
	if err != nil {
		t.Fatalf("GET /api/sessions error = %v", err)
	}
	var listed struct {
		Sessions []struct {
			ID        string `json:"id"`
			EndReason string `json:"end_reason"`
			Frames    int64  `json:"frames"`
		} `json:"sessions"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Sessions) != 1 {
		t.Fatalf("sessions = %+v", listed.Sessions)
	}
	if s := listed.Sessions[0]; s.EndReason != app.EndStopped || s.Frames == 0 {
		t.Errorf("session = %+v", s)
	}
}

func TestAPI_Events(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := newTestEnv(t)
	fist := detector.FistLandmarks()
	env.det.SetHand(&fist)

	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	// The current state arrives on connect.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first map[string]any
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial event: %v", err)
	}
	if first["state"] != "detecting" || first["power"] != "off" {
		t.Errorf("initial event = %v", first)
	}

	if err := env.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for {
		var ev map[string]any
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		if ev["state"] == "closed" {
			camera, _ := ev["camera"].(map[string]any)
			if camera["active"] != true || ev["session_id"] == nil {
				t.Errorf("event = %v", ev)
			}
			break
		}
	}

	env.srv.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Errorf("expected normal closure, got %v", err)
			}
			break
		}
	}
}

func TestAPI_Stream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := newTestEnv(t)
	if err := env.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, env.ts.URL+"/api/stream", nil)
	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	boundary, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read boundary: %v", err)
	}
	if boundary != "--frame\r\n" {
		t.Errorf("boundary = %q", boundary)
	}
	header, _ := r.ReadString('\n')
	if header != "Content-Type: image/jpeg\r\n" {
		t.Errorf("part header = %q", header)
	}
}
