package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/nerrad567/poppy-motion/internal/actuator"
	"github.com/nerrad567/poppy-motion/internal/infrastructure/config"
	"github.com/nerrad567/poppy-motion/internal/infrastructure/logging"
	"github.com/nerrad567/poppy-motion/internal/infrastructure/mqtt"
	"github.com/nerrad567/poppy-motion/internal/motion"
	"github.com/nerrad567/poppy-motion/internal/playback"
)

const waveDoc = `{
	"actors_NAME": ["l_shoulder_y", "r_shoulder_y"],
	"freq": 10,
	"frame_number": 2,
	"position": {
		"0": {"Robot": [0.1, -0.1], "Right_hand": "open", "Left_hand": "close"},
		"1": {"Robot": [0.3, -0.3], "Right_hand": "open", "Left_hand": "close"}
	}
}`

// slowDoc plays for five seconds unless stopped.
const slowDoc = `{"actors_NAME":["l_shoulder_y"],"freq":1,"frame_number":6,"position":{
	"0":{"Robot":[0],"Right_hand":0,"Left_hand":0},"1":{"Robot":[1],"Right_hand":0,"Left_hand":0},
	"2":{"Robot":[2],"Right_hand":0,"Left_hand":0},"3":{"Robot":[3],"Right_hand":0,"Left_hand":0},
	"4":{"Robot":[4],"Right_hand":0,"Left_hand":0},"5":{"Robot":[5],"Right_hand":0,"Left_hand":0}}}`

// recordingBus collects published commands.
type recordingBus struct {
	mu     sync.Mutex
	topics []string
}

func (b *recordingBus) Publish(topic string, _ []byte, _ byte, _ bool) error {
	b.mu.Lock()
	b.topics = append(b.topics, topic)
	b.mu.Unlock()
	return nil
}

func (b *recordingBus) count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.topics {
		if t == topic {
			n++
		}
	}
	return n
}

type serverFixture struct {
	srv    *Server
	router http.Handler
	bus    *recordingBus
	cache  *actuator.Cache
	ctrl   *playback.Controller
}

// testServer creates a Server over an in-memory read-only sequence store.
func testServer(t *testing.T) serverFixture {
	t.Helper()
	store := motion.NewFSStore(fstest.MapFS{
		"wave.json":   {Data: []byte(waveDoc)},
		"slow.json":   {Data: []byte(slowDoc)},
		"broken.json": {Data: []byte(`{"actors_NAME":["a"]}`)},
	})
	return newFixture(t, store, nil)
}

// testWritableServer creates a Server over a file store in a temp directory.
func testWritableServer(t *testing.T) serverFixture {
	t.Helper()
	store := motion.NewFileStore(t.TempDir())
	return newFixture(t, store, store)
}

func newFixture(t *testing.T, store motion.Store, writer motion.Writer) serverFixture {
	t.Helper()

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	cache := actuator.NewCache()
	for _, ch := range []string{"l_shoulder_y", "r_shoulder_y"} {
		if err := cache.Observe(ch, actuator.Status{Direction: actuator.DirectionDirect, MaxLoad: 100}); err != nil {
			t.Fatalf("Observe(%s): %v", ch, err)
		}
	}

	bus := &recordingBus{}
	ctrl, err := playback.NewController(playback.ControllerDeps{
		Store:    store,
		Engine:   playback.NewEngine(cache, bus, mqtt.DefaultTopics(), nil),
		Logger:   log,
		MaxSpeed: 10,
	})
	if err != nil {
		t.Fatalf("NewController() error: %v", err)
	}
	t.Cleanup(func() {
		ctrl.Close(context.Background()) //nolint:errcheck
	})

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:     log,
		Controller: ctrl,
		Store:      store,
		Writer:     writer,
		Cache:      cache,
		Channels:   []string{"l_shoulder_y", "r_shoulder_y", "head_z"},
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	hubCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Hub().Run(hubCtx)

	return serverFixture{srv: srv, router: srv.buildRouter(), bus: bus, cache: cache, ctrl: ctrl}
}

func (f serverFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
}

// ─── Constructor ───────────────────────────────────────────────────

func TestNew_RequiresDeps(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	tests := []struct {
		name string
		deps Deps
	}{
		{name: "no logger", deps: Deps{}},
		{name: "no controller", deps: Deps{Logger: log}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	f := testServer(t)

	w := f.do(http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	decodeBody(t, w, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestHealth_ContentType(t *testing.T) {
	f := testServer(t)

	w := f.do(http.MethodGet, "/api/v1/health", "")
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestRequestID_Generated(t *testing.T) {
	f := testServer(t)

	w := f.do(http.MethodGet, "/api/v1/health", "")
	if rid := w.Header().Get("X-Request-ID"); len(rid) != 36 {
		t.Errorf("X-Request-ID = %q, want a UUID", rid)
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	f := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if rid := w.Header().Get("X-Request-ID"); rid != "client-123" {
		t.Errorf("X-Request-ID = %q, want client-123", rid)
	}
}

func TestCORS_Preflight(t *testing.T) {
	f := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/primitive/MovePlayer", nil)
	req.Header.Set("Origin", "http://snap.local")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://snap.local" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestNotFound(t *testing.T) {
	f := testServer(t)

	w := f.do(http.MethodGet, "/api/v1/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestMetrics(t *testing.T) {
	f := testServer(t)

	w := f.do(http.MethodGet, "/api/v1/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	var m SystemMetrics
	decodeBody(t, w, &m)
	if m.Actuators.Configured != 3 || m.Actuators.Reporting != 2 {
		t.Errorf("actuators = %+v, want configured 3 reporting 2", m.Actuators)
	}
	if m.Runtime.Goroutines == 0 {
		t.Error("runtime goroutines = 0")
	}
}

// ─── WebSocket Hub Tests ───────────────────────────────────────────

func TestHub_BroadcastToSubscribed(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newWSClient(hub, nil, playback.BroadcastFinished)
	hub.Register(client)

	hub.Broadcast(playback.BroadcastFinished, map[string]any{"sequence_id": "wave"})

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.Type != WSTypeEvent || wsMsg.Channel != playback.BroadcastFinished {
			t.Errorf("message = %+v, want %s event", wsMsg, playback.BroadcastFinished)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_PrefixSubscription(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	client := newWSClient(hub, nil, "playback.*")
	hub.Register(client)

	hub.Broadcast(playback.BroadcastFrame, map[string]any{"frame": 0})
	hub.Broadcast(actuator.BroadcastChannel, map[string]any{"channel": "head_z"})

	if got := len(client.send); got != 1 {
		t.Errorf("queued messages = %d, want 1", got)
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newWSClient(hub, nil, actuator.BroadcastChannel)
	hub.Register(client)

	hub.Broadcast(playback.BroadcastStarted, map[string]any{"sequence_id": "wave"})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_ClientCount(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	client := newWSClient(hub, nil)
	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}
