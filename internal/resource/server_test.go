package resource

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/devicedata"
	"github.com/nerrad567/piot-cda/internal/infrastructure/config"
	"github.com/nerrad567/piot-cda/internal/infrastructure/logging"
)

// fakeSource is an in-memory DataSource.
type fakeSource struct {
	mu        sync.Mutex
	sensors   map[string]*data.SensorData
	responses map[string]*data.ActuatorData
	perf      *data.SystemPerformanceData
	commands  []*data.ActuatorData
	reject    bool
	panicOn   string
	stats     devicedata.Stats
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		sensors:   make(map[string]*data.SensorData),
		responses: make(map[string]*data.ActuatorData),
	}
}

func (f *fakeSource) GetLatestSensorDataFromCache(name string) *data.SensorData {
	if name == f.panicOn {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.sensors[name]; ok {
		return d.Clone()
	}
	return nil
}

func (f *fakeSource) GetLatestActuatorResponseFromCache(name string) *data.ActuatorData {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.responses[name]; ok {
		return d.Clone()
	}
	return nil
}

func (f *fakeSource) GetLatestSystemPerformanceDataFromCache(name string) *data.SystemPerformanceData {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.perf == nil || f.perf.Name != name {
		return nil
	}
	return f.perf.Clone()
}

func (f *fakeSource) ExecuteActuatorCommand(cmd *data.ActuatorData) *data.ActuatorData {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return nil
	}
	f.commands = append(f.commands, cmd.Clone())
	resp := cmd.NewResponse(data.StatusOK)
	f.responses[resp.Name] = resp.Clone()
	return resp
}

func (f *fakeSource) Stats() devicedata.Stats {
	return f.stats
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
}

// testServer returns a server with a running hub and an httptest listener.
func testServer(t *testing.T) (*Server, *fakeSource, *httptest.Server) {
	t.Helper()

	src := newFakeSource()
	srv, err := New(Deps{
		Config: config.ResourceServerConfig{
			Host: "127.0.0.1",
			WebSocket: config.WebSocketConfig{
				MaxMessageSize: 4096,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Source:   src,
		Logger:   testLogger(),
		DeviceID: "cda-test",
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go srv.hub.Run(ctx)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return srv, src, ts
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{Source: newFakeSource()}); err != ErrNilLogger {
		t.Errorf("New(no logger) error = %v, want %v", err, ErrNilLogger)
	}
	if _, err := New(Deps{Logger: testLogger()}); err != ErrNilSource {
		t.Errorf("New(no source) error = %v, want %v", err, ErrNilSource)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" || resp["device_id"] != "cda-test" {
		t.Errorf("health = %v", resp)
	}
}

func TestRequestID(t *testing.T) {
	srv, _, _ := testServer(t)

	tests := []struct {
		name string
		sent string
	}{
		{"echoed", "abc-123"},
		{"generated", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.sent != "" {
				req.Header.Set(RequestIDHeader, tt.sent)
			}
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if tt.sent != "" && got != tt.sent {
				t.Errorf("request id = %q, want %q", got, tt.sent)
			}
			if got == "" {
				t.Error("request id header missing")
			}
		})
	}
}

func TestDiscovery(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, DiscoveryPath, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != linkFormatContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{
		`</PIOT/ConstrainedDevice/SensorMsg>;rt="SensorMsg";obs`,
		`</PIOT/ConstrainedDevice/ActuatorCmd>;rt="ActuatorCmd"`,
		`</PIOT/ConstrainedDevice/SystemPerfMsg>;rt="SystemPerfMsg";obs`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("discovery missing %q in %q", want, body)
		}
	}
	if strings.Contains(body, "MgmtStatus") {
		t.Errorf("discovery lists management resources: %q", body)
	}
}

func TestGetResources(t *testing.T) {
	srv, src, _ := testServer(t)

	temp := data.NewSensorData(data.TempSensorType, data.TempSensorName)
	temp.SetValue(21.5)
	src.sensors[temp.Name] = temp

	perf := data.NewSystemPerformanceData()
	perf.CPUUtilization = 12.5
	src.perf = perf

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantName string
	}{
		{"cached sensor", "/PIOT/ConstrainedDevice/SensorMsg/TempSensor", http.StatusOK, data.TempSensorName},
		{"unknown sensor", "/PIOT/ConstrainedDevice/SensorMsg/Nope", http.StatusNotFound, ""},
		{"perf default name", "/PIOT/ConstrainedDevice/SystemPerfMsg", http.StatusOK, data.SystemPerfName},
		{"perf by name", "/PIOT/ConstrainedDevice/SystemPerfMsg/SystemPerfMsg", http.StatusOK, data.SystemPerfName},
		{"no actuator response", "/PIOT/ConstrainedDevice/ActuatorResponse/HvacActuator", http.StatusNotFound, ""},
		{"unrouted", "/PIOT/ConstrainedDevice/UpdateMsg", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantName == "" {
				return
			}
			var base data.BaseIotData
			if err := json.Unmarshal(w.Body.Bytes(), &base); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if base.Name != tt.wantName {
				t.Errorf("name = %q, want %q", base.Name, tt.wantName)
			}
		})
	}
}

func TestActuatorCommand(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		reject   bool
		wantCode int
		wantName string
	}{
		{
			name:     "put executes",
			method:   http.MethodPut,
			path:     "/PIOT/ConstrainedDevice/ActuatorCmd",
			body:     `{"name":"HvacActuator","typeID":1001,"command":1,"value":22.5}`,
			wantCode: http.StatusOK,
			wantName: data.HvacActuatorName,
		},
		{
			name:     "post names from path",
			method:   http.MethodPost,
			path:     "/PIOT/ConstrainedDevice/ActuatorCmd/LedActuator",
			body:     `{"typeID":2001,"command":1,"stateData":"hi"}`,
			wantCode: http.StatusOK,
			wantName: data.LedActuatorName,
		},
		{
			name:     "malformed body",
			method:   http.MethodPut,
			path:     "/PIOT/ConstrainedDevice/ActuatorCmd",
			body:     `[1,2]`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "rejected",
			method:   http.MethodPut,
			path:     "/PIOT/ConstrainedDevice/ActuatorCmd",
			body:     `{"name":"HvacActuator","typeID":1001,"command":1,"isResponse":true}`,
			reject:   true,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "oversized body",
			method:   http.MethodPut,
			path:     "/PIOT/ConstrainedDevice/ActuatorCmd",
			body:     `{"stateData":"` + strings.Repeat("x", maxRequestBodySize) + `"}`,
			wantCode: http.StatusRequestEntityTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, src, _ := testServer(t)
			src.reject = tt.reject

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantName == "" {
				return
			}
			resp, err := data.JSONToActuatorData(w.Body.Bytes())
			if err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if !resp.IsResponse {
				t.Error("IsResponse = false, want true")
			}
			if resp.Name != tt.wantName {
				t.Errorf("name = %q, want %q", resp.Name, tt.wantName)
			}
			if len(src.commands) != 1 {
				t.Errorf("commands executed = %d, want 1", len(src.commands))
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	srv, src, _ := testServer(t)
	src.panicOn = "Boom"

	req := httptest.NewRequest(http.MethodGet, "/PIOT/ConstrainedDevice/SensorMsg/Boom", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestMetrics(t *testing.T) {
	srv, src, _ := testServer(t)
	src.stats = devicedata.Stats{SensorMessages: 3, UpstreamDropped: 1}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var m SystemMetrics
	if err := json.NewDecoder(w.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Manager.SensorMessages != 3 || m.Manager.UpstreamDropped != 1 {
		t.Errorf("manager stats = %+v", m.Manager)
	}
	if m.Runtime.Goroutines == 0 {
		t.Error("goroutines = 0")
	}
	if m.DeviceID != "cda-test" {
		t.Errorf("device_id = %q", m.DeviceID)
	}
}

func dialObserve(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + ObservePrefix + "/" + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestObserve_SensorUpdates(t *testing.T) {
	srv, _, ts := testServer(t)

	all := dialObserve(t, ts, "PIOT/ConstrainedDevice/SensorMsg")
	one := dialObserve(t, ts, "PIOT/ConstrainedDevice/SensorMsg/TempSensor")
	waitForClients(t, srv.Hub(), 2)

	hum := data.NewSensorData(data.HumiditySensorType, data.HumiditySensorName)
	if got := srv.Hub().Notify(data.SensorMsgResource, hum.Name, []byte(`{}`)); got != 1 {
		t.Errorf("Notify(humidity) recipients = %d, want 1", got)
	}

	temp := data.NewSensorData(data.TempSensorType, data.TempSensorName)
	temp.SetValue(19.25)
	if !srv.Hub().OnSensorDataUpdate(temp) {
		t.Fatal("OnSensorDataUpdate() = false")
	}

	// The resource-wide observer sees the humidity frame first.
	//nolint:errcheck // test deadline
	all.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := all.ReadMessage(); err != nil {
		t.Fatalf("read humidity frame: %v", err)
	}

	for _, conn := range []*websocket.Conn{all, one} {
		//nolint:errcheck // test deadline
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		got, err := data.JSONToSensorData(payload)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Name != data.TempSensorName || got.Value != 19.25 {
			t.Errorf("notification = %s", got)
		}
	}
}

func TestObserve_NotObservable(t *testing.T) {
	srv, _, _ := testServer(t)

	for _, path := range []string{
		"/observe/PIOT/ConstrainedDevice/MgmtStatusCmd",
		"/observe/not/a/resource",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, http.StatusNotFound)
		}
	}
}

func TestHub_NilUpdates(t *testing.T) {
	h := NewHub(config.WebSocketConfig{}, testLogger())
	if h.OnSensorDataUpdate(nil) || h.OnSystemPerformanceDataUpdate(nil) || h.OnActuatorResponse(nil) {
		t.Error("nil update accepted")
	}
	if got := h.Notify(data.SensorMsgResource, "x", []byte(`{}`)); got != 0 {
		t.Errorf("Notify() with no clients = %d", got)
	}
}

func TestHub_RunClosesObservers(t *testing.T) {
	srv, _, ts := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	// A second Run on the same hub closes it when ctx ends.
	go srv.Hub().Run(ctx)

	conn := dialObserve(t, ts, "PIOT/ConstrainedDevice/SystemPerfMsg")
	waitForClients(t, srv.Hub(), 1)

	cancel()
	waitForClients(t, srv.Hub(), 0)

	//nolint:errcheck // test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("ReadMessage() after hub shutdown succeeded, want close")
	}
}

func TestStartClose(t *testing.T) {
	srv, err := New(Deps{
		Config:  config.ResourceServerConfig{Host: "127.0.0.1", Port: 0, Timeouts: config.TimeoutConfig{Read: 5, Write: 5, Idle: 5}},
		Source:  newFakeSource(),
		Logger:  testLogger(),
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := srv.HealthCheck(context.Background()); err != ErrNotStarted {
		t.Errorf("HealthCheck() before Start = %v, want %v", err, ErrNotStarted)
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := srv.Start(context.Background()); err != ErrAlreadyStarted {
		t.Errorf("second Start() = %v, want %v", err, ErrAlreadyStarted)
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if srv.Addr() != "" {
		t.Errorf("Addr() after Close = %q", srv.Addr())
	}
}
