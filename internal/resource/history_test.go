package resource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/infrastructure/config"
)

type fakeHistory struct {
	lastName  string
	lastLimit int
	fail      bool
}

var errHistoryFailed = errors.New("history failed")

func (h *fakeHistory) SensorHistory(_ context.Context, name string, limit int) ([]*data.SensorData, error) {
	h.lastName, h.lastLimit = name, limit
	if h.fail {
		return nil, errHistoryFailed
	}
	d := data.NewSensorData(data.TempSensorType, name)
	d.SetValue(20)
	return []*data.SensorData{d}, nil
}

func (h *fakeHistory) ActuatorHistory(_ context.Context, name string, limit int) ([]*data.ActuatorData, error) {
	h.lastName, h.lastLimit = name, limit
	if h.fail {
		return nil, errHistoryFailed
	}
	return nil, nil
}

func (h *fakeHistory) SystemPerformanceHistory(_ context.Context, limit int) ([]*data.SystemPerformanceData, error) {
	h.lastLimit = limit
	if h.fail {
		return nil, errHistoryFailed
	}
	return []*data.SystemPerformanceData{data.NewSystemPerformanceData(), data.NewSystemPerformanceData()}, nil
}

func historyServer(t *testing.T, h History) http.Handler {
	t.Helper()
	srv, err := New(Deps{
		Config:  config.ResourceServerConfig{Host: "127.0.0.1"},
		Source:  newFakeSource(),
		Logger:  testLogger(),
		History: h,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv.Handler()
}

func TestHistoryEndpoints(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		fail      bool
		wantCode  int
		wantCount int
		wantName  string
		wantLimit int
	}{
		{"sensor", "/history/SensorMsg/TempSensor?limit=5", false, http.StatusOK, 1, "TempSensor", 5},
		{"sensor default limit", "/history/SensorMsg/TempSensor", false, http.StatusOK, 1, "TempSensor", 0},
		{"actuator empty", "/history/ActuatorResponse/HvacActuator", false, http.StatusOK, 0, "HvacActuator", 0},
		{"performance", "/history/SystemPerfMsg?limit=2", false, http.StatusOK, 2, "", 2},
		{"bad limit", "/history/SensorMsg/TempSensor?limit=abc", false, http.StatusBadRequest, 0, "", 0},
		{"negative limit", "/history/SystemPerfMsg?limit=-1", false, http.StatusBadRequest, 0, "", 0},
		{"store failure", "/history/SensorMsg/TempSensor", true, http.StatusInternalServerError, 0, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHistory{fail: tt.fail}
			rec := httptest.NewRecorder()
			historyServer(t, h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var body struct {
				Count int               `json:"count"`
				Items []json.RawMessage `json:"items"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body.Count != tt.wantCount || len(body.Items) != tt.wantCount {
				t.Errorf("count = %d/%d items, want %d", body.Count, len(body.Items), tt.wantCount)
			}
			if body.Items == nil {
				t.Error("items is null, want an array")
			}
			if tt.wantName != "" && h.lastName != tt.wantName {
				t.Errorf("name = %q, want %q", h.lastName, tt.wantName)
			}
			if h.lastLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", h.lastLimit, tt.wantLimit)
			}
		})
	}
}

func TestHistoryEndpoints_DisabledWithoutStore(t *testing.T) {
	rec := httptest.NewRecorder()
	historyServer(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history/SystemPerfMsg", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
