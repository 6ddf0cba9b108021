package resource

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/piot-cda/internal/devicedata"
)

// SystemMetrics is the /metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	DeviceID      string           `json:"device_id"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	Observe       ObserveMetrics   `json:"observe"`
	Upstream      UpstreamMetrics  `json:"upstream"`
	Manager       devicedata.Stats `json:"manager"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// ObserveMetrics contains websocket hub statistics.
type ObserveMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// UpstreamMetrics reports the pub/sub connection.
type UpstreamMetrics struct {
	Connected bool `json:"connected"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		DeviceID:      s.deviceID,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Observe: ObserveMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Manager: s.source.Stats(),
	}
	if s.upstream != nil {
		metrics.Upstream.Connected = s.upstream.IsConnected()
	}

	writeJSON(w, http.StatusOK, metrics)
}
