package resource

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/piot-cda/internal/data"
)

// HistoryPrefix is the path prefix of the local history endpoints.
const HistoryPrefix = "/history"

// History is the read side of the local history store.
type History interface {
	SensorHistory(ctx context.Context, name string, limit int) ([]*data.SensorData, error)
	ActuatorHistory(ctx context.Context, name string, limit int) ([]*data.ActuatorData, error)
	SystemPerformanceHistory(ctx context.Context, limit int) ([]*data.SystemPerformanceData, error)
}

func (s *Server) historyRoutes(r chi.Router) {
	r.Get("/"+data.SensorMsgResource.Kind()+"/{name}", s.handleSensorHistory)
	r.Get("/"+data.ActuatorResponseResource.Kind()+"/{name}", s.handleActuatorHistory)
	r.Get("/"+data.SystemPerfMsgResource.Kind(), s.handleSystemPerformanceHistory)
}

// parseLimit reads the optional ?limit= query parameter. Zero lets the
// store apply its default.
func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (s *Server) handleSensorHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	items, err := s.history.SensorHistory(r.Context(), chi.URLParam(r, "name"), limit)
	writeHistoryItems(s, w, items, err)
}

func (s *Server) handleActuatorHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	items, err := s.history.ActuatorHistory(r.Context(), chi.URLParam(r, "name"), limit)
	writeHistoryItems(s, w, items, err)
}

func (s *Server) handleSystemPerformanceHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	items, err := s.history.SystemPerformanceHistory(r.Context(), limit)
	writeHistoryItems(s, w, items, err)
}

func writeHistoryItems[T any](s *Server, w http.ResponseWriter, items []T, err error) {
	if err != nil {
		s.logger.Error("reading history", "error", err)
		writeInternalError(w, "reading history")
		return
	}
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(items),
		"items": items,
	})
}
