package resource

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/piot-cda/internal/data"
)

// linkFormatContentType is the media type of the discovery document.
const linkFormatContentType = "application/link-format"

// observable lists the resources that emit observe notifications.
var observable = map[data.ResourceName]bool{
	data.SensorMsgResource:        true,
	data.ActuatorResponseResource: true,
	data.SystemPerfMsgResource:    true,
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"device_id": s.deviceID,
	})
}

// handleDiscovery writes one link per served resource, e.g.
//
//	</PIOT/ConstrainedDevice/SensorMsg>;rt="SensorMsg";obs
func (s *Server) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	served := []data.ResourceName{
		data.SensorMsgResource,
		data.ActuatorCmdResource,
		data.ActuatorResponseResource,
		data.SystemPerfMsgResource,
	}

	links := make([]string, 0, len(served))
	for _, r := range served {
		link := "</" + r.String() + `>;rt="` + r.Kind() + `"`
		if observable[r] {
			link += ";obs"
		}
		links = append(links, link)
	}

	w.Header().Set("Content-Type", linkFormatContentType)
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response
	io.WriteString(w, strings.Join(links, ","))
}

func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d := s.source.GetLatestSensorDataFromCache(name)
	if d == nil {
		writeNotFound(w, "no reading for sensor "+name)
		return
	}
	body, err := data.SensorDataToJSON(d)
	s.writeItem(w, body, err)
}

func (s *Server) handleGetActuatorResponse(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d := s.source.GetLatestActuatorResponseFromCache(name)
	if d == nil {
		writeNotFound(w, "no response for actuator "+name)
		return
	}
	body, err := data.ActuatorDataToJSON(d)
	s.writeItem(w, body, err)
}

func (s *Server) handleGetSystemPerformance(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		name = data.SystemPerfName
	}
	d := s.source.GetLatestSystemPerformanceDataFromCache(name)
	if d == nil {
		writeNotFound(w, "no system performance snapshot")
		return
	}
	body, err := data.SystemPerformanceDataToJSON(d)
	s.writeItem(w, body, err)
}

// handleActuatorCommand executes a command and replies with the actuator
// response. A failed actuation is still a 200: the outcome is carried in the
// response's statusCode.
func (s *Server) handleActuatorCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return
		}
		writeBadRequest(w, "reading request body")
		return
	}

	cmd, err := data.JSONToActuatorData(body)
	if err != nil {
		writeBadRequest(w, "invalid actuator command: "+err.Error())
		return
	}
	if name := chi.URLParam(r, "name"); name != "" && (cmd.Name == "" || cmd.Name == data.NotSet) {
		cmd.SetName(name)
	}

	resp := s.source.ExecuteActuatorCommand(cmd)
	if resp == nil {
		writeError(w, http.StatusUnprocessableEntity, ErrCodeRejected, "actuator command rejected")
		return
	}
	body, err = data.ActuatorDataToJSON(resp)
	s.writeItem(w, body, err)
}

func (s *Server) writeItem(w http.ResponseWriter, body []byte, err error) {
	if err != nil {
		s.logger.Error("encoding resource", "error", err)
		writeInternalError(w, "encoding resource")
		return
	}
	writeRaw(w, http.StatusOK, body)
}
