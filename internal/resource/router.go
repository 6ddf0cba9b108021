package resource

import (
	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/piot-cda/internal/data"
)

// ObservePrefix is the path prefix of websocket observe endpoints.
const ObservePrefix = "/observe"

// DiscoveryPath lists the served resources in link format.
const DiscoveryPath = "/.well-known/core"

// buildRouter creates the chi router with middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get(DiscoveryPath, s.handleDiscovery)

	r.Route("/"+data.ProductName+"/"+data.ConstrainedDevice, func(r chi.Router) {
		r.Get("/"+data.SensorMsgResource.Kind()+"/{name}", s.handleGetSensor)

		r.Get("/"+data.SystemPerfMsgResource.Kind(), s.handleGetSystemPerformance)
		r.Get("/"+data.SystemPerfMsgResource.Kind()+"/{name}", s.handleGetSystemPerformance)

		r.Get("/"+data.ActuatorResponseResource.Kind()+"/{name}", s.handleGetActuatorResponse)

		cmd := "/" + data.ActuatorCmdResource.Kind()
		r.Put(cmd, s.handleActuatorCommand)
		r.Post(cmd, s.handleActuatorCommand)
		r.Put(cmd+"/{name}", s.handleActuatorCommand)
		r.Post(cmd+"/{name}", s.handleActuatorCommand)
	})

	r.Get(ObservePrefix+"/*", s.handleObserve)

	if s.history != nil {
		r.Route(HistoryPrefix, s.historyRoutes)
	}

	return r
}
