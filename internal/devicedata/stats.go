package devicedata

import "sync/atomic"

// Stats is a point-in-time copy of the manager's counters.
type Stats struct {
	SensorMessages            uint64 `json:"sensor_messages"`
	SystemPerformanceMessages uint64 `json:"system_performance_messages"`
	ActuatorCommands          uint64 `json:"actuator_commands"`
	ActuatorResponses         uint64 `json:"actuator_responses"`
	UpstreamSent              uint64 `json:"upstream_sent"`
	UpstreamFailed            uint64 `json:"upstream_failed"`
	UpstreamDropped           uint64 `json:"upstream_dropped"`
	InboundAccepted           uint64 `json:"inbound_accepted"`
	InboundRejected           uint64 `json:"inbound_rejected"`
	InboxDropped              uint64 `json:"inbox_dropped"`
	RecorderErrors            uint64 `json:"recorder_errors"`
}

type counters struct {
	sensorMessages    atomic.Uint64
	perfMessages      atomic.Uint64
	actuatorCommands  atomic.Uint64
	actuatorResponses atomic.Uint64
	upstreamSent      atomic.Uint64
	upstreamFailed    atomic.Uint64
	upstreamDropped   atomic.Uint64
	inboundAccepted   atomic.Uint64
	inboundRejected   atomic.Uint64
	recorderErrors    atomic.Uint64
}

// Stats returns the current counters.
func (m *Manager) Stats() Stats {
	return Stats{
		SensorMessages:            m.stats.sensorMessages.Load(),
		SystemPerformanceMessages: m.stats.perfMessages.Load(),
		ActuatorCommands:          m.stats.actuatorCommands.Load(),
		ActuatorResponses:         m.stats.actuatorResponses.Load(),
		UpstreamSent:              m.stats.upstreamSent.Load(),
		UpstreamFailed:            m.stats.upstreamFailed.Load(),
		UpstreamDropped:           m.stats.upstreamDropped.Load(),
		InboundAccepted:           m.stats.inboundAccepted.Load(),
		InboundRejected:           m.stats.inboundRejected.Load(),
		InboxDropped:              m.inbox.Dropped(),
		RecorderErrors:            m.stats.recorderErrors.Load(),
	}
}
