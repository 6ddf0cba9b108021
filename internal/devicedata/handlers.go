package devicedata

import (
	"github.com/nerrad567/piot-cda/internal/data"
)

// origin records where a data item entered the manager. Items that came
// from upstream are never sent back upstream.
type origin int

const (
	originLocal origin = iota
	originUpstream
)

// HandleSensorMessage caches a reading, notifies the listener registered
// for its name, applies the on-device trigger rules, and queues the reading
// for upstream when policy allows.
//
// It returns false for a nil reading, or when the listener or a triggered
// command fails. The cache is updated in either case.
func (m *Manager) HandleSensorMessage(d *data.SensorData) bool {
	return m.handleSensor(d, originLocal)
}

func (m *Manager) handleSensor(d *data.SensorData, from origin) bool {
	if d == nil {
		return false
	}
	reading := d.Clone()
	if !m.cache.PutSensor(reading) {
		m.logger.Warn("sensor reading not cached", "name", reading.Name)
		return false
	}
	m.stats.sensorMessages.Add(1)

	ok := true
	if l := m.telemetryListener(reading.Name); l != nil {
		ok = m.notify("telemetry", reading.Name, func() bool {
			return l.OnSensorDataUpdate(reading.Clone())
		})
	}

	if cmd := m.rules.evaluate(reading); cmd != nil {
		m.logger.Info("local trigger fired",
			"sensor", reading.Name,
			"value", reading.Value,
			"actuator", cmd.Name,
			"command", cmd.Command,
			"set_point", cmd.Value,
		)
		if !m.HandleActuatorCommandMessage(cmd) {
			ok = false
		}
	}

	m.enqueue(outbound{
		resource: data.SensorMsgResource,
		name:     reading.Name,
		forward:  from == originLocal && m.forwardSensor(reading) && m.upstreamConnected(),
		sensor:   reading,
	})
	return ok
}

// HandleSystemPerformanceMessage caches a snapshot, notifies the
// performance listener and queues the snapshot for upstream when enabled.
func (m *Manager) HandleSystemPerformanceMessage(d *data.SystemPerformanceData) bool {
	return m.handleSystemPerformance(d, originLocal)
}

func (m *Manager) handleSystemPerformance(d *data.SystemPerformanceData, from origin) bool {
	if d == nil {
		return false
	}
	snapshot := d.Clone()
	if !m.cache.PutSystemPerformance(snapshot) {
		m.logger.Warn("performance snapshot not cached", "name", snapshot.Name)
		return false
	}
	m.stats.perfMessages.Add(1)

	ok := true
	m.listenerMu.RLock()
	l := m.perfListener
	m.listenerMu.RUnlock()
	if l != nil {
		ok = m.notify("system performance", snapshot.Name, func() bool {
			return l.OnSystemPerformanceDataUpdate(snapshot.Clone())
		})
	}

	m.enqueue(outbound{
		resource: data.SystemPerfMsgResource,
		name:     snapshot.Name,
		forward:  from == originLocal && m.cfg.Upstream.ForwardSystemPerformance && m.upstreamConnected(),
		perf:     snapshot,
	})
	return ok
}

// HandleActuatorCommandMessage dispatches a command to its actuator and
// passes the response to HandleActuatorCommandResponse. A command with
// isResponse set is rejected.
//
// An actuation failure is not a handler failure: the error response is
// cached and forwarded like any other.
func (m *Manager) HandleActuatorCommandMessage(cmd *data.ActuatorData) bool {
	resp := m.dispatchCommand(cmd)
	if resp == nil {
		return false
	}
	return m.HandleActuatorCommandResponse(resp)
}

// ExecuteActuatorCommand is HandleActuatorCommandMessage for callers that
// need the response. It returns nil when the command is rejected.
func (m *Manager) ExecuteActuatorCommand(cmd *data.ActuatorData) *data.ActuatorData {
	resp := m.dispatchCommand(cmd)
	if resp == nil {
		return nil
	}
	m.HandleActuatorCommandResponse(resp)
	return resp
}

func (m *Manager) dispatchCommand(cmd *data.ActuatorData) (resp *data.ActuatorData) {
	if cmd == nil {
		return nil
	}
	if cmd.IsResponse {
		m.logger.Warn("rejected actuator command flagged as response", "name", cmd.Name, "type_id", cmd.TypeID)
		return nil
	}
	m.stats.actuatorCommands.Add(1)

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("actuator dispatch panicked", "name", cmd.Name, "panic", r)
			resp = cmd.NewResponse(data.StatusActuationFailed)
		}
	}()
	return m.dispatcher.Dispatch(cmd.Clone())
}

// HandleActuatorCommandResponse caches a response, notifies the response
// listeners and queues it for upstream when a transport is connected.
func (m *Manager) HandleActuatorCommandResponse(resp *data.ActuatorData) bool {
	return m.handleResponse(resp, originLocal)
}

func (m *Manager) handleResponse(resp *data.ActuatorData, from origin) bool {
	if resp == nil || !resp.IsResponse {
		return false
	}
	r := resp.Clone()
	if !m.cache.PutActuatorResponse(r) {
		m.logger.Warn("actuator response not cached", "name", r.Name)
		return false
	}
	m.stats.actuatorResponses.Add(1)

	if from == originUpstream {
		return true
	}
	if r.HasError {
		m.logger.Warn("actuation failed", "name", r.Name, "type_id", r.TypeID, "status_code", r.StatusCode)
	}

	m.listenerMu.RLock()
	listeners := append([]ActuatorResponseListener(nil), m.responseListeners...)
	m.listenerMu.RUnlock()

	ok := true
	for _, l := range listeners {
		if !m.notify("actuator response", r.Name, func() bool {
			return l.OnActuatorResponse(r.Clone())
		}) {
			ok = false
		}
	}

	m.enqueue(outbound{
		resource: data.ActuatorResponseResource,
		name:     r.Name,
		forward:  m.upstreamConnected(),
		actuator: r,
	})
	return ok
}

// HandleIncomingMessage decodes a payload that arrived from upstream and
// routes it by resource. Malformed payloads and unsupported resources are
// logged and rejected.
func (m *Manager) HandleIncomingMessage(resource data.ResourceName, payload []byte) bool {
	ok := m.routeIncoming(resource, payload)
	if ok {
		m.stats.inboundAccepted.Add(1)
	} else {
		m.stats.inboundRejected.Add(1)
	}
	return ok
}

func (m *Manager) routeIncoming(resource data.ResourceName, payload []byte) bool {
	switch resource {
	case data.ActuatorCmdResource:
		cmd, err := data.JSONToActuatorData(payload)
		if err != nil {
			m.logMalformed(resource, err)
			return false
		}
		return m.HandleActuatorCommandMessage(cmd)

	case data.ActuatorResponseResource:
		resp, err := data.JSONToActuatorData(payload)
		if err != nil {
			m.logMalformed(resource, err)
			return false
		}
		return m.handleResponse(resp, originUpstream)

	case data.SensorMsgResource:
		d, err := data.JSONToSensorData(payload)
		if err != nil {
			m.logMalformed(resource, err)
			return false
		}
		return m.handleSensor(d, originUpstream)

	case data.SystemPerfMsgResource:
		d, err := data.JSONToSystemPerformanceData(payload)
		if err != nil {
			m.logMalformed(resource, err)
			return false
		}
		return m.handleSystemPerformance(d, originUpstream)

	case data.MgmtStatusCmdResource:
		return m.handleStatusCommand(payload)

	default:
		m.logger.Debug("unsupported inbound resource", "resource", resource.String())
		return false
	}
}

// handleStatusCommand answers a management status request with the
// device's current state on MgmtStatusMsg.
func (m *Manager) handleStatusCommand(payload []byte) bool {
	if req, err := data.JSONToStatusData(payload); err == nil {
		m.logger.Info("management status requested", "from", req.Name, "state", req.StateData)
	} else {
		m.logger.Info("management status requested", "payload_bytes", len(payload))
	}

	status := data.NewStatusData(m.cfg.Device.ID, data.StateOnline)
	status.LocationID = m.cfg.Device.LocationID
	m.enqueue(outbound{
		resource: data.MgmtStatusMsgResource,
		name:     status.Name,
		forward:  m.upstreamConnected(),
		status:   status,
	})
	return true
}

// GetLatestSensorDataFromCache returns a copy of the latest reading for
// name. An empty or unknown name yields nil.
func (m *Manager) GetLatestSensorDataFromCache(name string) *data.SensorData {
	if name == "" {
		return nil
	}
	return m.cache.GetSensor(name)
}

// GetLatestActuatorResponseFromCache returns a copy of the latest response
// for name. An empty or unknown name yields nil.
func (m *Manager) GetLatestActuatorResponseFromCache(name string) *data.ActuatorData {
	if name == "" {
		return nil
	}
	return m.cache.GetActuatorResponse(name)
}

// GetLatestSystemPerformanceDataFromCache returns a copy of the latest
// snapshot for name. An empty or unknown name yields nil.
func (m *Manager) GetLatestSystemPerformanceDataFromCache(name string) *data.SystemPerformanceData {
	if name == "" {
		return nil
	}
	return m.cache.GetSystemPerformance(name)
}

func (m *Manager) telemetryListener(name string) TelemetryDataListener {
	m.listenerMu.RLock()
	defer m.listenerMu.RUnlock()
	return m.telemetry[name]
}

// notify calls fn, converting a false result or a panic into a logged
// failure.
func (m *Manager) notify(kind, name string, fn func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("listener panicked", "listener", kind, "name", name, "panic", r)
			ok = false
		}
	}()
	if !fn() {
		m.logger.Warn("listener rejected update", "listener", kind, "name", name)
		return false
	}
	return true
}

// forwardSensor applies the "handle on device" gate: temperature readings
// consumed by the HVAC rule stay local unless forwarding is forced.
func (m *Manager) forwardSensor(d *data.SensorData) bool {
	if d.TypeID == data.TempSensorType && m.cfg.Actuation.HandleTempChangeOnDevice {
		return m.cfg.Upstream.ForwardTemperature
	}
	return true
}

func (m *Manager) upstreamConnected() bool {
	return (m.pubsub != nil && m.pubsub.IsConnected()) ||
		(m.reqresp != nil && m.reqresp.IsConnected())
}

func (m *Manager) logMalformed(resource data.ResourceName, err error) {
	m.logger.Warn("dropping malformed inbound payload", "resource", resource.String(), "error", err)
}
