package resource

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/infrastructure/config"
	"github.com/nerrad567/piot-cda/internal/infrastructure/logging"
)

// Observe defaults used when the websocket config leaves a value unset.
const (
	observeSendBufferSize    = 64
	defaultObservePingSecs   = 30
	defaultObservePongSecs   = 10
	defaultObserveMaxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Hub fans data updates out to websocket observers.
//
// A client observing "PIOT/ConstrainedDevice/SensorMsg" receives every sensor
// update; one observing "PIOT/ConstrainedDevice/SensorMsg/TempSensor" receives
// only that sensor's updates.
//
// Hub implements the Device Data Manager's telemetry, performance and
// actuator response listener interfaces.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*observeClient]struct{}
	mu      sync.RWMutex
	closed  bool
}

type observeClient struct {
	hub  *Hub
	conn *websocket.Conn
	key  string
	send chan []byte
}

// NewHub creates an observe hub. Unset websocket settings take defaults.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultObservePingSecs
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultObservePongSecs
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultObserveMaxMessage
	}
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*observeClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every observer.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OnSensorDataUpdate notifies observers of a sensor reading.
func (h *Hub) OnSensorDataUpdate(d *data.SensorData) bool {
	if d == nil {
		return false
	}
	payload, err := data.SensorDataToJSON(d)
	if err != nil {
		h.logger.Warn("encoding sensor notification", "name", d.Name, "error", err)
		return false
	}
	h.Notify(data.SensorMsgResource, d.Name, payload)
	return true
}

// OnSystemPerformanceDataUpdate notifies observers of a performance snapshot.
func (h *Hub) OnSystemPerformanceDataUpdate(d *data.SystemPerformanceData) bool {
	if d == nil {
		return false
	}
	payload, err := data.SystemPerformanceDataToJSON(d)
	if err != nil {
		h.logger.Warn("encoding performance notification", "error", err)
		return false
	}
	h.Notify(data.SystemPerfMsgResource, d.Name, payload)
	return true
}

// OnActuatorResponse notifies observers of an actuator response.
func (h *Hub) OnActuatorResponse(d *data.ActuatorData) bool {
	if d == nil {
		return false
	}
	payload, err := data.ActuatorDataToJSON(d)
	if err != nil {
		h.logger.Warn("encoding actuator notification", "name", d.Name, "error", err)
		return false
	}
	h.Notify(data.ActuatorResponseResource, d.Name, payload)
	return true
}

// Notify sends payload to every observer of resource or of resource/name.
// It returns the number of observers the payload was queued for.
func (h *Hub) Notify(resource data.ResourceName, name string, payload []byte) int {
	key := resource.String()
	if name != "" {
		key += "/" + name
	}

	h.mu.RLock()
	clients := make([]*observeClient, 0, len(h.clients))
	for c := range h.clients {
		if c.key == key || strings.HasPrefix(key, c.key+"/") {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range clients {
		if c.trySend(payload) {
			sent++
		}
	}
	return sent
}

// register adds a client. It reports false once the hub has shut down.
func (h *Hub) register(c *observeClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Debug("observer connected", "resource", c.key, "clients", len(h.clients))
	return true
}

// unregister removes a client. Only the call that removes the client closes
// its send channel.
func (h *Hub) unregister(c *observeClient) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if existed {
		close(c.send)
		h.logger.Debug("observer disconnected", "resource", c.key)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// handleObserve upgrades GET /observe/<resource path> to a websocket.
func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	resource, name, err := data.SplitResourcePath(path)
	if err != nil || !observable[resource] {
		writeNotFound(w, "resource is not observable: "+path)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("observe upgrade failed", "error", err)
		return
	}

	key := resource.String()
	if name != "" {
		key += "/" + name
	}
	c := &observeClient{
		hub:  s.hub,
		conn: conn,
		key:  key,
		send: make(chan []byte, observeSendBufferSize),
	}
	if !s.hub.register(c) {
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump discards inbound frames and unregisters the client when the
// connection fails.
func (c *observeClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	cfg := c.hub.cfg
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("observer read error", "resource", c.key, "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	}
}

func (c *observeClient) writePump() {
	cfg := c.hub.cfg
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues data without blocking. A full buffer drops the update for
// this client; a closed channel means the client already left.
func (c *observeClient) trySend(msg []byte) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}
