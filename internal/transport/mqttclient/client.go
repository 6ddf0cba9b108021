// Package mqttclient implements transport.PubSubClient over the MQTT
// infrastructure client.
package mqttclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/infrastructure/config"
	"github.com/nerrad567/piot-cda/internal/infrastructure/mqtt"
	"github.com/nerrad567/piot-cda/internal/transport"
)

// ErrRejected is returned to the MQTT layer when the listener refuses a
// message, so that the refusal is logged there.
var ErrRejected = errors.New("mqttclient: message rejected by listener")

// Logger is the logging interface used by the adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broker is the subset of *mqtt.Client the adapter uses.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
	Close() error
}

// DialFunc opens a broker connection.
type DialFunc func(ctx context.Context, clientID string) (Broker, error)

// Options configures a Client.
type Options struct {
	Config   config.MQTTConfig
	DeviceID string
	Logger   Logger

	// Dial replaces the real broker connection. Used by tests.
	Dial DialFunc
}

// Client is a transport.PubSubClient backed by MQTT.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	clientID string
	qos      byte
	dial     DialFunc
	logger   Logger

	mu       sync.RWMutex
	conn     Broker
	listener transport.MessageListener
	subs     map[data.ResourceName]byte
}

var _ transport.PubSubClient = (*Client)(nil)

// New creates a disconnected client.
//
// The MQTT client ID is mqtt.broker.client_id when set, otherwise the device
// ID with a random suffix so that two agents on one device never collide.
func New(opts Options) *Client {
	clientID := opts.Config.Broker.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("%s-%s", opts.DeviceID, uuid.NewString()[:8])
	}

	c := &Client{
		clientID: clientID,
		qos:      transport.ClampQoS(byte(opts.Config.QoS)),
		dial:     opts.Dial,
		logger:   opts.Logger,
		subs:     make(map[data.ResourceName]byte),
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	if c.dial == nil {
		cfg := opts.Config
		deviceID := opts.DeviceID
		logger := c.logger
		c.dial = func(ctx context.Context, clientID string) (Broker, error) {
			client, err := mqtt.Connect(ctx, cfg, clientID, deviceID)
			if err != nil {
				return nil, err
			}
			client.SetLogger(logger)
			return client, nil
		}
	}
	return c
}

// ClientID returns the MQTT client ID.
func (c *Client) ClientID() string {
	return c.clientID
}

// DefaultQoS returns the configured QoS.
func (c *Client) DefaultQoS() byte {
	return c.qos
}

// Connect opens the broker connection and restores earlier subscriptions.
// Connecting an already connected client returns true.
func (c *Client) Connect(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.conn.IsConnected() {
		return true
	}

	conn, err := c.dial(ctx, c.clientID)
	if err != nil {
		c.logger.Warn("mqtt connect failed", "client_id", c.clientID, "error", err)
		return false
	}
	c.conn = conn
	c.logger.Info("mqtt connected", "client_id", c.clientID)

	for r, qos := range c.subs {
		if err := conn.Subscribe(r.String(), qos, c.handleMessage); err != nil {
			c.logger.Warn("mqtt resubscribe failed", "topic", r.String(), "error", err)
		}
	}
	return true
}

// Disconnect closes the connection. It is safe to call when disconnected.
func (c *Client) Disconnect() bool {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return true
	}
	if err := conn.Close(); err != nil {
		c.logger.Warn("mqtt disconnect failed", "error", err)
		return false
	}
	c.logger.Info("mqtt disconnected", "client_id", c.clientID)
	return true
}

// IsConnected reports whether the broker link is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// Publish sends payload on the resource's topic.
func (c *Client) Publish(resource data.ResourceName, payload []byte, qos byte) bool {
	if !resource.Valid() {
		c.logger.Warn("mqtt publish to unknown resource", "resource", resource)
		return false
	}

	conn := c.connection()
	if conn == nil {
		return false
	}

	if err := conn.Publish(resource.String(), payload, transport.ClampQoS(qos), false); err != nil {
		c.logger.Warn("mqtt publish failed", "topic", resource.String(), "error", err)
		return false
	}
	return true
}

// Subscribe starts delivering messages on the resource's topic to the
// listener. The subscription is remembered across Disconnect/Connect.
func (c *Client) Subscribe(resource data.ResourceName, qos byte) bool {
	if !resource.Valid() {
		return false
	}

	conn := c.connection()
	if conn == nil {
		return false
	}

	qos = transport.ClampQoS(qos)
	if err := conn.Subscribe(resource.String(), qos, c.handleMessage); err != nil {
		c.logger.Warn("mqtt subscribe failed", "topic", resource.String(), "error", err)
		return false
	}

	c.mu.Lock()
	c.subs[resource] = qos
	c.mu.Unlock()
	return true
}

// Unsubscribe stops delivery for the resource's topic.
func (c *Client) Unsubscribe(resource data.ResourceName) bool {
	if !resource.Valid() {
		return false
	}

	c.mu.Lock()
	delete(c.subs, resource)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil || !conn.IsConnected() {
		return false
	}
	if err := conn.Unsubscribe(resource.String()); err != nil {
		c.logger.Warn("mqtt unsubscribe failed", "topic", resource.String(), "error", err)
		return false
	}
	return true
}

// SetMessageListener registers the inbound listener. A nil listener is
// ignored and reported as false.
func (c *Client) SetMessageListener(l transport.MessageListener) bool {
	if l == nil {
		return false
	}
	c.mu.Lock()
	c.listener = l
	c.mu.Unlock()
	return true
}

func (c *Client) connection() Broker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil || !c.conn.IsConnected() {
		return nil
	}
	return c.conn
}

// handleMessage routes a received MQTT message to the listener.
func (c *Client) handleMessage(topic string, payload []byte) error {
	resource, err := mqtt.Topics{}.ParseTopic(topic)
	if err != nil {
		return err
	}

	c.mu.RLock()
	l := c.listener
	c.mu.RUnlock()

	if l == nil {
		c.logger.Debug("mqtt message without listener", "topic", topic)
		return nil
	}
	if !l.HandleIncomingMessage(resource, payload) {
		return fmt.Errorf("%w: %s", ErrRejected, topic)
	}
	return nil
}
