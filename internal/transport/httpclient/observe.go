package httpclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/piot-cda/internal/data"
)

// observer is one websocket observe session.
type observer struct {
	key    string
	conn   *websocket.Conn
	cancel context.CancelFunc
	once   sync.Once
}

func (o *observer) stop() {
	o.once.Do(func() {
		o.cancel()
		_ = o.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		o.conn.Close()
	})
}

func observeKey(resource data.ResourceName, name string) string {
	if name == "" {
		return resource.String()
	}
	return resource.String() + "/" + name
}

// observeURL maps the base URL to ws(s)://host/observe/<resource>[/<name>].
func (c *Client) observeURL(resource data.ResourceName, name string) string {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = u.Path + ObservePrefix + "/" + observeKey(resource, name)
	return u.String()
}

// StartObserve subscribes to change notifications for resource/name. A
// second call for the same resource is a no-op that returns true. With
// ttl > 0 the observation ends on its own after ttl.
func (c *Client) StartObserve(resource data.ResourceName, name string, ttl time.Duration) bool {
	if !resource.Valid() || c.isClosed() {
		return false
	}

	key := observeKey(resource, name)

	c.mu.RLock()
	_, exists := c.observers[key]
	c.mu.RUnlock()
	if exists {
		return true
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	parent := c.lifetime()
	if ttl > 0 {
		ctx, cancel = context.WithTimeout(parent, ttl)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	header := http.Header{}
	header.Set(RequestIDHeader, uuid.NewString())

	dialCtx, dialCancel := context.WithTimeout(ctx, defaultTimeout)
	conn, _, err := c.dialer.DialContext(dialCtx, c.observeURL(resource, name), header)
	dialCancel()
	if err != nil {
		cancel()
		c.logger.Warn("observe failed", "resource", key, "error", err)
		return false
	}
	conn.SetReadLimit(observeMaxMessageSize)

	o := &observer{key: key, conn: conn, cancel: cancel}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		o.stop()
		return false
	}
	if _, dup := c.observers[key]; dup {
		c.mu.Unlock()
		o.stop()
		return true
	}
	c.observers[key] = o
	c.mu.Unlock()

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		<-ctx.Done()
		o.stop()
	}()
	go func() {
		defer c.wg.Done()
		c.readObserve(resource, o)
	}()

	c.logger.Info("observe started", "resource", key, "ttl", ttl)
	return true
}

// StopObserve ends the observation of resource/name. Stopping an unknown
// observation returns false.
func (c *Client) StopObserve(resource data.ResourceName, name string) bool {
	key := observeKey(resource, name)

	c.mu.Lock()
	o, ok := c.observers[key]
	delete(c.observers, key)
	c.mu.Unlock()

	if !ok {
		return false
	}
	o.stop()
	c.logger.Info("observe stopped", "resource", key)
	return true
}

// Observing reports whether resource/name is being observed.
func (c *Client) Observing(resource data.ResourceName, name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.observers[observeKey(resource, name)]
	return ok
}

func (c *Client) readObserve(resource data.ResourceName, o *observer) {
	defer func() {
		o.stop()
		c.mu.Lock()
		if c.observers[o.key] == o {
			delete(c.observers, o.key)
		}
		c.mu.Unlock()
	}()

	for {
		msgType, payload, err := o.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("observe closed", "resource", o.key, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		c.deliver(resource, payload)
	}
}
