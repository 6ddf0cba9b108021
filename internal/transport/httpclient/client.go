package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/infrastructure/config"
	"github.com/nerrad567/piot-cda/internal/transport"
)

// Request tuning.
const (
	// RequestIDHeader carries the per-request token.
	RequestIDHeader = "X-Request-ID"

	// DiscoveryPath is the resource directory path.
	DiscoveryPath = "/.well-known/core"

	// ObservePrefix is prepended to a resource path to observe it.
	ObservePrefix = "/observe"

	defaultTimeout        = 5 * time.Second
	initialRetryInterval  = 100 * time.Millisecond
	maxRetryInterval      = 2 * time.Second
	maxResponseBodyBytes  = 1 << 20
	observeMaxMessageSize = 1 << 16
)

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

// Options configures a Client.
type Options struct {
	Config     config.RequestResponseConfig
	Logger     Logger
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// Client is a transport.RequestResponseClient over HTTP.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
	logger Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.RWMutex
	listener  transport.MessageListener
	connected bool
	closed    bool
	observers map[string]*observer
}

var _ transport.RequestResponseClient = (*Client)(nil)

// New creates a client for the peer at opts.Config.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.Config.BaseURL, "/"))
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, opts.Config.BaseURL)
	}

	c := &Client{
		base:      base,
		http:      opts.HTTPClient,
		dialer:    opts.Dialer,
		logger:    opts.Logger,
		observers: make(map[string]*observer),
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.dialer == nil {
		c.dialer = websocket.DefaultDialer
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
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

// IsConnected reports whether the last exchange with the peer succeeded.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && !c.closed
}

// Discover fetches the peer's resource directory. Success marks the client
// connected. Discover after Disconnect reopens the client, so a stopped
// manager can start it again.
func (c *Client) Discover(timeout time.Duration) bool {
	c.reopen()
	body, err := c.exchange(http.MethodGet, c.base.String()+DiscoveryPath, nil, true, timeout)
	if err != nil {
		c.logger.Warn("resource discovery failed", "url", c.base.String(), "error", err)
		return false
	}
	c.logger.Info("resources discovered", "url", c.base.String(), "links", strings.Count(string(body), "<"))
	return true
}

// Get fetches a resource; the body is delivered to the listener.
func (c *Client) Get(resource data.ResourceName, name string, confirmable bool, timeout time.Duration) bool {
	return c.request(http.MethodGet, resource, name, nil, confirmable, timeout)
}

// Put replaces a resource.
func (c *Client) Put(resource data.ResourceName, name string, payload []byte, confirmable bool, timeout time.Duration) bool {
	return c.request(http.MethodPut, resource, name, payload, confirmable, timeout)
}

// Post sends a payload to a resource.
func (c *Client) Post(resource data.ResourceName, name string, payload []byte, confirmable bool, timeout time.Duration) bool {
	return c.request(http.MethodPost, resource, name, payload, confirmable, timeout)
}

// Delete removes a resource.
func (c *Client) Delete(resource data.ResourceName, name string, confirmable bool, timeout time.Duration) bool {
	return c.request(http.MethodDelete, resource, name, nil, confirmable, timeout)
}

// Disconnect stops every observer, cancels background requests and waits
// for them to finish. It is safe to call more than once.
func (c *Client) Disconnect() bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return true
	}
	c.closed = true
	c.connected = false
	observers := c.observers
	c.observers = make(map[string]*observer)
	cancel := c.cancel
	c.mu.Unlock()

	for _, o := range observers {
		o.stop()
	}
	cancel()
	c.wg.Wait()
	return true
}

// reopen gives a disconnected client a fresh lifetime context.
func (c *Client) reopen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		return
	}
	c.closed = false
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.logger.Debug("request/response client reopened", "url", c.base.String())
}

// lifetime returns the context that Disconnect cancels.
func (c *Client) lifetime() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx
}

// ResourceURL returns the URL of resource/name on the peer.
func (c *Client) ResourceURL(resource data.ResourceName, name string) string {
	u := c.base.String() + "/" + resource.String()
	if name != "" {
		u += "/" + url.PathEscape(name)
	}
	return u
}

func (c *Client) request(method string, resource data.ResourceName, name string, payload []byte, confirmable bool, timeout time.Duration) bool {
	if !resource.Valid() {
		c.logger.Warn("request for unknown resource", "method", method, "resource", resource)
		return false
	}
	if c.isClosed() {
		return false
	}

	target := c.ResourceURL(resource, name)
	deliver := func(body []byte) {
		if method == http.MethodGet && len(body) > 0 {
			c.deliver(resource, body)
		}
	}

	if !confirmable {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			body, err := c.exchange(method, target, payload, false, timeout)
			if err != nil {
				c.logger.Debug("non-confirmable request failed", "method", method, "url", target, "error", err)
				return
			}
			deliver(body)
		}()
		return true
	}

	body, err := c.exchange(method, target, payload, true, timeout)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "url", target, "error", err)
		return false
	}
	deliver(body)
	return true
}

// exchange performs one request, retrying transient failures when
// confirmable is set.
func (c *Client) exchange(method, target string, payload []byte, confirmable bool, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(c.lifetime(), timeout)
	defer cancel()

	var body []byte
	attempt := func() error {
		b, err := c.do(ctx, method, target, payload)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	var err error
	if confirmable {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initialRetryInterval
		b.MaxInterval = maxRetryInterval
		b.MaxElapsedTime = timeout
		err = backoff.Retry(attempt, backoff.WithContext(b, ctx))
	} else {
		err = attempt()
	}

	c.mu.Lock()
	if !c.closed {
		c.connected = err == nil || errors.Is(err, ErrUnexpectedStatus)
	}
	c.mu.Unlock()

	return body, err
}

// do sends a single request. Client errors are marked permanent so they are
// not retried.
func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	}
}

func (c *Client) deliver(resource data.ResourceName, payload []byte) {
	c.mu.RLock()
	l := c.listener
	c.mu.RUnlock()

	if l == nil {
		return
	}
	if !l.HandleIncomingMessage(resource, payload) {
		c.logger.Debug("listener rejected payload", "resource", resource.String())
	}
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
