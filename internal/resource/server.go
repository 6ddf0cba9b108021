package resource

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/devicedata"
	"github.com/nerrad567/piot-cda/internal/infrastructure/config"
	"github.com/nerrad567/piot-cda/internal/infrastructure/logging"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// DataSource is the view of the Device Data Manager the server needs.
type DataSource interface {
	GetLatestSensorDataFromCache(name string) *data.SensorData
	GetLatestActuatorResponseFromCache(name string) *data.ActuatorData
	GetLatestSystemPerformanceDataFromCache(name string) *data.SystemPerformanceData
	ExecuteActuatorCommand(cmd *data.ActuatorData) *data.ActuatorData
	Stats() devicedata.Stats
}

// ConnectionStatus reports whether an upstream channel is connected.
type ConnectionStatus interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the resource server.
type Deps struct {
	Config   config.ResourceServerConfig
	Source   DataSource
	Logger   *logging.Logger
	Upstream ConnectionStatus // optional
	History  History          // optional; enables /history
	DeviceID string
	Version  string
}

// Server serves cached device data and observe notifications.
//
// Thread Safety: All methods are safe for concurrent use.
type Server struct {
	cfg       config.ResourceServerConfig
	source    DataSource
	logger    *logging.Logger
	upstream  ConnectionStatus
	history   History
	deviceID  string
	version   string
	hub       *Hub
	startTime time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a resource server. The hub exists from construction so it can
// be registered as a listener before Start.
//
// Parameters:
//   - deps: Required dependencies (config, data source, logger)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If a required dependency is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, ErrNilLogger
	}
	if deps.Source == nil {
		return nil, ErrNilSource
	}
	logger := deps.Logger.With("component", "resource")
	return &Server{
		cfg:       deps.Config,
		source:    deps.Source,
		logger:    logger,
		upstream:  deps.Upstream,
		history:   deps.History,
		deviceID:  deps.DeviceID,
		version:   deps.Version,
		hub:       NewHub(deps.Config.WebSocket, logger),
		startTime: time.Now(),
	}, nil
}

// Hub returns the observe hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the routed handler without binding a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in the background until Close.
//
// Returns:
//   - error: If the address cannot be bound or the server is already started
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return ErrAlreadyStarted
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("resource: listening on %s: %w", addr, err)
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}
	s.listener = ln
	s.done = make(chan struct{})

	srv := s.server
	done := s.done
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("resource server error", "error", err)
		}
	}()

	s.logger.Info("resource server started", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops the hub and shuts the listener down gracefully. It is safe to
// call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, cancel, done := s.server, s.cancel, s.done
	s.server, s.cancel, s.listener = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()
	err := srv.Shutdown(ctx)
	<-done
	if err != nil {
		return fmt.Errorf("resource: shutdown: %w", err)
	}
	s.logger.Info("resource server stopped")
	return nil
}

// HealthCheck reports whether the server is serving.
func (s *Server) HealthCheck(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return ErrNotStarted
	}
	return nil
}
