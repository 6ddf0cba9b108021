package devicedata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/piot-cda/internal/cache"
	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/infrastructure/config"
	"github.com/nerrad567/piot-cda/internal/scheduler"
	"github.com/nerrad567/piot-cda/internal/sensing"
	"github.com/nerrad567/piot-cda/internal/sim"
	"github.com/nerrad567/piot-cda/internal/sysperf"
	"github.com/nerrad567/piot-cda/internal/transport"
)

const (
	defaultQueueSize = 64

	// pruneInterval is how often recorded history is trimmed to the
	// retention window.
	pruneInterval = time.Hour
)

// Options configures a Manager. Only Dispatcher is required.
type Options struct {
	// Config is read once at construction. Defaults to config.Default().
	Config *config.Config

	// Dispatcher executes actuator commands.
	Dispatcher Dispatcher

	// Sensors are polled every sensor interval. No sensors, no sensor poller.
	Sensors []sim.Sensor

	// Collectors build one performance snapshot every performance interval.
	// No collectors, no performance poller.
	Collectors []sysperf.Collector

	// PubSub and RequestResponse are the optional upstream transports.
	PubSub          transport.PubSubClient
	RequestResponse transport.RequestResponseClient

	// Recorders receive every cached item.
	Recorders []Recorder

	// Pruner trims history when database.retention_hours is positive.
	Pruner Pruner

	Cache  *cache.Cache
	Clock  scheduler.Clock
	Logger Logger
}

// Manager is the Device Data Manager.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - The cache and listener registries are guarded; handlers may be called
//     from pollers, the inbox goroutine and HTTP handlers at once.
type Manager struct {
	cfg        *config.Config
	logger     Logger
	cache      *cache.Cache
	dispatcher Dispatcher
	pubsub     transport.PubSubClient
	reqresp    transport.RequestResponseClient
	recorders  []Recorder
	inbox      *transport.Inbox
	queue      *outboundQueue
	stats      counters

	// derived settings
	qos            byte
	confirmable    bool
	sendTimeout    time.Duration
	requestTimeout time.Duration

	sensing     *sensing.Manager
	sysperf     *sysperf.Manager
	pruneRunner *scheduler.Runner

	listenerMu        sync.RWMutex
	telemetry         map[string]TelemetryDataListener
	perfListener      SystemPerformanceDataListener
	responseListeners []ActuatorResponseListener

	rules *triggerRules

	lifecycleMu sync.Mutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewManager creates a stopped manager.
//
// Parameters:
//   - opts: Dependencies; see Options
//
// Returns:
//   - *Manager: Ready to Start
//   - error: ErrNilDispatcher, or a poller construction error
func NewManager(opts Options) (*Manager, error) {
	if opts.Dispatcher == nil {
		return nil, ErrNilDispatcher
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	m := &Manager{
		cfg:            cfg,
		logger:         opts.Logger,
		cache:          opts.Cache,
		dispatcher:     opts.Dispatcher,
		pubsub:         opts.PubSub,
		reqresp:        opts.RequestResponse,
		recorders:      opts.Recorders,
		inbox:          transport.NewInbox(cfg.Upstream.InboxSize),
		queue:          newOutboundQueue(cfg.Upstream.QueueSize),
		qos:            transport.ClampQoS(byte(max(cfg.MQTT.QoS, 0))),
		confirmable:    cfg.RequestResponse.Confirmable,
		sendTimeout:    cfg.SendTimeout(),
		requestTimeout: cfg.RequestTimeout(),
		telemetry:      make(map[string]TelemetryDataListener),
		rules:          newTriggerRules(cfg.Actuation),
	}
	if m.logger == nil {
		m.logger = noopLogger{}
	}
	if m.cache == nil {
		m.cache = cache.New()
	}

	if len(opts.Sensors) > 0 {
		sm, err := sensing.NewManager(sensing.Options{
			Interval:   cfg.SensorPollInterval(),
			LocationID: cfg.Device.LocationID,
			Clock:      opts.Clock,
			Logger:     m.logger,
		}, m, opts.Sensors...)
		if err != nil {
			return nil, fmt.Errorf("creating sensor poller: %w", err)
		}
		m.sensing = sm
	}

	if len(opts.Collectors) > 0 {
		pm, err := sysperf.NewManager(sysperf.Options{
			Interval:   cfg.SystemPerfPollInterval(),
			LocationID: cfg.Device.LocationID,
			Clock:      opts.Clock,
			Logger:     m.logger,
		}, m, opts.Collectors...)
		if err != nil {
			return nil, fmt.Errorf("creating performance poller: %w", err)
		}
		m.sysperf = pm
	}

	if opts.Pruner != nil && cfg.Retention() > 0 {
		clock := opts.Clock
		if clock == nil {
			clock = scheduler.RealClock()
		}
		pruner, retention := opts.Pruner, cfg.Retention()
		runner, err := scheduler.NewRunner(scheduler.Options{
			Name:     "history-prune",
			Interval: pruneInterval,
			Clock:    clock,
			Logger:   m.logger,
		}, func(ctx context.Context) error {
			n, err := pruner.Prune(ctx, clock.Now().Add(-retention))
			if err != nil {
				return err
			}
			if n > 0 {
				m.logger.Info("history pruned", "rows", n)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("creating prune runner: %w", err)
		}
		m.pruneRunner = runner
	}

	return m, nil
}

// Start connects the upstream transports and starts the workers and
// pollers. A second Start logs a warning and returns nil.
//
// It performs:
//  1. Starts the inbox drain and upstream worker goroutines
//  2. Registers the inbox with each transport and connects them concurrently
//  3. Starts the sensor, performance and prune runners
//
// A transport that fails to connect is logged and left disconnected; the
// device keeps operating locally.
//
// Returns:
//   - error: ErrListenerRegistration, or a poller start error
func (m *Manager) Start(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if m.running {
		m.logger.Warn("device data manager already started")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)

	// Workers first, so nothing delivered during connect is lost
	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.drainInbox(runCtx)
	}()
	go func() {
		defer m.wg.Done()
		m.runUpstream(runCtx)
	}()

	if err := m.connectTransports(runCtx); err != nil {
		m.disconnectTransports()
		cancel()
		m.wg.Wait()
		return err
	}

	if err := m.startPollers(runCtx); err != nil {
		m.stopPollers()
		m.disconnectTransports()
		cancel()
		m.wg.Wait()
		return err
	}

	m.cancel = cancel
	m.running = true
	m.logger.Info("device data manager started",
		"device_id", m.cfg.Device.ID,
		"sensor_poller", m.sensing != nil,
		"performance_poller", m.sysperf != nil,
		"pubsub", m.pubsub != nil,
		"request_response", m.reqresp != nil,
	)
	return nil
}

// Stop stops the pollers and observers, disconnects the transports, and
// waits for the workers to exit. Safe to call more than once.
func (m *Manager) Stop() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if !m.running {
		return
	}
	m.running = false

	// Pollers before transports: no new items once the links go down
	m.stopPollers()
	m.disconnectTransports()
	m.cancel()
	m.cancel = nil
	m.wg.Wait()

	m.logger.Info("device data manager stopped")
}

// IsRunning reports whether the manager has been started and not stopped.
func (m *Manager) IsRunning() bool {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	return m.running
}

// SensorRunner returns the sensor poll runner, or nil without sensors.
func (m *Manager) SensorRunner() *scheduler.Runner {
	if m.sensing == nil {
		return nil
	}
	return m.sensing.Runner()
}

// SystemPerformanceRunner returns the performance poll runner, or nil
// without collectors.
func (m *Manager) SystemPerformanceRunner() *scheduler.Runner {
	if m.sysperf == nil {
		return nil
	}
	return m.sysperf.Runner()
}

// Inbox returns the queue transports deliver inbound messages to.
func (m *Manager) Inbox() *transport.Inbox {
	return m.inbox
}

func (m *Manager) startPollers(ctx context.Context) error {
	if m.sensing != nil {
		if err := m.sensing.Start(ctx); err != nil {
			return fmt.Errorf("starting sensor poller: %w", err)
		}
	}
	if m.sysperf != nil {
		if err := m.sysperf.Start(ctx); err != nil {
			return fmt.Errorf("starting performance poller: %w", err)
		}
	}
	if m.pruneRunner != nil {
		if err := m.pruneRunner.Start(ctx); err != nil {
			return fmt.Errorf("starting prune runner: %w", err)
		}
	}
	return nil
}

func (m *Manager) stopPollers() {
	if m.sensing != nil {
		m.sensing.Stop()
	}
	if m.sysperf != nil {
		m.sysperf.Stop()
	}
	if m.pruneRunner != nil {
		m.pruneRunner.Stop()
	}
}

// inboundSubscriptions are the resources the device accepts from upstream.
var inboundSubscriptions = []data.ResourceName{
	data.ActuatorCmdResource,
	data.MgmtStatusCmdResource,
}

// connectTransports connects both transports concurrently.
func (m *Manager) connectTransports(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if m.pubsub != nil {
		g.Go(func() error {
			if !m.pubsub.SetMessageListener(m.inbox) {
				return fmt.Errorf("%w: pub/sub", ErrListenerRegistration)
			}
			if !m.pubsub.Connect(gctx) {
				m.logger.Warn("pub/sub connect failed, continuing without it")
				return nil
			}
			for _, r := range inboundSubscriptions {
				if !m.pubsub.Subscribe(r, m.qos) {
					m.logger.Warn("pub/sub subscribe failed", "topic", r.String())
				}
			}
			return nil
		})
	}

	if m.reqresp != nil {
		g.Go(func() error {
			if !m.reqresp.SetMessageListener(m.inbox) {
				return fmt.Errorf("%w: request/response", ErrListenerRegistration)
			}
			timeout := time.Duration(m.cfg.RequestResponse.DiscoveryTimeoutSecs) * time.Second
			if !m.reqresp.Discover(timeout) {
				m.logger.Warn("request/response discovery failed, continuing without it")
				return nil
			}
			if !m.reqresp.StartObserve(data.ActuatorCmdResource, "", m.cfg.ObserveTTL()) {
				m.logger.Warn("observe failed", "resource", data.ActuatorCmdResource.String())
			}
			return nil
		})
	}

	return g.Wait()
}

func (m *Manager) disconnectTransports() {
	if m.reqresp != nil {
		m.reqresp.StopObserve(data.ActuatorCmdResource, "")
		if !m.reqresp.Disconnect() {
			m.logger.Warn("request/response disconnect failed")
		}
	}
	if m.pubsub != nil {
		if m.pubsub.IsConnected() {
			for _, r := range inboundSubscriptions {
				m.pubsub.Unsubscribe(r)
			}
		}
		if !m.pubsub.Disconnect() {
			m.logger.Warn("pub/sub disconnect failed")
		}
	}
}

// drainInbox hands queued inbound messages to HandleIncomingMessage.
func (m *Manager) drainInbox(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.inbox.C():
			m.HandleIncomingMessage(msg.Resource, msg.Payload)
		}
	}
}

// SetTelemetryDataListener registers l for readings named name, replacing
// any previous listener. A nil listener or empty name is ignored and
// reported as false.
func (m *Manager) SetTelemetryDataListener(name string, l TelemetryDataListener) bool {
	if name == "" || l == nil {
		return false
	}
	m.listenerMu.Lock()
	m.telemetry[name] = l
	m.listenerMu.Unlock()
	return true
}

// SetSystemPerformanceDataListener registers l for performance snapshots,
// replacing any previous listener. A nil listener is ignored.
func (m *Manager) SetSystemPerformanceDataListener(l SystemPerformanceDataListener) bool {
	if l == nil {
		return false
	}
	m.listenerMu.Lock()
	m.perfListener = l
	m.listenerMu.Unlock()
	return true
}

// AddActuatorResponseListener adds l to the listeners notified of actuator
// responses. A nil listener is ignored.
func (m *Manager) AddActuatorResponseListener(l ActuatorResponseListener) bool {
	if l == nil {
		return false
	}
	m.listenerMu.Lock()
	m.responseListeners = append(m.responseListeners, l)
	m.listenerMu.Unlock()
	return true
}
