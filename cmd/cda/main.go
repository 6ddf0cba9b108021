// PIOT Constrained Device Agent
//
// The agent polls simulated sensors and host performance counters, applies
// on-device trigger rules to simulated actuators, records history, and
// forwards data upstream over MQTT and/or the gateway's resource server.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/nerrad567/piot-cda/internal/actuation"
	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/devicedata"
	"github.com/nerrad567/piot-cda/internal/history"
	"github.com/nerrad567/piot-cda/internal/infrastructure/config"
	"github.com/nerrad567/piot-cda/internal/infrastructure/database"
	"github.com/nerrad567/piot-cda/internal/infrastructure/influxdb"
	"github.com/nerrad567/piot-cda/internal/infrastructure/logging"
	"github.com/nerrad567/piot-cda/internal/resource"
	"github.com/nerrad567/piot-cda/internal/sim"
	"github.com/nerrad567/piot-cda/internal/sysperf"
	"github.com/nerrad567/piot-cda/internal/transport/httpclient"
	"github.com/nerrad567/piot-cda/internal/transport/mqttclient"
	"github.com/nerrad567/piot-cda/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/cda.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting PIOT CDA",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).With("device_id", cfg.Device.ID)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)
	for _, w := range cfg.Warnings {
		log.Warn("configuration corrected", "detail", w)
	}

	sensors, err := buildSensors(cfg)
	if err != nil {
		return fmt.Errorf("creating sensors: %w", err)
	}
	var collectors []sysperf.Collector
	if cfg.SystemPerformance.Enabled {
		collectors = sysperf.DefaultCollectors(cfg.SystemPerformance.DiskPath)
	}

	dispatcher, err := actuation.NewDispatcher(
		sim.NewHvacActuator(),
		sim.NewHumidifierActuator(),
		sim.NewLedDisplayActuator(),
	)
	if err != nil {
		return fmt.Errorf("creating actuator dispatcher: %w", err)
	}

	opts := devicedata.Options{
		Config:     cfg,
		Dispatcher: dispatcher,
		Sensors:    sensors,
		Collectors: collectors,
		Logger:     log.With("component", "devicedata"),
	}
	var upstream upstreams

	if cfg.MQTT.Enabled {
		client := mqttclient.New(mqttclient.Options{
			Config:   cfg.MQTT,
			DeviceID: cfg.Device.ID,
			Logger:   log.With("component", "mqtt"),
		})
		opts.PubSub = client
		upstream = append(upstream, client)
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.RequestResponse.Enabled {
		client, rrErr := httpclient.New(httpclient.Options{
			Config: cfg.RequestResponse,
			Logger: log.With("component", "request_response"),
		})
		if rrErr != nil {
			return fmt.Errorf("creating request/response client: %w", rrErr)
		}
		opts.RequestResponse = client
		upstream = append(upstream, client)
	} else {
		log.Info("request/response client disabled")
	}

	var store *history.Store
	if cfg.Database.Enabled {
		db, dbErr := openDatabase(ctx, cfg, log)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		store = history.NewStore(db.DB)
		opts.Recorders = append(opts.Recorders, store)
		opts.Pruner = store
	} else {
		log.Info("local history disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Device.ID)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		opts.Recorders = append(opts.Recorders, influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	manager, err := devicedata.NewManager(opts)
	if err != nil {
		return fmt.Errorf("creating device data manager: %w", err)
	}

	if cfg.ResourceServer.Enabled {
		srv, srvErr := startResourceServer(ctx, cfg, manager, store, upstream, log)
		if srvErr != nil {
			return srvErr
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing resource server", "error", closeErr)
			}
		}()
	} else {
		log.Info("resource server disabled")
	}

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("starting device data manager: %w", err)
	}
	defer manager.Stop()

	log.Info("initialisation complete, waiting for shutdown signal",
		"sensors", len(sensors),
		"collectors", len(collectors),
		"upstream_connected", upstream.IsConnected(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: manager, resource server, InfluxDB, database.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses PIOT_CDA_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PIOT_CDA_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildSensors creates the simulated sensors when sensing is enabled.
func buildSensors(cfg *config.Config) ([]sim.Sensor, error) {
	if !cfg.Sensing.Enabled {
		return nil, nil
	}
	bounds := cfg.Sensing.Simulator

	temp, err := sim.NewTemperatureSensor(simRange(bounds.Temperature))
	if err != nil {
		return nil, fmt.Errorf("temperature: %w", err)
	}
	humidity, err := sim.NewHumiditySensor(simRange(bounds.Humidity))
	if err != nil {
		return nil, fmt.Errorf("humidity: %w", err)
	}
	pressure, err := sim.NewPressureSensor(simRange(bounds.Pressure))
	if err != nil {
		return nil, fmt.Errorf("pressure: %w", err)
	}
	return []sim.Sensor{temp, humidity, pressure}, nil
}

func simRange(r config.RangeConfig) sim.Range {
	return sim.Range{Floor: r.Floor, Ceiling: r.Ceiling}
}

// openDatabase opens the history database and applies pending migrations.
//
// Parameters:
//   - ctx: Context for the migration run
//   - cfg: Application configuration
//   - log: Logger instance
//
// Returns:
//   - *database.DB: Open, migrated database
//   - error: If the database cannot be opened or migrated
func openDatabase(ctx context.Context, cfg *config.Config, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(cfg.Database, database.Options{
		Migrations: migrations.FS,
		Logger:     log.With("component", "database"),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: %w", err)
	}
	log.Info("database ready",
		"path", cfg.Database.Path,
		"retention", cfg.Retention().String(),
	)
	return db, nil
}

// startResourceServer builds the local resource server and subscribes its
// observe hub to the manager's listener hooks.
//
// Returns:
//   - *resource.Server: Running server; the caller closes it
//   - error: If the server cannot be built or bound
func startResourceServer(
	ctx context.Context,
	cfg *config.Config,
	manager *devicedata.Manager,
	store *history.Store,
	upstream upstreams,
	log *logging.Logger,
) (*resource.Server, error) {
	deps := resource.Deps{
		Config:   cfg.ResourceServer,
		Source:   manager,
		Logger:   log.With("component", "resource"),
		Upstream: upstream,
		DeviceID: cfg.Device.ID,
		Version:  version,
	}
	// A nil *history.Store in the interface would enable /history.
	if store != nil {
		deps.History = store
	}

	srv, err := resource.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating resource server: %w", err)
	}

	hub := srv.Hub()
	for _, name := range []string{data.TempSensorName, data.HumiditySensorName, data.PressureSensorName} {
		manager.SetTelemetryDataListener(name, hub)
	}
	manager.SetSystemPerformanceDataListener(hub)
	manager.AddActuatorResponseListener(hub)

	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting resource server: %w", err)
	}
	log.Info("resource server listening",
		"address", net.JoinHostPort(cfg.ResourceServer.Host, strconv.Itoa(cfg.ResourceServer.Port)),
	)
	return srv, nil
}

// upstreams reports connected when any configured upstream transport is.
type upstreams []resource.ConnectionStatus

func (u upstreams) IsConnected() bool {
	for _, c := range u {
		if c.IsConnected() {
			return true
		}
	}
	return false
}
