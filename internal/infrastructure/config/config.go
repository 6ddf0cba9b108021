package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a value is missing or unusable.
const (
	DefaultPollCycleSecs     = 60
	DefaultQoS               = 0
	DefaultKeepAlive         = 60
	DefaultMQTTPort          = 1883
	DefaultMQTTSecurePort    = 8883
	DefaultTimeoutSecs       = 5
	DefaultObserveTTLSecs    = 300
	DefaultQueueSize         = 64
	DefaultServerPort        = 8683
	DefaultLocationID        = "constraineddevice001"
	DefaultDeviceID          = "constraineddevice001"
	DefaultDiskPath          = "/"
	DefaultHvacTempFloor     = 18.0
	DefaultHvacTempCeiling   = 20.0
	DefaultHumidifierFloor   = 30.0
	DefaultHumidifierCeiling = 50.0
)

// Config is the root configuration for the constrained device agent.
// It is built once by Load and treated as read-only afterwards.
type Config struct {
	Device            DeviceConfig            `yaml:"device"`
	Polling           PollingConfig           `yaml:"polling"`
	Sensing           SensingConfig           `yaml:"sensing"`
	SystemPerformance SystemPerformanceConfig `yaml:"system_performance"`
	Actuation         ActuationConfig         `yaml:"actuation"`
	Upstream          UpstreamConfig          `yaml:"upstream"`
	MQTT              MQTTConfig              `yaml:"mqtt"`
	RequestResponse   RequestResponseConfig   `yaml:"request_response"`
	ResourceServer    ResourceServerConfig    `yaml:"resource_server"`
	Database          DatabaseConfig          `yaml:"database"`
	InfluxDB          InfluxDBConfig          `yaml:"influxdb"`
	Logging           LoggingConfig           `yaml:"logging"`

	// Warnings lists the values that were replaced with safe defaults while
	// loading. They are logged at startup and never fatal.
	Warnings []string `yaml:"-"`
}

// DeviceConfig identifies this device.
type DeviceConfig struct {
	ID         string `yaml:"id"`
	LocationID string `yaml:"location_id"`
}

// PollingConfig holds the poll cadences in seconds. The per-job values fall
// back to PollCycleSecs when zero.
type PollingConfig struct {
	PollCycleSecs      int `yaml:"poll_cycle_secs"`
	SensorPollSecs     int `yaml:"sensor_poll_secs"`
	SystemPerfPollSecs int `yaml:"system_perf_poll_secs"`
}

// SensingConfig enables the sensor poller and bounds the simulated sensors.
type SensingConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// SimulatorConfig contains per-sensor generation bounds.
type SimulatorConfig struct {
	Temperature RangeConfig `yaml:"temperature"`
	Humidity    RangeConfig `yaml:"humidity"`
	Pressure    RangeConfig `yaml:"pressure"`
}

// RangeConfig is an inclusive floor/ceiling pair.
type RangeConfig struct {
	Floor   float64 `yaml:"floor"`
	Ceiling float64 `yaml:"ceiling"`
}

// SystemPerformanceConfig enables the system performance poller.
type SystemPerformanceConfig struct {
	Enabled  bool   `yaml:"enabled"`
	DiskPath string `yaml:"disk_path"`
}

// ActuationConfig holds the on-device trigger rules.
type ActuationConfig struct {
	HandleTempChangeOnDevice     bool    `yaml:"handle_temp_change_on_device"`
	TriggerHvacTempFloor         float64 `yaml:"trigger_hvac_temp_floor"`
	TriggerHvacTempCeiling       float64 `yaml:"trigger_hvac_temp_ceiling"`
	HandleHumidityChangeOnDevice bool    `yaml:"handle_humidity_change_on_device"`
	TriggerHumidifierFloor       float64 `yaml:"trigger_humidifier_floor"`
	TriggerHumidifierCeiling     float64 `yaml:"trigger_humidifier_ceiling"`
}

// UpstreamConfig controls asynchronous forwarding to the transports.
type UpstreamConfig struct {
	QueueSize                int  `yaml:"queue_size"`
	InboxSize                int  `yaml:"inbox_size"`
	SendTimeoutSecs          int  `yaml:"send_timeout_secs"`
	ForwardTemperature       bool `yaml:"forward_temperature"`
	ForwardSystemPerformance bool `yaml:"forward_system_performance"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	KeepAlive int                 `yaml:"keep_alive"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// RequestResponseConfig configures the request/response client that talks to
// the gateway's resource server.
type RequestResponseConfig struct {
	Enabled              bool   `yaml:"enabled"`
	BaseURL              string `yaml:"base_url"`
	Confirmable          bool   `yaml:"confirmable"`
	TimeoutSecs          int    `yaml:"timeout_secs"`
	ObserveTTLSecs       int    `yaml:"observe_ttl_secs"`
	DiscoveryTimeoutSecs int    `yaml:"discovery_timeout_secs"`
}

// ResourceServerConfig configures the local resource server.
type ResourceServerConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// TimeoutConfig contains HTTP server timeouts in seconds.
type TimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains observe channel settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// DatabaseConfig contains the local SQLite history settings.
type DatabaseConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Path           string `yaml:"path"`
	WALMode        bool   `yaml:"wal_mode"`
	BusyTimeout    int    `yaml:"busy_timeout"`
	RetentionHours int    `yaml:"retention_hours"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file.
//
// Values are resolved in order: built-in defaults, the YAML file, then
// PIOT_CDA_* environment variables. Unusable values that have a safe default
// (non-positive poll cycles, out-of-range QoS, inverted simulator bounds) are
// corrected and recorded in Config.Warnings. Anything that cannot be corrected
// is reported by Validate.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded configuration
//   - error: If the file cannot be read or parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applySafeDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with safe defaults applied.
// Useful for tests and for running without a config file.
func Default() *Config {
	cfg := defaultConfig()
	cfg.applySafeDefaults()
	return cfg
}

// defaultConfig returns a Config with the built-in defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:         DefaultDeviceID,
			LocationID: DefaultLocationID,
		},
		Polling: PollingConfig{
			PollCycleSecs: DefaultPollCycleSecs,
		},
		Sensing: SensingConfig{
			Enabled: true,
			Simulator: SimulatorConfig{
				Temperature: RangeConfig{Floor: 15.0, Ceiling: 25.0},
				Humidity:    RangeConfig{Floor: 35.0, Ceiling: 45.0},
				Pressure:    RangeConfig{Floor: 990.0, Ceiling: 1010.0},
			},
		},
		SystemPerformance: SystemPerformanceConfig{
			Enabled:  true,
			DiskPath: DefaultDiskPath,
		},
		Actuation: ActuationConfig{
			HandleTempChangeOnDevice: true,
			TriggerHvacTempFloor:     DefaultHvacTempFloor,
			TriggerHvacTempCeiling:   DefaultHvacTempCeiling,
			TriggerHumidifierFloor:   DefaultHumidifierFloor,
			TriggerHumidifierCeiling: DefaultHumidifierCeiling,
		},
		Upstream: UpstreamConfig{
			QueueSize:                DefaultQueueSize,
			InboxSize:                DefaultQueueSize,
			SendTimeoutSecs:          DefaultTimeoutSecs,
			ForwardSystemPerformance: true,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: DefaultMQTTPort,
			},
			QoS:       DefaultQoS,
			KeepAlive: DefaultKeepAlive,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		RequestResponse: RequestResponseConfig{
			Confirmable:          true,
			TimeoutSecs:          DefaultTimeoutSecs,
			ObserveTTLSecs:       DefaultObserveTTLSecs,
			DiscoveryTimeoutSecs: DefaultTimeoutSecs,
		},
		ResourceServer: ResourceServerConfig{
			Host: "0.0.0.0",
			Port: DefaultServerPort,
			Timeouts: TimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/cda.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides.
// Variables follow the pattern PIOT_CDA_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PIOT_CDA_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}
	if v := os.Getenv("PIOT_CDA_LOCATION_ID"); v != "" {
		cfg.Device.LocationID = v
	}
	if v := os.Getenv("PIOT_CDA_POLL_CYCLE_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Polling.PollCycleSecs = n
		}
	}

	if v := os.Getenv("PIOT_CDA_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PIOT_CDA_MQTT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = n
		}
	}
	if v := os.Getenv("PIOT_CDA_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PIOT_CDA_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("PIOT_CDA_GATEWAY_URL"); v != "" {
		cfg.RequestResponse.BaseURL = v
	}

	if v := os.Getenv("PIOT_CDA_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("PIOT_CDA_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("PIOT_CDA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applySafeDefaults replaces values that have an obvious safe fallback and
// records a warning for each replacement.
func (c *Config) applySafeDefaults() {
	warn := func(format string, args ...any) {
		c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
	}

	if c.Polling.PollCycleSecs <= 0 {
		warn("polling.poll_cycle_secs %d is not positive, using %d", c.Polling.PollCycleSecs, DefaultPollCycleSecs)
		c.Polling.PollCycleSecs = DefaultPollCycleSecs
	}
	if c.Polling.SensorPollSecs < 0 {
		warn("polling.sensor_poll_secs %d is negative, using poll_cycle_secs", c.Polling.SensorPollSecs)
		c.Polling.SensorPollSecs = 0
	}
	if c.Polling.SystemPerfPollSecs < 0 {
		warn("polling.system_perf_poll_secs %d is negative, using poll_cycle_secs", c.Polling.SystemPerfPollSecs)
		c.Polling.SystemPerfPollSecs = 0
	}

	fixRange := func(name string, r *RangeConfig) {
		if r.Floor > r.Ceiling {
			warn("%s floor %.2f is above ceiling %.2f, swapping", name, r.Floor, r.Ceiling)
			r.Floor, r.Ceiling = r.Ceiling, r.Floor
		}
	}
	fixRange("sensing.simulator.temperature", &c.Sensing.Simulator.Temperature)
	fixRange("sensing.simulator.humidity", &c.Sensing.Simulator.Humidity)
	fixRange("sensing.simulator.pressure", &c.Sensing.Simulator.Pressure)

	if c.Actuation.TriggerHvacTempFloor > c.Actuation.TriggerHvacTempCeiling {
		warn("actuation hvac floor is above ceiling, swapping")
		c.Actuation.TriggerHvacTempFloor, c.Actuation.TriggerHvacTempCeiling =
			c.Actuation.TriggerHvacTempCeiling, c.Actuation.TriggerHvacTempFloor
	}
	if c.Actuation.TriggerHumidifierFloor > c.Actuation.TriggerHumidifierCeiling {
		warn("actuation humidifier floor is above ceiling, swapping")
		c.Actuation.TriggerHumidifierFloor, c.Actuation.TriggerHumidifierCeiling =
			c.Actuation.TriggerHumidifierCeiling, c.Actuation.TriggerHumidifierFloor
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		warn("mqtt.qos %d is out of range, using %d", c.MQTT.QoS, DefaultQoS)
		c.MQTT.QoS = DefaultQoS
	}
	if c.MQTT.KeepAlive <= 0 {
		warn("mqtt.keep_alive %d is not positive, using %d", c.MQTT.KeepAlive, DefaultKeepAlive)
		c.MQTT.KeepAlive = DefaultKeepAlive
	}
	if c.MQTT.Broker.Port == 0 {
		c.MQTT.Broker.Port = DefaultMQTTPort
		if c.MQTT.Broker.TLS {
			c.MQTT.Broker.Port = DefaultMQTTSecurePort
		}
	}

	if c.Upstream.QueueSize <= 0 {
		warn("upstream.queue_size %d is not positive, using %d", c.Upstream.QueueSize, DefaultQueueSize)
		c.Upstream.QueueSize = DefaultQueueSize
	}
	if c.Upstream.InboxSize <= 0 {
		warn("upstream.inbox_size %d is not positive, using %d", c.Upstream.InboxSize, DefaultQueueSize)
		c.Upstream.InboxSize = DefaultQueueSize
	}
	if c.Upstream.SendTimeoutSecs <= 0 {
		warn("upstream.send_timeout_secs %d is not positive, using %d", c.Upstream.SendTimeoutSecs, DefaultTimeoutSecs)
		c.Upstream.SendTimeoutSecs = DefaultTimeoutSecs
	}

	if c.RequestResponse.TimeoutSecs <= 0 {
		warn("request_response.timeout_secs %d is not positive, using %d", c.RequestResponse.TimeoutSecs, DefaultTimeoutSecs)
		c.RequestResponse.TimeoutSecs = DefaultTimeoutSecs
	}
	if c.RequestResponse.DiscoveryTimeoutSecs <= 0 {
		c.RequestResponse.DiscoveryTimeoutSecs = c.RequestResponse.TimeoutSecs
	}

	if c.SystemPerformance.DiskPath == "" {
		c.SystemPerformance.DiskPath = DefaultDiskPath
	}
	if c.Device.LocationID == "" {
		c.Device.LocationID = DefaultLocationID
	}
	if c.Device.ID == "" {
		c.Device.ID = DefaultDeviceID
	}
}

// Validate checks for configuration errors that have no safe default.
//
// Returns:
//   - error: All problems joined into one message, or nil
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
	}

	if c.RequestResponse.Enabled {
		if c.RequestResponse.BaseURL == "" {
			errs = append(errs, "request_response.base_url is required when request_response is enabled")
		} else if u, err := url.Parse(c.RequestResponse.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, "request_response.base_url must be an absolute http(s) URL")
		}
	}

	if c.ResourceServer.Enabled && (c.ResourceServer.Port < 1 || c.ResourceServer.Port > 65535) {
		errs = append(errs, "resource_server.port must be between 1 and 65535")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}
	if c.Database.RetentionHours < 0 {
		errs = append(errs, "database.retention_hours must not be negative")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// SensorPollInterval returns the sensor poll cadence.
func (c *Config) SensorPollInterval() time.Duration {
	if c.Polling.SensorPollSecs > 0 {
		return time.Duration(c.Polling.SensorPollSecs) * time.Second
	}
	return time.Duration(c.Polling.PollCycleSecs) * time.Second
}

// SystemPerfPollInterval returns the system performance poll cadence.
func (c *Config) SystemPerfPollInterval() time.Duration {
	if c.Polling.SystemPerfPollSecs > 0 {
		return time.Duration(c.Polling.SystemPerfPollSecs) * time.Second
	}
	return time.Duration(c.Polling.PollCycleSecs) * time.Second
}

// SendTimeout returns the per-send upstream timeout.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Upstream.SendTimeoutSecs) * time.Second
}

// RequestTimeout returns the request/response default timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestResponse.TimeoutSecs) * time.Second
}

// ObserveTTL returns the observe lifetime. Zero or negative means until stopped.
func (c *Config) ObserveTTL() time.Duration {
	return time.Duration(c.RequestResponse.ObserveTTLSecs) * time.Second
}

// Retention returns how long history rows are kept. Zero disables pruning.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Database.RetentionHours) * time.Hour
}
