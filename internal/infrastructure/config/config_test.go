package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cda.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
device:
  id: "cda-kitchen"
  location_id: "kitchen"
polling:
  poll_cycle_secs: 15
  system_perf_poll_secs: 30
mqtt:
  enabled: true
  broker:
    host: "broker.local"
    port: 1883
  qos: 1
actuation:
  handle_temp_change_on_device: true
  trigger_hvac_temp_floor: 19.5
  trigger_hvac_temp_ceiling: 22.0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.ID != "cda-kitchen" {
		t.Errorf("Device.ID = %q, want %q", cfg.Device.ID, "cda-kitchen")
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if cfg.SensorPollInterval() != 15*time.Second {
		t.Errorf("SensorPollInterval() = %v, want 15s", cfg.SensorPollInterval())
	}
	if cfg.SystemPerfPollInterval() != 30*time.Second {
		t.Errorf("SystemPerfPollInterval() = %v, want 30s", cfg.SystemPerfPollInterval())
	}
	if cfg.Actuation.TriggerHvacTempFloor != 19.5 {
		t.Errorf("TriggerHvacTempFloor = %v, want 19.5", cfg.Actuation.TriggerHvacTempFloor)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", cfg.Warnings)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/cda.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_SafeDefaults(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "non-positive poll cycle",
			content: "polling:\n  poll_cycle_secs: 0\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Polling.PollCycleSecs != DefaultPollCycleSecs {
					t.Errorf("PollCycleSecs = %d, want %d", cfg.Polling.PollCycleSecs, DefaultPollCycleSecs)
				}
			},
		},
		{
			name:    "negative poll cycle",
			content: "polling:\n  poll_cycle_secs: -5\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.SensorPollInterval() != 60*time.Second {
					t.Errorf("SensorPollInterval() = %v, want 60s", cfg.SensorPollInterval())
				}
			},
		},
		{
			name:    "qos out of range",
			content: "mqtt:\n  qos: 7\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.MQTT.QoS != DefaultQoS {
					t.Errorf("QoS = %d, want %d", cfg.MQTT.QoS, DefaultQoS)
				}
			},
		},
		{
			name:    "inverted simulator bounds",
			content: "sensing:\n  simulator:\n    temperature:\n      floor: 30\n      ceiling: 10\n",
			check: func(t *testing.T, cfg *Config) {
				r := cfg.Sensing.Simulator.Temperature
				if r.Floor != 10 || r.Ceiling != 30 {
					t.Errorf("temperature range = %+v, want floor 10 ceiling 30", r)
				}
			},
		},
		{
			name:    "zero queue size",
			content: "upstream:\n  queue_size: 0\n  send_timeout_secs: -1\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Upstream.QueueSize != DefaultQueueSize {
					t.Errorf("QueueSize = %d, want %d", cfg.Upstream.QueueSize, DefaultQueueSize)
				}
				if cfg.SendTimeout() != 5*time.Second {
					t.Errorf("SendTimeout() = %v, want 5s", cfg.SendTimeout())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.content))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(cfg.Warnings) == 0 {
				t.Error("expected at least one warning")
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "mqtt without host",
			content: "mqtt:\n  enabled: true\n  broker:\n    host: \"\"\n",
			wantErr: "mqtt.broker.host",
		},
		{
			name:    "request response without url",
			content: "request_response:\n  enabled: true\n",
			wantErr: "request_response.base_url",
		},
		{
			name:    "request response relative url",
			content: "request_response:\n  enabled: true\n  base_url: \"gateway/piot\"\n",
			wantErr: "absolute",
		},
		{
			name:    "influx without bucket",
			content: "influxdb:\n  enabled: true\n  url: \"http://localhost:8086\"\n",
			wantErr: "influxdb.bucket",
		},
		{
			name:    "resource server bad port",
			content: "resource_server:\n  enabled: true\n  port: 70000\n",
			wantErr: "resource_server.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PIOT_CDA_DEVICE_ID", "env-device")
	t.Setenv("PIOT_CDA_MQTT_HOST", "env-broker")
	t.Setenv("PIOT_CDA_MQTT_PORT", "8883")
	t.Setenv("PIOT_CDA_POLL_CYCLE_SECS", "5")
	t.Setenv("PIOT_CDA_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "device:\n  id: file-device\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.ID != "env-device" {
		t.Errorf("Device.ID = %q, want env-device", cfg.Device.ID)
	}
	if cfg.MQTT.Broker.Host != "env-broker" || cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("broker = %s:%d, want env-broker:8883", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port)
	}
	if cfg.Polling.PollCycleSecs != 5 {
		t.Errorf("PollCycleSecs = %d, want 5", cfg.Polling.PollCycleSecs)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.MQTT.Enabled || cfg.RequestResponse.Enabled {
		t.Error("upstream transports should be disabled by default")
	}
	if !cfg.Actuation.HandleTempChangeOnDevice {
		t.Error("temperature should be handled on device by default")
	}
	if cfg.ObserveTTL() != 300*time.Second {
		t.Errorf("ObserveTTL() = %v, want 300s", cfg.ObserveTTL())
	}
	if cfg.Retention() != 0 {
		t.Errorf("Retention() = %v, want 0", cfg.Retention())
	}
}
