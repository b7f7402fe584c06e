package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "lab"
ingest:
  host: "127.0.0.1"
  port: 6001
  max_connections: 32
registry:
  lifecycle: "retain_forever"
mqtt:
  enabled: true
  broker:
    host: "broker.local"
    port: 1883
  qos: 1
`)

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "lab" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "lab")
	}
	if got := cfg.IngestAddress(); got != "127.0.0.1:6001" {
		t.Errorf("IngestAddress() = %q, want %q", got, "127.0.0.1:6001")
	}
	if cfg.Ingest.MaxConnections != 32 {
		t.Errorf("Ingest.MaxConnections = %d, want 32", cfg.Ingest.MaxConnections)
	}
	if cfg.Registry.Lifecycle != LifecycleRetainForever {
		t.Errorf("Registry.Lifecycle = %q, want %q", cfg.Registry.Lifecycle, LifecycleRetainForever)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	// Unset keys keep their defaults.
	if cfg.API.Port != 5000 {
		t.Errorf("API.Port = %d, want default 5000", cfg.API.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml", false); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_MissingFileAllowed(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml", true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ingest.Port != 5001 {
		t.Errorf("Ingest.Port = %d, want 5001", cfg.Ingest.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path, false); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
registry:
  lifecycle: "forever-ish"
`)
	_, err := Load(path, false)
	if err == nil {
		t.Fatal("Load() expected validation error for bad lifecycle, got nil")
	}
	if !strings.Contains(err.Error(), "registry.lifecycle") {
		t.Errorf("error = %v, want mention of registry.lifecycle", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "missing site ID", mutate: func(c *Config) { c.Site.ID = "" }, wantErr: true},
		{name: "ephemeral ingest port", mutate: func(c *Config) { c.Ingest.Port = 0 }},
		{name: "ingest port too high", mutate: func(c *Config) { c.Ingest.Port = 70000 }, wantErr: true},
		{name: "negative max connections", mutate: func(c *Config) { c.Ingest.MaxConnections = -1 }, wantErr: true},
		{name: "unknown lifecycle", mutate: func(c *Config) { c.Registry.Lifecycle = "sometimes" }, wantErr: true},
		{name: "retain forever", mutate: func(c *Config) { c.Registry.Lifecycle = LifecycleRetainForever }},
		{name: "api port zero", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "api disabled ignores port", mutate: func(c *Config) { c.API.Enabled = false; c.API.Port = 0 }},
		{name: "zero refresh", mutate: func(c *Config) { c.Dashboard.RefreshInterval = 0 }, wantErr: true},
		{name: "history shorter than refresh", mutate: func(c *Config) { c.Dashboard.HistoryWindow = 0 }, wantErr: true},
		{name: "audit without database", mutate: func(c *Config) { c.Audit.Enabled = true; c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.Enabled = true; c.MQTT.QoS = 3 }, wantErr: true},
		{name: "QoS ignored when mqtt disabled", mutate: func(c *Config) { c.MQTT.QoS = 3 }},
		{name: "influx without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Site.ID = ""
	cfg.Ingest.Port = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"site.id", "ingest.port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{Read: 30, Write: 45, Idle: 60},
		},
		Dashboard: DashboardConfig{RefreshInterval: 2, HistoryWindow: 300},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
	if got := cfg.GetRefreshInterval().Seconds(); got != 2 {
		t.Errorf("GetRefreshInterval() = %v, want 2", got)
	}
	if got := cfg.GetHistoryWindow().Minutes(); got != 5 {
		t.Errorf("GetHistoryWindow() = %v, want 5m", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv("RSSIMON_INGEST_HOST", "10.0.0.5")
	t.Setenv("RSSIMON_INGEST_PORT", "7001")
	t.Setenv("RSSIMON_REGISTRY_LIFECYCLE", "retain_forever")
	t.Setenv("RSSIMON_API_PORT", "8081")
	t.Setenv("RSSIMON_API_PANEL_DIR", "/srv/rssimon/web")
	t.Setenv("RSSIMON_DATABASE_PATH", "/custom/path.db")
	t.Setenv("RSSIMON_MQTT_HOST", "mqtt.example.com")
	t.Setenv("RSSIMON_MQTT_USERNAME", "testuser")
	t.Setenv("RSSIMON_MQTT_PASSWORD", "testpass")
	t.Setenv("RSSIMON_INFLUXDB_TOKEN", "secret-token")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Ingest.Host != "10.0.0.5" {
		t.Errorf("Ingest.Host = %q, want %q", cfg.Ingest.Host, "10.0.0.5")
	}
	if cfg.Ingest.Port != 7001 {
		t.Errorf("Ingest.Port = %d, want 7001", cfg.Ingest.Port)
	}
	if cfg.Registry.Lifecycle != LifecycleRetainForever {
		t.Errorf("Registry.Lifecycle = %q, want %q", cfg.Registry.Lifecycle, LifecycleRetainForever)
	}
	if cfg.API.Port != 8081 {
		t.Errorf("API.Port = %d, want 8081", cfg.API.Port)
	}
	if cfg.API.PanelDir != "/srv/rssimon/web" {
		t.Errorf("API.PanelDir = %q, want %q", cfg.API.PanelDir, "/srv/rssimon/web")
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestApplyEnvOverrides_BadPort(t *testing.T) {
	cfg := Default()
	t.Setenv("RSSIMON_INGEST_PORT", "not-a-port")

	if err := applyEnvOverrides(cfg); err == nil {
		t.Error("applyEnvOverrides() expected error for non-numeric port")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Ingest.Port != 5001 {
		t.Errorf("Ingest.Port = %d, want 5001", cfg.Ingest.Port)
	}
	if cfg.API.Port != 5000 {
		t.Errorf("API.Port = %d, want 5000", cfg.API.Port)
	}
	if cfg.Registry.Lifecycle != LifecyclePruneOnRead {
		t.Errorf("Registry.Lifecycle = %q, want %q", cfg.Registry.Lifecycle, LifecyclePruneOnRead)
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled || cfg.Audit.Enabled {
		t.Error("optional integrations should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}
