package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for rssimon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Registry  RegistryConfig  `yaml:"registry"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Database  DatabaseConfig  `yaml:"database"`
	Audit     AuditConfig     `yaml:"audit"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig contains installation-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// IngestConfig contains the TCP ingestion listener settings.
//
// The read deadline, maximum message size and staleness window are fixed
// protocol constants and are not configurable here.
type IngestConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// MaxConnections bounds concurrently handled connections.
	// 0 means unbounded.
	MaxConnections int `yaml:"max_connections"`
}

// RegistryConfig selects the device registry lifecycle.
type RegistryConfig struct {
	// Lifecycle is "prune_on_read" (default) or "retain_forever".
	Lifecycle string `yaml:"lifecycle"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`

	// PanelDir serves the reporter page from disk instead of the embedded
	// copy. Empty uses the embedded page.
	PanelDir string `yaml:"panel_dir"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// DashboardConfig controls the snapshot poller feeding the live dashboard.
type DashboardConfig struct {
	// RefreshInterval is the polling cadence in seconds.
	RefreshInterval int `yaml:"refresh_interval"`

	// HistoryWindow is how long per-device signal history is kept, in seconds.
	HistoryWindow int `yaml:"history_window"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// AuditConfig enables the login-attempt audit trail.
// The audit trail is stored in the SQLite database.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// SubscribeReports enables ingestion of RSSI reports published to
	// rssimon/report/{device}.
	SubscribeReports bool `yaml:"subscribe_reports"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	// MaxDelay caps the reconnect backoff, in seconds.
	MaxDelay int `yaml:"max_delay"`
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

// Registry lifecycle values accepted in registry.lifecycle.
const (
	LifecyclePruneOnRead   = "prune_on_read"
	LifecycleRetainForever = "retain_forever"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// When allowMissing is true and the file does not exist, the defaults are
// used as the file layer. Environment variables follow the pattern
// RSSIMON_SECTION_KEY, for example RSSIMON_INGEST_PORT.
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case allowMissing && errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with the standard defaults.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "rssimon-001",
			Name: "RSSI Monitor",
		},
		Ingest: IngestConfig{
			Host: "0.0.0.0",
			Port: 5001,
		},
		Registry: RegistryConfig{
			Lifecycle: LifecyclePruneOnRead,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    5000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Dashboard: DashboardConfig{
			RefreshInterval: 1,
			HistoryWindow:   300,
		},
		Database: DatabaseConfig{
			Path:        "./data/rssimon.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "rssimon",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				MaxDelay: 60,
			},
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

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: RSSIMON_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Ingest
	if v := os.Getenv("RSSIMON_INGEST_HOST"); v != "" {
		cfg.Ingest.Host = v
	}
	if v := os.Getenv("RSSIMON_INGEST_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RSSIMON_INGEST_PORT: %w", err)
		}
		cfg.Ingest.Port = port
	}

	// Registry
	if v := os.Getenv("RSSIMON_REGISTRY_LIFECYCLE"); v != "" {
		cfg.Registry.Lifecycle = v
	}

	// API
	if v := os.Getenv("RSSIMON_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RSSIMON_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv("RSSIMON_API_PANEL_DIR"); v != "" {
		cfg.API.PanelDir = v
	}

	// Database
	if v := os.Getenv("RSSIMON_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("RSSIMON_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("RSSIMON_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("RSSIMON_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("RSSIMON_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	return nil
}

// Validate checks the configuration for errors.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Ingest validation. Port 0 asks the OS for a free port.
	if c.Ingest.Port < 0 || c.Ingest.Port > 65535 {
		errs = append(errs, "ingest.port must be between 0 and 65535")
	}
	if c.Ingest.MaxConnections < 0 {
		errs = append(errs, "ingest.max_connections must not be negative")
	}

	switch c.Registry.Lifecycle {
	case LifecyclePruneOnRead, LifecycleRetainForever:
	default:
		errs = append(errs, fmt.Sprintf("registry.lifecycle must be %q or %q", LifecyclePruneOnRead, LifecycleRetainForever))
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Dashboard.RefreshInterval < 1 {
		errs = append(errs, "dashboard.refresh_interval must be at least 1 second")
	}
	if c.Dashboard.HistoryWindow < c.Dashboard.RefreshInterval {
		errs = append(errs, "dashboard.history_window must not be shorter than dashboard.refresh_interval")
	}

	if c.Audit.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when audit is enabled")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IngestAddress returns the host:port the ingestion listener binds to.
func (c *Config) IngestAddress() string {
	return fmt.Sprintf("%s:%d", c.Ingest.Host, c.Ingest.Port)
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetRefreshInterval returns the dashboard polling cadence as a Duration.
func (c *Config) GetRefreshInterval() time.Duration {
	return time.Duration(c.Dashboard.RefreshInterval) * time.Second
}

// GetHistoryWindow returns the dashboard history window as a Duration.
func (c *Config) GetHistoryWindow() time.Duration {
	return time.Duration(c.Dashboard.HistoryWindow) * time.Second
}
