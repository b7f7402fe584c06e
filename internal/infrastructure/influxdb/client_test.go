package influxdb_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/rssimon/internal/infrastructure/config"
	"github.com/nerrad567/rssimon/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "rssimon-dev-token",
		Org:           "rssimon",
		Bucket:        "rssi",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// skipIfNoInfluxDB skips the test if InfluxDB is not running.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		client, err := influxdb.Connect(testConfig())
		if err != nil {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		client.Close()
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	client, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
	if client != nil {
		t.Error("Connect() returned a client while disabled")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1"

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestRSSIPoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := influxdb.RSSIPoint("sensor-1", "tcp", -65, "Fair", at)

	if p.Name() != influxdb.MeasurementRSSI {
		t.Errorf("Name() = %q, want %q", p.Name(), influxdb.MeasurementRSSI)
	}
	if !p.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", p.Time(), at)
	}

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["device"] != "sensor-1" || tags["source"] != "tcp" {
		t.Errorf("tags = %v", tags)
	}

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["rssi"] != int64(-65) {
		t.Errorf("rssi field = %v (%T), want int64(-65)", fields["rssi"], fields["rssi"])
	}
	if fields["quality"] != "Fair" {
		t.Errorf("quality field = %v", fields["quality"])
	}
}

func TestWriteRSSI(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var writeErr error
	var mu sync.Mutex
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.WriteRSSI("influx-test", "tcp", -58, "Good", time.Now())
	client.WriteRSSI("influx-test", "web", -61, "Good", time.Now().Add(-time.Minute))
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}

func TestClose_Disconnects(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	client.WriteRSSI("close-test", "tcp", -70, "Fair", time.Now())
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
	// Writes after close are dropped without panicking.
	client.WriteRSSI("close-test", "tcp", -70, "Fair", time.Now())
	client.Flush()
}

func TestClient_ZeroValueIsClosed(t *testing.T) {
	var client influxdb.Client

	if client.IsConnected() {
		t.Error("IsConnected() = true for zero Client")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	client.WriteRSSI("unused", "tcp", -60, "Good", time.Now())
	client.Flush()
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
