package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/rssimon/internal/ingest"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	InfluxDB      InfluxDBMetrics  `json:"influxdb"`
	Devices       DeviceMetrics    `json:"devices"`
	Ingest        *ingest.Stats    `json:"ingest,omitempty"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Enabled       bool `json:"enabled"`
	Connected     bool `json:"connected"`
	Subscriptions int  `json:"subscriptions"`
}

// InfluxDBMetrics contains InfluxDB client state.
type InfluxDBMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// DeviceMetrics contains device registry statistics.
type DeviceMetrics struct {
	Total     int            `json:"total"`
	Lifecycle string         `json:"lifecycle"`
	ByQuality map[string]int `json:"by_quality"`
	BySource  map[string]int `json:"by_source"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status           string        `json:"status"`
	Version          string        `json:"version"`
	Devices          int           `json:"devices"`
	WebSocketClients int           `json:"websocket_clients"`
	Listener         *ingest.Stats `json:"listener,omitempty"`
}

// handleHealth returns a lightweight liveness summary.
//
// It reads the device count without taking a snapshot, so polling it never
// prunes the registry.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:           "ok",
		Version:          s.version,
		Devices:          s.registry.Count(),
		WebSocketClients: s.hub.ClientCount(),
	}
	if s.ingest != nil {
		stats := s.ingest.Stats()
		resp.Listener = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
	}

	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Enabled:       true,
			Connected:     s.mqtt.IsConnected(),
			Subscriptions: s.mqtt.SubscriptionCount(),
		}
	}

	if s.influx != nil {
		metrics.InfluxDB = InfluxDBMetrics{
			Enabled:   true,
			Connected: s.influx.IsConnected(),
		}
	}

	// Count() rather than Snapshot() so metrics scrapes never prune.
	metrics.Devices = DeviceMetrics{
		Total:     s.registry.Count(),
		Lifecycle: s.registry.Lifecycle().String(),
		ByQuality: make(map[string]int),
		BySource:  make(map[string]int),
	}
	for _, view := range s.dashboard.Latest().Devices {
		metrics.Devices.ByQuality[view.Quality]++
		metrics.Devices.BySource[string(view.Source)]++
	}

	if s.ingest != nil {
		stats := s.ingest.Stats()
		metrics.Ingest = &stats
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
