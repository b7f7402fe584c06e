// rssimon - Wi-Fi RSSI monitoring server
//
// rssimon accepts signal-strength reports from devices over a line-oriented
// TCP protocol and a web form, keeps the latest reading per device in
// memory and shows them on a live dashboard. Optional sinks publish every
// update to MQTT and InfluxDB and keep an audit trail of login attempts in
// SQLite.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/rssimon/internal/api"
	"github.com/nerrad567/rssimon/internal/audit"
	"github.com/nerrad567/rssimon/internal/dashboard"
	"github.com/nerrad567/rssimon/internal/device"
	"github.com/nerrad567/rssimon/internal/infrastructure/config"
	"github.com/nerrad567/rssimon/internal/infrastructure/database"
	"github.com/nerrad567/rssimon/internal/infrastructure/influxdb"
	"github.com/nerrad567/rssimon/internal/infrastructure/logging"
	"github.com/nerrad567/rssimon/internal/infrastructure/mqtt"
	"github.com/nerrad567/rssimon/internal/ingest"
	"github.com/nerrad567/rssimon/internal/telemetry"
	"github.com/nerrad567/rssimon/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path. A missing file at this path falls back
// to built-in defaults; an explicit RSSIMON_CONFIG must exist.
const defaultConfigPath = "configs/config.yaml"

// startupCheckTimeout bounds the initial health check of optional sinks.
const startupCheckTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component, blocks until ctx is cancelled and then shuts
// down in order: ingestion paths first, then background workers, then
// connections (deferred).
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting rssimon",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath, configPath == defaultConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Device registry
	lifecycle, err := device.ParseLifecycle(cfg.Registry.Lifecycle)
	if err != nil {
		return fmt.Errorf("registry lifecycle: %w", err)
	}
	registry := device.NewRegistry(device.WithLifecycle(lifecycle))
	registry.SetLogger(log)
	log.Info("device registry initialised", "lifecycle", lifecycle.String())

	// Background workers run on their own context so they can drain after
	// the ingestion paths have stopped.
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	workers, workerCtx := errgroup.WithContext(bgCtx)

	// Audit trail (optional)
	var (
		db        *database.DB
		auditRepo audit.Repository
		auditor   ingest.Auditor
	)
	if cfg.Audit.Enabled {
		db, err = database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database ready", "path", db.Path())

		repo := audit.NewSQLiteRepository(db.DB)
		recorder := audit.NewRecorder(repo)
		recorder.SetLogger(log)
		workers.Go(func() error {
			recorder.Run(workerCtx)
			return nil
		})
		auditRepo, auditor = repo, recorder
	} else {
		log.Info("audit trail disabled")
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	// Telemetry fan-out
	if fanout := newFanout(mqttClient, influxClient); fanout != nil {
		fanout.SetLogger(log)
		registry.AddObserver(fanout)
		workers.Go(func() error {
			fanout.Run(workerCtx)
			return nil
		})
		log.Info("telemetry fan-out enabled")
	}

	if mqttClient != nil && cfg.MQTT.SubscribeReports {
		reports := telemetry.NewReportSubscriber(mqttClient, registry, mqttClient.QoS())
		reports.SetLogger(log)
		if err := reports.Start(); err != nil {
			return fmt.Errorf("starting report subscriber: %w", err)
		}
		defer func() {
			if stopErr := reports.Stop(); stopErr != nil {
				log.Warn("error unsubscribing from reports", "error", stopErr)
			}
		}()
	}

	// Dashboard
	hub := api.NewHub(cfg.WebSocket, log)
	poller := dashboard.NewPoller(registry, hub, dashboard.Config{
		RefreshInterval: cfg.GetRefreshInterval(),
		HistoryWindow:   cfg.GetHistoryWindow(),
	})
	poller.SetLogger(log)
	workers.Go(func() error {
		hub.Run(workerCtx)
		return nil
	})
	workers.Go(func() error {
		poller.Run(workerCtx)
		return nil
	})

	// TCP ingestion
	listener := ingest.New(ingest.Config{
		Host:           cfg.Ingest.Host,
		Port:           cfg.Ingest.Port,
		MaxConnections: cfg.Ingest.MaxConnections,
	}, registry)
	listener.SetLogger(log)
	if auditor != nil {
		listener.SetAuditor(auditor)
	}
	if err := listener.Start(ctx); err != nil {
		return shutdownWorkers(stopBackground, workers, fmt.Errorf("starting ingest listener: %w", err))
	}
	defer listener.Close() //nolint:errcheck // also closed below; Close is idempotent

	// HTTP API and web form
	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:    cfg.API,
			WS:        cfg.WebSocket,
			Logger:    log,
			Registry:  registry,
			Dashboard: poller,
			Ingest:    listener,
			AuditRepo: auditRepo,
			Auditor:   auditor,
			MQTT:      mqttClient,
			InfluxDB:  influxClient,
			DB:        db,
			Hub:       hub,
			Version:   version,
		})
		if err != nil {
			return shutdownWorkers(stopBackground, workers, fmt.Errorf("creating API server: %w", err))
		}
		if err := apiServer.Start(ctx); err != nil {
			return shutdownWorkers(stopBackground, workers, fmt.Errorf("starting API server: %w", err))
		}
	} else {
		log.Info("API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"ingest", listener.Addr().String(),
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if apiServer != nil {
		if err := apiServer.Close(); err != nil {
			log.Error("error closing API server", "error", err)
		}
	}
	if err := listener.Close(); err != nil {
		log.Error("error closing ingest listener", "error", err)
	}

	if err := shutdownWorkers(stopBackground, workers, nil); err != nil {
		return err
	}

	// Remaining deferred Close() calls run in reverse order:
	// report subscription, InfluxDB, MQTT, database.
	log.Info("rssimon stopped", "stats", listener.Stats())
	return nil
}

// shutdownWorkers stops the background workers, waits for them to drain and
// returns cause, or the first worker error when cause is nil.
func shutdownWorkers(stop context.CancelFunc, workers *errgroup.Group, cause error) error {
	stop()
	if err := workers.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Join(cause, err)
	}
	return cause
}

// newFanout builds the telemetry fan-out over whichever sinks are enabled,
// or returns nil when there are none. Nil clients are passed as untyped
// nil interfaces.
func newFanout(mqttClient *mqtt.Client, influxClient *influxdb.Client) *telemetry.Fanout {
	var (
		publisher telemetry.StatePublisher
		writer    telemetry.PointWriter
	)
	if mqttClient != nil {
		publisher = mqttClient
	}
	if influxClient != nil {
		writer = influxClient
	}
	if publisher == nil && writer == nil {
		return nil
	}
	return telemetry.NewFanout(publisher, writer, telemetry.DefaultQueueSize)
}

// getConfigPath returns the configuration file path.
// Uses RSSIMON_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RSSIMON_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the optional connections. Nil arguments are skipped.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	ctx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()

	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
