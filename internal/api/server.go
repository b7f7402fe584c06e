package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/rssimon/internal/audit"
	"github.com/nerrad567/rssimon/internal/dashboard"
	"github.com/nerrad567/rssimon/internal/device"
	"github.com/nerrad567/rssimon/internal/infrastructure/config"
	"github.com/nerrad567/rssimon/internal/infrastructure/database"
	"github.com/nerrad567/rssimon/internal/infrastructure/influxdb"
	"github.com/nerrad567/rssimon/internal/infrastructure/logging"
	"github.com/nerrad567/rssimon/internal/infrastructure/mqtt"
	"github.com/nerrad567/rssimon/internal/ingest"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// IngestStats reports TCP listener counters. Satisfied by *ingest.Listener.
type IngestStats interface {
	Stats() ingest.Stats
}

// Deps holds the dependencies of the API server. Logger, Registry and
// Dashboard are required; the rest are optional.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Logger    *logging.Logger
	Registry  *device.Registry
	Dashboard *dashboard.Poller

	Ingest    IngestStats
	AuditRepo audit.Repository
	Auditor   ingest.Auditor
	MQTT      *mqtt.Client
	InfluxDB  *influxdb.Client
	DB        *database.DB

	// Hub, when set, is used instead of a hub owned by the server. The
	// caller then runs it.
	Hub *Hub

	Version string
}

// Server is the HTTP API and WebSocket server.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	registry  *device.Registry
	dashboard *dashboard.Poller
	ingest    IngestStats
	auditRepo audit.Repository
	auditor   ingest.Auditor
	mqtt      *mqtt.Client
	influx    *influxdb.Client
	db        *database.DB
	version   string
	startTime time.Time

	hub         *Hub
	externalHub bool

	mu     sync.Mutex
	server *http.Server
	ln     net.Listener
	cancel context.CancelFunc
}

// New creates an API server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Dashboard == nil {
		return nil, fmt.Errorf("dashboard poller is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		registry:  deps.Registry,
		dashboard: deps.Dashboard,
		ingest:    deps.Ingest,
		auditRepo: deps.AuditRepo,
		auditor:   deps.Auditor,
		mqtt:      deps.MQTT,
		influx:    deps.InfluxDB,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
	}
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	return s, nil
}

// Start binds the configured address and serves in the background.
// A bind failure is returned directly.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("binding API address %s: %w", addr, err)
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.ln = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}(s.server)

	s.logger.Info("API server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close gracefully shuts the server down, waiting up to 10 seconds for
// in-flight requests.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, cancel := s.server, s.cancel
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
