package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/rssimon/internal/ingest"
)

// Client defaults.
const (
	DefaultPort        = ingest.DefaultPort
	DefaultInterval    = 5 * time.Second
	DefaultDialTimeout = 5 * time.Second

	maxReplySize = 1024
)

// ErrRejected is returned when the server answers with anything but SUCCESS.
var ErrRejected = errors.New("reporter: server rejected report")

// Logger defines the logging interface used by the Reporter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Report sends one login request to addr and returns the server's reply.
//
// The whole exchange, dial included, is bounded by DefaultDialTimeout
// unless ctx expires first. A reply other than SUCCESS is returned along
// with an error wrapping ErrRejected.
func Report(ctx context.Context, addr, name string, rssi int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline) //nolint:errcheck // best effort; Read/Write surface failures
	}

	if _, err := io.WriteString(conn, ingest.FormatLogin(name, rssi)); err != nil {
		return "", fmt.Errorf("sending report: %w", err)
	}

	buf := make([]byte, maxReplySize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return "", fmt.Errorf("reading reply: %w", err)
	}

	reply := strings.TrimSpace(string(buf[:n]))
	if reply != ingest.ReplySuccess {
		return reply, fmt.Errorf("%w: %s", ErrRejected, reply)
	}
	return reply, nil
}

// Config holds reporter settings.
type Config struct {
	Name     string
	Host     string
	Port     int
	Interval time.Duration
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Reporter periodically reads the local signal and reports it.
type Reporter struct {
	cfg    Config
	source SignalSource
	logger Logger
}

// New creates a Reporter. Zero Port and Interval fall back to defaults.
func New(cfg Config, source SignalSource) *Reporter {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Reporter{cfg: cfg, source: source, logger: noopLogger{}}
}

// SetLogger sets the logger for the reporter.
func (r *Reporter) SetLogger(logger Logger) {
	r.logger = logger
}

// ReportOnce reads the signal and sends one report. A failed signal read
// falls back to FallbackRSSI.
func (r *Reporter) ReportOnce(ctx context.Context) (string, error) {
	rssi, err := r.source.RSSI(ctx)
	if err != nil {
		r.logger.Warn("signal read failed, using fallback", "error", err, "rssi", FallbackRSSI)
		rssi = FallbackRSSI
	}

	reply, err := Report(ctx, r.cfg.Addr(), r.cfg.Name, rssi)
	if err != nil {
		return reply, err
	}
	r.logger.Info("report sent", "device", r.cfg.Name, "rssi", rssi, "reply", reply)
	return reply, nil
}

// Run reports immediately and then every interval until ctx is cancelled.
// Failures are logged and retried on the next tick.
func (r *Reporter) Run(ctx context.Context) error {
	r.logger.Info("reporter started",
		"device", r.cfg.Name,
		"server", r.cfg.Addr(),
		"interval", r.cfg.Interval,
	)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.ReportOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("report failed", "server", r.cfg.Addr(), "error", err)
		}

		select {
		case <-ctx.Done():
			r.logger.Info("reporter stopped")
			return nil
		case <-ticker.C:
		}
	}
}
