package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"github.com/nerrad567/rssimon/internal/device"
)

// Protocol limits.
const (
	// DefaultReadTimeout bounds how long a peer may take to send its request.
	DefaultReadTimeout = 10 * time.Second

	// DefaultMaxMessageSize is the largest request read from a connection.
	DefaultMaxMessageSize = 1024

	// DefaultPort is the conventional ingestion port.
	DefaultPort = 5001

	maxAcceptBackoff = time.Second
)

// Logger defines the logging interface used by the Listener.
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

// Attempt describes one parsed request, accepted or rejected.
type Attempt struct {
	Name     string
	RSSI     int
	SourceIP string
	Source   device.Source

	// Err is nil for accepted attempts.
	Err error
}

// Auditor records login attempts. Implementations must not block for long;
// they run on the connection goroutine after the reply has been written.
type Auditor interface {
	RecordAttempt(a Attempt)
}

// Config holds listener settings.
type Config struct {
	Host string
	Port int

	ReadTimeout    time.Duration
	MaxMessageSize int

	// MaxConnections bounds concurrently handled connections. 0 means unbounded.
	MaxConnections int
}

// DefaultConfig returns the standard listener settings.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           DefaultPort,
		ReadTimeout:    DefaultReadTimeout,
		MaxMessageSize: DefaultMaxMessageSize,
	}
}

// Stats are cumulative listener counters.
type Stats struct {
	Accepted        int64 `json:"accepted"`
	Succeeded       int64 `json:"succeeded"`
	Rejected        int64 `json:"rejected"`
	TransportErrors int64 `json:"transport_errors"`
}

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Listener accepts TCP connections and turns login requests into registry upserts.
//
// Each connection carries exactly one exchange: one read, one reply, close.
// Every accepted connection is handled on its own goroutine.
type Listener struct {
	cfg      Config
	registry *device.Registry
	sem      *semaphore.Weighted

	logger  Logger
	auditor Auditor

	mu     sync.Mutex
	ln     net.Listener
	cancel context.CancelFunc

	done *closeOnce
	wg   sync.WaitGroup

	accepted        atomic.Int64
	succeeded       atomic.Int64
	rejected        atomic.Int64
	transportErrors atomic.Int64
}

// New creates a Listener that writes into registry.
// Zero values in cfg fall back to the defaults.
func New(cfg Config, registry *device.Registry) *Listener {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}

	l := &Listener{
		cfg:      cfg,
		registry: registry,
		logger:   noopLogger{},
		done:     newCloseOnce(),
	}
	if cfg.MaxConnections > 0 {
		l.sem = semaphore.NewWeighted(int64(cfg.MaxConnections))
	}
	return l
}

// SetLogger sets the logger for the listener.
func (l *Listener) SetLogger(logger Logger) {
	l.logger = logger
}

// SetAuditor installs an Auditor. Must be called before Start.
func (l *Listener) SetAuditor(a Auditor) {
	l.auditor = a
}

// Start binds the configured address and begins accepting in the background.
//
// A bind failure returns an error wrapping ErrBindFailed. Cancelling ctx
// has the same effect as calling Close.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln != nil {
		return ErrAlreadyStarted
	}

	addr := net.JoinHostPort(l.cfg.Host, strconv.Itoa(l.cfg.Port))

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBindFailed, addr, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.ln = ln
	l.cancel = cancel

	l.wg.Add(1)
	go l.acceptLoop(runCtx, ln)

	context.AfterFunc(runCtx, func() {
		l.Close() //nolint:errcheck // shutdown path
	})

	l.logger.Info("ingest listener started",
		"address", ln.Addr().String(),
		"max_connections", l.cfg.MaxConnections,
	)
	return nil
}

// Addr returns the bound address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Stats returns a snapshot of the listener counters.
func (l *Listener) Stats() Stats {
	return Stats{
		Accepted:        l.accepted.Load(),
		Succeeded:       l.succeeded.Load(),
		Rejected:        l.rejected.Load(),
		TransportErrors: l.transportErrors.Load(),
	}
}

// Close stops accepting and waits for in-flight connections to finish.
// Safe to call multiple times.
func (l *Listener) Close() error {
	l.done.Close()

	l.mu.Lock()
	ln, cancel := l.ln, l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var err error
	if ln != nil {
		if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}

	l.wg.Wait()
	return err
}

func (l *Listener) isClosed() bool {
	select {
	case <-l.done.Done():
		return true
	default:
		return false
	}
}

// acceptLoop runs until the listener is closed. Failed accepts are logged
// and retried with a short back-off.
func (l *Listener) acceptLoop(ctx context.Context, ln net.Listener) {
	defer l.wg.Done()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if l.isClosed() || errors.Is(err, net.ErrClosed) {
				return
			}
			backoff = nextBackoff(backoff)
			l.logger.Warn("accept failed", "error", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
			case <-l.done.Done():
				return
			}
			continue
		}
		backoff = 0
		l.accepted.Add(1)

		if l.sem != nil {
			if err := l.sem.Acquire(ctx, 1); err != nil {
				conn.Close()
				return
			}
		}

		l.wg.Add(1)
		go l.handle(conn)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > maxAcceptBackoff {
		d = maxAcceptBackoff
	}
	return d
}

// handle performs the single request/reply exchange on conn.
func (l *Listener) handle(conn net.Conn) {
	defer l.wg.Done()
	if l.sem != nil {
		defer l.sem.Release(1)
	}
	defer conn.Close()

	peer := peerHost(conn.RemoteAddr())

	if err := conn.SetReadDeadline(time.Now().Add(l.cfg.ReadTimeout)); err != nil {
		l.transportError(peer, "set read deadline", err)
		return
	}

	buf := make([]byte, l.cfg.MaxMessageSize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		l.transportError(peer, "read", err)
		return
	}

	// Undecodable requests are abandoned without a reply.
	if !utf8.Valid(buf[:n]) {
		l.transportError(peer, "decode", ErrInvalidEncoding)
		return
	}

	login, perr := ParseLogin(string(buf[:n]))

	if perr == nil {
		l.registry.Upsert(login.Name, login.RSSI, device.Metadata{
			SourceIP: peer,
			Source:   device.SourceTCP,
		})
		l.succeeded.Add(1)
		l.logger.Info("device updated", "device", login.Name, "rssi", login.RSSI, "ip", peer)
	} else {
		l.rejected.Add(1)
		l.logger.Warn("request rejected", "ip", peer, "error", perr)
	}

	if err := conn.SetWriteDeadline(time.Now().Add(l.cfg.ReadTimeout)); err != nil {
		l.transportError(peer, "set write deadline", err)
		return
	}
	if _, err := io.WriteString(conn, ReplyFor(perr)); err != nil {
		l.transportError(peer, "write reply", err)
	}

	if l.auditor != nil {
		l.auditor.RecordAttempt(Attempt{
			Name:     login.Name,
			RSSI:     login.RSSI,
			SourceIP: peer,
			Source:   device.SourceTCP,
			Err:      perr,
		})
	}
}

func (l *Listener) transportError(peer, op string, err error) {
	l.transportErrors.Add(1)

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		l.logger.Warn("connection timed out", "ip", peer, "op", op)
		return
	}
	l.logger.Warn("connection error", "ip", peer, "op", op, "error", err)
}

// peerHost returns the host part of addr, or its full string form when it
// has no port.
func peerHost(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
