package audit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nerrad567/rssimon/internal/ingest"
)

// Recorder defaults.
const (
	DefaultWriteTimeout = 2 * time.Second
	DefaultQueueSize    = 256
)

// Logger defines the logging interface used by the Recorder.
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

// Recorder turns login attempts into audit entries. It implements
// ingest.Auditor.
//
// RecordAttempt only enqueues; Run writes entries one at a time, which
// suits SQLite's single writer. When the queue is full the entry is dropped.
type Recorder struct {
	repo    Repository
	queue   chan *AuditLog
	timeout time.Duration
	now     func() time.Time
	logger  Logger

	dropped atomic.Int64
}

// NewRecorder creates a Recorder writing to repo.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{
		repo:    repo,
		queue:   make(chan *AuditLog, DefaultQueueSize),
		timeout: DefaultWriteTimeout,
		now:     time.Now,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// RecordAttempt queues one login attempt.
func (r *Recorder) RecordAttempt(a ingest.Attempt) {
	entry := EntryFor(a, r.now())
	select {
	case r.queue <- entry:
	default:
		r.dropped.Add(1)
		r.logger.Warn("audit queue full, dropping entry", "action", entry.Action, "device", entry.Device)
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Run writes queued entries until ctx is cancelled, then drains the queue.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case entry := <-r.queue:
			r.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.queue:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Error("audit write failed", "action", entry.Action, "device", entry.Device, "error", err)
	}
}

// EntryFor builds the audit entry for an attempt.
func EntryFor(a ingest.Attempt, at time.Time) *AuditLog {
	entry := &AuditLog{
		Action:    ActionLoginSuccess,
		Device:    a.Name,
		Source:    string(a.Source),
		CreatedAt: at,
		Details: map[string]any{
			"source_ip": a.SourceIP,
		},
	}
	if a.Err != nil {
		entry.Action = ActionLoginRejected
		entry.Details["reason"] = a.Err.Error()
		return entry
	}
	entry.Details["rssi"] = a.RSSI
	return entry
}

var _ ingest.Auditor = (*Recorder)(nil)
