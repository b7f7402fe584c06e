package device

import (
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Observer is notified after every accepted update.
type Observer interface {
	DeviceUpdated(rec Record)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(rec Record)

// DeviceUpdated calls f(rec).
func (f ObserverFunc) DeviceUpdated(rec Record) { f(rec) }

// Option configures a Registry at construction.
type Option func(*Registry)

// WithLifecycle selects the record lifecycle. The default is LifecyclePruneOnRead.
func WithLifecycle(l Lifecycle) Option {
	return func(r *Registry) { r.lifecycle = l }
}

// WithStaleAfter overrides the staleness window used by LifecyclePruneOnRead.
func WithStaleAfter(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.staleAfter = d
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry holds the latest reading for every device, keyed by name.
//
// A single mutex guards the map. Critical sections are limited to mutating
// one entry, or pruning and copying the whole map. The lock is never held
// across I/O or observer calls.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.Mutex
	records map[string]Record

	lifecycle  Lifecycle
	staleAfter time.Duration
	now        func() time.Time

	obsMu     sync.RWMutex
	observers []Observer

	logger Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		records:    make(map[string]Record),
		lifecycle:  LifecyclePruneOnRead,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
		logger:     noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Lifecycle reports the lifecycle this registry was built with.
func (r *Registry) Lifecycle() Lifecycle {
	return r.lifecycle
}

// AddObserver registers o to be called after each Upsert.
// Observers run on the upserting goroutine, in registration order,
// after the registry lock has been released.
func (r *Registry) AddObserver(o Observer) {
	r.obsMu.Lock()
	r.observers = append(r.observers, o)
	r.obsMu.Unlock()
}

// Upsert stores the reading for name, replacing any previous record.
// LastSeen is set to the current time and Active to true.
// The stored record is returned.
func (r *Registry) Upsert(name string, rssi int, meta Metadata) Record {
	rec := Record{
		Name:     name,
		RSSI:     rssi,
		LastSeen: r.now().UTC(),
		SourceIP: meta.SourceIP,
		Active:   true,
		Source:   meta.Source,
	}

	r.mu.Lock()
	r.records[name] = rec
	r.mu.Unlock()

	r.logger.Debug("device updated", "device", name, "rssi", rssi, "source", string(meta.Source), "ip", meta.SourceIP)

	r.notify(rec)
	return rec
}

// Snapshot returns a copy of every record.
//
// Under LifecyclePruneOnRead, records last seen more than the staleness
// window ago are deleted first, under the same lock as the copy.
// The returned map is owned by the caller.
func (r *Registry) Snapshot() map[string]Record {
	var pruned []string

	r.mu.Lock()
	if r.lifecycle == LifecyclePruneOnRead {
		now := r.now()
		for name, rec := range r.records {
			if rec.Age(now) > r.staleAfter {
				delete(r.records, name)
				pruned = append(pruned, name)
			}
		}
	}
	out := make(map[string]Record, len(r.records))
	for name, rec := range r.records {
		out[name] = rec
	}
	r.mu.Unlock()

	for _, name := range pruned {
		r.logger.Info("removed stale device", "device", name)
	}

	return out
}

// Get returns a copy of the record for name without pruning.
func (r *Registry) Get(name string) (Record, bool) {
	r.mu.Lock()
	rec, ok := r.records[name]
	r.mu.Unlock()
	return rec, ok
}

// Count returns the number of records currently held.
// Stale records still count until a Snapshot prunes them.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// notify delivers rec to every observer. A panicking observer is logged
// and does not prevent delivery to the rest.
func (r *Registry) notify(rec Record) {
	r.obsMu.RLock()
	observers := r.observers
	r.obsMu.RUnlock()

	for _, o := range observers {
		r.deliver(o, rec)
	}
}

func (r *Registry) deliver(o Observer, rec Record) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("observer panicked", "device", rec.Name, "panic", p)
		}
	}()
	o.DeviceUpdated(rec)
}
