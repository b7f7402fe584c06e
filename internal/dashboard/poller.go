package dashboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/rssimon/internal/device"
)

// Defaults for the poller cadence and history retention.
const (
	DefaultRefreshInterval = time.Second
	DefaultHistoryWindow   = 5 * time.Minute

	// EventFrame is the channel name frames are broadcast on.
	EventFrame = "dashboard.frame"
)

// Logger defines the logging interface used by the Poller.
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

// Snapshotter is the read side of the device registry.
type Snapshotter interface {
	Snapshot() map[string]device.Record
}

// Broadcaster pushes a payload to subscribers of a channel.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Sample is one point in a device's signal history.
type Sample struct {
	At   time.Time `json:"t"`
	RSSI int       `json:"rssi"`
}

// DeviceView is the presentation form of a registry record.
type DeviceView struct {
	Name     string        `json:"name"`
	IP       string        `json:"ip"`
	RSSI     int           `json:"rssi"`
	Quality  string        `json:"quality"`
	Distance float64       `json:"distance_m"`
	LastSeen time.Time     `json:"last_seen"`
	Source   device.Source `json:"source"`
	History  []Sample      `json:"history,omitempty"`
}

// ViewFor builds the view of rec without history.
func ViewFor(rec device.Record) DeviceView {
	return DeviceView{
		Name:     rec.Name,
		IP:       rec.SourceIP,
		RSSI:     rec.RSSI,
		Quality:  device.QualityFor(rec.RSSI),
		Distance: device.DistanceFor(rec.RSSI),
		LastSeen: rec.LastSeen,
		Source:   rec.Source,
	}
}

// Frame is one refresh of the dashboard.
type Frame struct {
	Devices   []DeviceView `json:"devices"`
	UpdatedAt time.Time    `json:"updated_at"`
	Count     int          `json:"count"`
}

// Config holds poller settings.
type Config struct {
	RefreshInterval time.Duration
	HistoryWindow   time.Duration
}

// Poller periodically snapshots the registry and derives dashboard frames.
//
// The registry never pushes to the dashboard; the poller pulls.
type Poller struct {
	source      Snapshotter
	broadcaster Broadcaster
	cfg         Config
	now         func() time.Time
	logger      Logger

	mu      sync.RWMutex
	latest  Frame
	history map[string][]Sample
}

// NewPoller creates a poller reading from source.
// broadcaster may be nil when no live clients are served.
func NewPoller(source Snapshotter, broadcaster Broadcaster, cfg Config) *Poller {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	return &Poller{
		source:      source,
		broadcaster: broadcaster,
		cfg:         cfg,
		now:         time.Now,
		logger:      noopLogger{},
		history:     make(map[string][]Sample),
	}
}

// SetLogger sets the logger for the poller.
func (p *Poller) SetLogger(logger Logger) {
	p.logger = logger
}

// Run refreshes once immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.RefreshInterval)
	defer ticker.Stop()

	p.Refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh()
		}
	}
}

// Refresh takes one snapshot, updates history, stores and broadcasts the frame.
func (p *Poller) Refresh() Frame {
	snap := p.source.Snapshot()
	now := p.now().UTC()
	cutoff := now.Add(-p.cfg.HistoryWindow)

	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	p.mu.Lock()
	for name := range p.history {
		if _, ok := snap[name]; !ok {
			delete(p.history, name)
		}
	}

	views := make([]DeviceView, 0, len(names))
	for _, name := range names {
		rec := snap[name]
		hist := trim(append(p.history[name], Sample{At: now, RSSI: rec.RSSI}), cutoff)
		p.history[name] = hist

		view := ViewFor(rec)
		view.History = append([]Sample(nil), hist...)
		views = append(views, view)
	}

	frame := Frame{Devices: views, UpdatedAt: now, Count: len(views)}
	p.latest = frame
	p.mu.Unlock()

	if p.broadcaster != nil {
		p.broadcaster.Broadcast(EventFrame, frame)
	}
	p.logger.Debug("dashboard refreshed", "devices", frame.Count)

	return frame
}

// Latest returns the most recent frame. Device slices are copies.
func (p *Poller) Latest() Frame {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := p.latest
	out.Devices = make([]DeviceView, len(p.latest.Devices))
	for i, v := range p.latest.Devices {
		v.History = append([]Sample(nil), v.History...)
		out.Devices[i] = v
	}
	return out
}

// trim drops samples older than cutoff. Samples are in time order.
func trim(samples []Sample, cutoff time.Time) []Sample {
	i := 0
	for i < len(samples) && samples[i].At.Before(cutoff) {
		i++
	}
	if i == 0 {
		return samples
	}
	return append(samples[:0:0], samples[i:]...)
}
