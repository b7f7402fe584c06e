package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nerrad567/rssimon/internal/device"
	"github.com/nerrad567/rssimon/internal/infrastructure/mqtt"
)

// DefaultQueueSize is the number of pending updates the Fanout buffers.
const DefaultQueueSize = 256

// Logger defines the logging interface used by this package.
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

// StatePublisher publishes retained JSON state. Satisfied by *mqtt.Client.
type StatePublisher interface {
	PublishJSON(topic string, v any) error
}

// PointWriter records RSSI samples. Satisfied by *influxdb.Client.
type PointWriter interface {
	WriteRSSI(device, source string, rssi int, quality string, at time.Time)
}

// DeviceState is the retained message published for each device.
type DeviceState struct {
	Name     string    `json:"name"`
	RSSI     int       `json:"rssi"`
	Quality  string    `json:"quality"`
	Distance float64   `json:"distance_m"`
	IP       string    `json:"ip,omitempty"`
	Source   string    `json:"source"`
	LastSeen time.Time `json:"last_seen"`
}

// StateFor converts a registry record to its published form.
func StateFor(rec device.Record) DeviceState {
	return DeviceState{
		Name:     rec.Name,
		RSSI:     rec.RSSI,
		Quality:  device.QualityFor(rec.RSSI),
		Distance: device.DistanceFor(rec.RSSI),
		IP:       rec.SourceIP,
		Source:   string(rec.Source),
		LastSeen: rec.LastSeen,
	}
}

// Fanout forwards registry updates to MQTT and InfluxDB.
//
// It implements device.Observer. DeviceUpdated never blocks the writer:
// updates are queued and delivered by Run, and dropped when the queue is
// full. Either sink may be nil.
type Fanout struct {
	publisher StatePublisher
	writer    PointWriter
	queue     chan device.Record
	logger    Logger

	dropped   atomic.Int64
	delivered atomic.Int64
}

// NewFanout creates a Fanout. queueSize <= 0 uses DefaultQueueSize.
func NewFanout(publisher StatePublisher, writer PointWriter, queueSize int) *Fanout {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Fanout{
		publisher: publisher,
		writer:    writer,
		queue:     make(chan device.Record, queueSize),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the fan-out.
func (f *Fanout) SetLogger(logger Logger) {
	f.logger = logger
}

// DeviceUpdated queues rec for delivery.
func (f *Fanout) DeviceUpdated(rec device.Record) {
	select {
	case f.queue <- rec:
	default:
		if f.dropped.Add(1)%100 == 1 {
			f.logger.Warn("telemetry queue full, dropping updates", "device", rec.Name, "dropped_total", f.dropped.Load())
		}
	}
}

// Run delivers queued updates until ctx is cancelled, then drains what is
// already queued.
func (f *Fanout) Run(ctx context.Context) {
	for {
		select {
		case rec := <-f.queue:
			f.deliver(rec)
		case <-ctx.Done():
			for {
				select {
				case rec := <-f.queue:
					f.deliver(rec)
				default:
					return
				}
			}
		}
	}
}

// Dropped returns how many updates were discarded because the queue was full.
func (f *Fanout) Dropped() int64 {
	return f.dropped.Load()
}

// Delivered returns how many updates have been forwarded.
func (f *Fanout) Delivered() int64 {
	return f.delivered.Load()
}

func (f *Fanout) deliver(rec device.Record) {
	state := StateFor(rec)

	if f.publisher != nil {
		if err := f.publisher.PublishJSON(mqtt.Topics{}.DeviceState(rec.Name), state); err != nil {
			f.logger.Warn("publishing device state failed", "device", rec.Name, "error", err)
		}
	}
	if f.writer != nil {
		f.writer.WriteRSSI(rec.Name, state.Source, rec.RSSI, state.Quality, rec.LastSeen)
	}
	f.delivered.Add(1)
}

var _ device.Observer = (*Fanout)(nil)
