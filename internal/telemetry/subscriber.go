package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/rssimon/internal/device"
	"github.com/nerrad567/rssimon/internal/infrastructure/mqtt"
)

// ErrInvalidReport is returned for report messages that cannot be applied.
var ErrInvalidReport = errors.New("telemetry: invalid report")

// Subscriber is the subset of *mqtt.Client the ReportSubscriber needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Upserter stores readings. Satisfied by *device.Registry.
type Upserter interface {
	Upsert(name string, rssi int, meta device.Metadata) device.Record
}

// Report is the payload of rssimon/report/{name}.
type Report struct {
	RSSI *int   `json:"rssi"`
	IP   string `json:"ip,omitempty"`
}

// ReportSubscriber applies RSSI reports published over MQTT.
type ReportSubscriber struct {
	client   Subscriber
	registry Upserter
	qos      byte
	logger   Logger
}

// NewReportSubscriber creates a subscriber that upserts into registry.
func NewReportSubscriber(client Subscriber, registry Upserter, qos byte) *ReportSubscriber {
	return &ReportSubscriber{
		client:   client,
		registry: registry,
		qos:      qos,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the subscriber.
func (s *ReportSubscriber) SetLogger(logger Logger) {
	s.logger = logger
}

// Start subscribes to every device report topic.
func (s *ReportSubscriber) Start() error {
	if err := s.client.Subscribe(mqtt.Topics{}.AllReports(), s.qos, s.HandleReport); err != nil {
		return fmt.Errorf("subscribing to reports: %w", err)
	}
	s.logger.Info("subscribed to device reports", "topic", mqtt.Topics{}.AllReports())
	return nil
}

// Stop removes the subscription.
func (s *ReportSubscriber) Stop() error {
	return s.client.Unsubscribe(mqtt.Topics{}.AllReports())
}

// HandleReport applies one report message. It is the MQTT message handler.
func (s *ReportSubscriber) HandleReport(topic string, payload []byte) error {
	name, ok := mqtt.Topics{}.DeviceFromReport(topic)
	if !ok || name == "" {
		return fmt.Errorf("%w: topic %q", ErrInvalidReport, topic)
	}

	var r Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidReport, name, err)
	}
	if r.RSSI == nil {
		return fmt.Errorf("%w: %s: missing rssi", ErrInvalidReport, name)
	}

	s.registry.Upsert(name, *r.RSSI, device.Metadata{SourceIP: r.IP, Source: device.SourceMQTT})
	s.logger.Debug("report applied", "device", name, "rssi", *r.RSSI)
	return nil
}
