package mqtt

import (
	"net/url"
	"strings"
)

// Topic layout:
//
//	rssimon/device/{name}/state   retained JSON state per device (published)
//	rssimon/report/{name}         RSSI reports from MQTT-capable reporters (subscribed)
//	rssimon/system/status         online/offline status with LWT
const (
	// TopicPrefix is the root of every rssimon topic.
	TopicPrefix = "rssimon"

	topicDevice = TopicPrefix + "/device/"
	topicReport = TopicPrefix + "/report/"
)

// Topics provides builders for rssimon MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.DeviceState("sensor-1") // "rssimon/device/sensor-1/state"
type Topics struct{}

// DeviceState returns the retained state topic for a device.
func (Topics) DeviceState(name string) string {
	return topicDevice + EscapeLevel(name) + "/state"
}

// Report returns the report topic for a device.
func (Topics) Report(name string) string {
	return topicReport + EscapeLevel(name)
}

// AllReports returns the wildcard subscription for every device report.
func (Topics) AllReports() string {
	return topicReport + "+"
}

// SystemStatus returns the server status topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// DeviceFromReport extracts the device name from a report topic.
// Returns false if topic is not a single-level report topic.
func (Topics) DeviceFromReport(topic string) (string, bool) {
	level, ok := strings.CutPrefix(topic, topicReport)
	if !ok || strings.Contains(level, "/") {
		return "", false
	}
	name, err := UnescapeLevel(level)
	if err != nil {
		return "", false
	}
	return name, true
}

// EscapeLevel makes an arbitrary device name safe to use as one topic level.
// Separators and wildcards are percent-encoded.
func EscapeLevel(name string) string {
	// QueryEscape encodes '/', '+' and '#'; spaces come out as '+', which is
	// a wildcard in MQTT, so they are re-encoded.
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

// UnescapeLevel reverses EscapeLevel.
func UnescapeLevel(level string) (string, error) {
	return url.QueryUnescape(level)
}
