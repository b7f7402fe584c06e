package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementRSSI is the measurement every accepted update is written to.
const MeasurementRSSI = "rssi"

// RSSIPoint builds the point for one accepted update.
//
// Tags: device, source. Fields: rssi (dBm), quality (label).
func RSSIPoint(device, source string, rssi int, quality string, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementRSSI,
		map[string]string{
			"device": device,
			"source": source,
		},
		map[string]interface{}{
			"rssi":    rssi,
			"quality": quality,
		},
		at,
	)
}

// WriteRSSI buffers one reading for the next batch. Readings written after
// Close are dropped.
func (c *Client) WriteRSSI(device, source string, rssi int, quality string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(RSSIPoint(device, source, rssi, quality, at))
}
