// Package influxdb provides InfluxDB connectivity for rssimon.
//
// It wraps the official influxdb-client-go v2 library. Every accepted RSSI
// update can be recorded as a point in the "rssi" measurement, tagged with
// the device name and ingestion source, so signal strength can be charted
// over longer windows than the live dashboard keeps.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // time-series recording off
//	}
//	defer client.Close()
//
//	client.WriteRSSI("sensor-1", "tcp", -65, "Fair", time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched; write failures are delivered to the SetOnError callback.
package influxdb
