// Package telemetry connects the device registry to MQTT and InfluxDB.
//
// Fanout observes the registry and, for every update, publishes a retained
// state message on rssimon/device/{name}/state and writes an "rssi" point.
// ReportSubscriber is the inbound side: devices that speak MQTT publish
// {"rssi": -65} to rssimon/report/{name} and the reading is applied as if
// it had arrived over TCP, with source "mqtt".
package telemetry
