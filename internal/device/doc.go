// Package device provides the in-memory Device Registry for rssimon.
//
// The registry keeps the most recent RSSI reading for every device that has
// reported, keyed by the device name the client chose. It is the only shared
// mutable state in the server: the ingestion listener writes to it, and the
// HTTP API, dashboard poller and telemetry fan-out read from it.
//
// # Architecture
//
//	┌──────────────┐  Upsert   ┌──────────────────────┐  Snapshot  ┌──────────────┐
//	│ TCP listener │──────────▶│       Registry       │◀───────────│  Dashboard   │
//	│  web submit  │           │                      │            │   HTTP API   │
//	│ MQTT reports │           │ • name -> Record     │            └──────────────┘
//	└──────────────┘           │ • one mutex          │
//	                           │ • prune-on-read or   │  Observer  ┌──────────────┐
//	                           │   retain-forever     │───────────▶│  Telemetry   │
//	                           └──────────────────────┘            └──────────────┘
//
// # Lifecycle
//
// A registry is built with exactly one lifecycle:
//
//   - LifecyclePruneOnRead (default): Snapshot deletes records last seen more
//     than 30 seconds ago, then returns the copy.
//   - LifecycleRetainForever: records are never removed.
//
// # Usage
//
//	reg := device.NewRegistry(device.WithLifecycle(device.LifecyclePruneOnRead))
//	reg.SetLogger(log)
//
//	reg.Upsert("sensor-1", -65, device.Metadata{SourceIP: "10.0.0.7", Source: device.SourceTCP})
//
//	for name, rec := range reg.Snapshot() {
//	    fmt.Println(name, rec.RSSI, device.QualityFor(rec.RSSI))
//	}
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Every read returns a copy, so
// callers never share memory with the registry.
package device
