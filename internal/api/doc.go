// Package api implements the HTTP API, web form endpoints and WebSocket
// dashboard feed for rssimon.
//
// This package provides:
//   - The reporter page at / and its JSON submit endpoint
//   - Read endpoints for device status, the registry snapshot and the
//     latest dashboard frame
//   - A WebSocket hub that pushes dashboard.frame events to browsers
//   - Health, metrics and audit log endpoints
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The web form is a second ingestion path next to the TCP listener. A
// submission is checked against the fixed login keyword and then written
// straight into the device registry, tagged with source "web". Readers
// never see partial state: every handler works on registry copies.
//
// The dashboard poller owns the frame schedule. The server only forwards
// frames through its hub and serves the latest one to new connections.
//
// # Graceful Degradation
//
// MQTT, InfluxDB and the audit database are optional. Without them the
// corresponding metrics report enabled=false and /api/v1/audit answers 503.
package api
