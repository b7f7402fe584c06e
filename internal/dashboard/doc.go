// Package dashboard turns registry snapshots into live dashboard frames.
//
// A Poller calls Snapshot once per refresh interval, annotates every record
// with its quality label and distance estimate, keeps a rolling signal
// history per device and hands the resulting Frame to a Broadcaster (the
// WebSocket hub). The HTTP API serves the same frame via Latest.
//
// Devices that drop out of the snapshot lose their history.
package dashboard
