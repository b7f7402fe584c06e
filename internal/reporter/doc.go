// Package reporter is the client side of rssimon.
//
// A reporter reads the host's Wi-Fi signal strength and sends it to the
// ingestion server as "login|<name>|<rssi>" over a fresh TCP connection,
// once per interval. On Windows the signal comes from
// `netsh wlan show interfaces` (percent converted to dBm); on Linux from
// /proc/net/wireless. When neither yields a value, -70 dBm is sent.
package reporter
