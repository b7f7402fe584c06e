// Package logging provides structured logging for rssimon.
//
// This package wraps Go's standard log/slog package so that the server,
// the ingestion listener and the reporter CLI all emit the same shape of
// entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("device updated", "device", name, "rssi", rssi)
//
// Never log the login keyword or broker credentials.
package logging
