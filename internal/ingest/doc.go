// Package ingest implements the TCP ingestion listener.
//
// Wire protocol, one exchange per connection:
//
//	client -> server   login|<device_name>|<rssi>
//	server -> client   SUCCESS
//	                   ERROR: Authentication failed
//	                   ERROR: Invalid RSSI format
//
// The server reads at most 1024 bytes within 10 seconds, strips trailing
// whitespace, replies with one token and closes. A connection that times out
// or fails before any bytes arrive gets no reply and causes no update.
//
// "login" is a fixed keyword, not a credential. The protocol is plain text
// and must only be exposed on trusted networks.
//
// Usage:
//
//	l := ingest.New(ingest.DefaultConfig(), registry)
//	l.SetLogger(log.With("component", "ingest"))
//	if err := l.Start(ctx); err != nil {
//	    return err // wraps ingest.ErrBindFailed
//	}
//	defer l.Close()
package ingest
