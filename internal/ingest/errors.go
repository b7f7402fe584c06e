package ingest

import "errors"

// Domain errors for the ingest package.
var (
	// ErrAuthenticationFailed is returned when a request does not have exactly
	// three fields or does not start with the login keyword.
	ErrAuthenticationFailed = errors.New("ingest: authentication failed")

	// ErrInvalidRSSI is returned when the RSSI field is not a decimal integer.
	ErrInvalidRSSI = errors.New("ingest: invalid rssi")

	// ErrInvalidEncoding is returned when a request is not valid UTF-8.
	ErrInvalidEncoding = errors.New("ingest: invalid encoding")

	// ErrBindFailed is returned when the listener cannot bind its address.
	ErrBindFailed = errors.New("ingest: bind failed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("ingest: already started")
)
