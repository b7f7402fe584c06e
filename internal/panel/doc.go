// Package panel serves the rssimon reporter page.
//
// The page posts readings to /api/v1/submit and keeps a live device table
// from dashboard.frame events on /ws. It is compiled into the binary; the
// api.panel_dir setting serves it from disk instead.
package panel
