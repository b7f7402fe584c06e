// Package audit keeps an optional SQLite trail of login attempts.
//
// Every request the ingest listener or the web submit endpoint parses is
// recorded as login_success or login_rejected, with the device name, the
// source (tcp or web) and details such as the peer address, RSSI and
// rejection reason. Attempts are queued and written by a single goroutine;
// a full queue or failed write is only logged, so the trail never changes
// what a client sees.
//
//	repo := audit.NewSQLiteRepository(db.DB)
//	rec := audit.NewRecorder(repo)
//	go rec.Run(ctx)
//	listener.SetAuditor(rec)
//
//	page, err := repo.List(ctx, audit.Filter{Device: "sensor-1", Limit: 20})
package audit
