// Package database provides SQLite storage for rssimon.
//
// The only persistent data rssimon keeps is the login audit trail; the
// device registry itself is in memory. This package owns the connection
// and a small forward-migration runner.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are pairs of files named YYYYMMDD_HHMMSS_description.up.sql
// and .down.sql at the root of an fs.FS. Each is applied in its own
// transaction and recorded in schema_migrations.
//
// The database file is created with 0600 permissions. WAL mode and a busy
// timeout are enabled from config. Queries use parameterised statements.
package database
