package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260301_120000_readings.up.sql": {Data: []byte(
			"CREATE TABLE readings (id INTEGER PRIMARY KEY, device TEXT NOT NULL, rssi INTEGER NOT NULL);")},
		"20260301_120000_readings.down.sql": {Data: []byte("DROP TABLE readings;")},
		"20260302_090000_sites.up.sql": {Data: []byte(
			"CREATE TABLE sites (id TEXT PRIMARY KEY);")},
		"README.md":                       {Data: []byte("not a migration")},
		"20260303_000000_orphan.down.sql": {Data: []byte("DROP TABLE nothing;")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("sqlite_master query error = %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := testMigrations()

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "readings") || !tableExists(t, db, "sites") {
		t.Fatal("migrations did not create tables")
	}

	applied, pending, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2 and 0", len(applied), len(pending))
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not recorded")
	}

	// Idempotent.
	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureKeepsEarlier(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	fsys["20260302_090000_sites.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE broken (")}

	if err := db.Migrate(ctx, fsys); err == nil {
		t.Fatal("Migrate() with broken SQL should fail")
	}
	if !tableExists(t, db, "readings") {
		t.Error("earlier migration should stay committed")
	}

	applied, pending, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 1 and 1", len(applied), len(pending))
	}
}

func TestMigrate_NoMigrations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, nil); err != nil {
		t.Errorf("Migrate(nil) error = %v", err)
	}
	if err := db.Migrate(ctx, fstest.MapFS{}); err != nil {
		t.Errorf("Migrate(empty) error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	delete(fsys, "20260302_090000_sites.up.sql")

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, fsys); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "readings") {
		t.Error("readings should have been dropped")
	}

	applied, _, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("applied = %d after rollback, want 0", len(applied))
	}

	// Nothing left to roll back.
	if err := db.MigrateDown(ctx, fsys); err != nil {
		t.Errorf("MigrateDown() on empty history error = %v", err)
	}
}

func TestMigrateDown_NoDownSQL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := testMigrations()

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	// The latest migration (sites) has no down file.
	if err := db.MigrateDown(ctx, fsys); !errors.Is(err, ErrNoDownMigration) {
		t.Errorf("MigrateDown() error = %v, want ErrNoDownMigration", err)
	}
}

func TestLoadMigrations(t *testing.T) {
	ms, err := LoadMigrations(testMigrations())
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("len = %d, want 2 (orphan down and README ignored)", len(ms))
	}
	if ms[0].Version != "20260301_120000" || ms[0].Name != "readings" || ms[0].DownSQL == "" {
		t.Errorf("first migration = %+v", ms[0])
	}
	if ms[1].Version != "20260302_090000" || ms[1].DownSQL != "" {
		t.Errorf("second migration = %+v", ms[1])
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260301_120000_audit_logs.up.sql", "20260301_120000", "audit_logs", true, true},
		{"20260301_120000_audit_logs.down.sql", "20260301_120000", "audit_logs", false, true},
		{"20260301_120000.up.sql", "20260301_120000", "20260301_120000", true, true},
		{"audit.up.sql", "", "", false, false},
		{"20260301_120000_audit.sql", "", "", false, false},
		{"20260301_120000_audit.up.txt", "", "", false, false},
		{"2026_1200_short.up.sql", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion || name != tt.wantName || up != tt.wantUp {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)",
					version, name, up, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}
