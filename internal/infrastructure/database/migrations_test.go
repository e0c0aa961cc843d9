package database

import (
	"context"
	"embed"
	"testing"
	"testing/fstest"
	"time"
)

//go:embed testdata/*.sql
var testMigrationsFS embed.FS

var testSource = Source{FS: testMigrationsFS, Dir: "testdata"}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE name = ?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return count > 0
}

// TestMigrateFrom verifies migrations apply in order and are idempotent.
func TestMigrateFrom(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.MigrateFrom(ctx, testSource); err != nil {
		t.Fatalf("MigrateFrom() error = %v", err)
	}

	if !tableExists(t, db, "test_fixtures") {
		t.Error("table test_fixtures not created")
	}
	// The index migration depends on the table migration running first.
	if !tableExists(t, db, "idx_test_fixtures_body") {
		t.Error("index idx_test_fixtures_body not created")
	}

	applied, pending, err := db.statusFrom(ctx, testSource)
	if err != nil {
		t.Fatalf("statusFrom() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("expected 2 applied migrations, got %d", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending migrations, got %d", len(pending))
	}

	if err := db.MigrateFrom(ctx, testSource); err != nil {
		t.Fatalf("second MigrateFrom() error = %v", err)
	}
}

// TestMigrateDownFrom verifies only the latest migration is rolled back.
func TestMigrateDownFrom(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()

	if err := db.MigrateFrom(ctx, testSource); err != nil {
		t.Fatalf("MigrateFrom() error = %v", err)
	}
	if err := db.MigrateDownFrom(ctx, testSource); err != nil {
		t.Fatalf("MigrateDownFrom() error = %v", err)
	}

	if tableExists(t, db, "idx_test_fixtures_body") {
		t.Error("index should have been dropped")
	}
	if !tableExists(t, db, "test_fixtures") {
		t.Error("table test_fixtures should remain after one rollback")
	}

	applied, _, err := db.statusFrom(ctx, testSource)
	if err != nil {
		t.Fatalf("statusFrom() error = %v", err)
	}
	if len(applied) != 1 || applied[0].Version != "20260101_000000" {
		t.Errorf("applied after rollback = %+v, want only 20260101_000000", applied)
	}
}

func TestMigrateDownFrom_NothingApplied(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.MigrateDownFrom(context.Background(), testSource); err != nil {
		t.Errorf("MigrateDownFrom() with nothing applied error = %v", err)
	}
}

func TestMigrateDownFrom_MissingDownSQL(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	src := Source{FS: fstest.MapFS{
		"20260101_000000_one_way.up.sql": {Data: []byte("CREATE TABLE one_way (id INTEGER)")},
	}}
	ctx := context.Background()

	if err := db.MigrateFrom(ctx, src); err != nil {
		t.Fatalf("MigrateFrom() error = %v", err)
	}
	if err := db.MigrateDownFrom(ctx, src); err == nil {
		t.Error("MigrateDownFrom() expected error for migration without down SQL")
	}
}

func TestMigrateFrom_FailureKeepsEarlierMigrations(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	src := Source{FS: fstest.MapFS{
		"20260101_000000_ok.up.sql":     {Data: []byte("CREATE TABLE ok_table (id INTEGER)")},
		"20260102_000000_broken.up.sql": {Data: []byte("CREATE TABLE (")},
	}}
	ctx := context.Background()

	if err := db.MigrateFrom(ctx, src); err == nil {
		t.Fatal("MigrateFrom() expected error for broken migration")
	}
	if !tableExists(t, db, "ok_table") {
		t.Error("earlier migration should stay committed")
	}

	applied, pending, err := db.statusFrom(ctx, src)
	if err != nil {
		t.Fatalf("statusFrom() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 1 and 1", len(applied), len(pending))
	}
}

// TestMigrate_Registered verifies Migrate uses the registered source.
func TestMigrate_Registered(t *testing.T) {
	orig := registeredSource()
	defer RegisterMigrations(orig.FS, orig.Dir)

	RegisterMigrations(testMigrationsFS, "testdata")

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()

	_, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("expected 2 pending, got %d", len(pending))
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
}

func TestMigrateFrom_NoSource(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.MigrateFrom(context.Background(), Source{}); err != nil {
		t.Fatalf("MigrateFrom() with no source error = %v", err)
	}
}

// TestParseMigrationFilename verifies filename parsing.
func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{
			name:        "valid up migration",
			filename:    "20260301_120000_motion_sequences.up.sql",
			wantVersion: "20260301_120000",
			wantIsUp:    true,
			wantOk:      true,
		},
		{
			name:        "valid down migration",
			filename:    "20260301_120000_motion_sequences.down.sql",
			wantVersion: "20260301_120000",
			wantIsUp:    false,
			wantOk:      true,
		},
		{name: "not sql file", filename: "readme.txt"},
		{name: "missing direction", filename: "20260301_120000_motion_sequences.sql"},
		{name: "invalid format", filename: "invalid.up.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Errorf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok {
				if version != tt.wantVersion {
					t.Errorf("version = %v, want %v", version, tt.wantVersion)
				}
				if isUp != tt.wantIsUp {
					t.Errorf("isUp = %v, want %v", isUp, tt.wantIsUp)
				}
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260301_120000_motion_sequences.up.sql", "motion_sequences"},
		{"20260301_120100_playback_runs.down.sql", "playback_runs"},
		{"20260301_120000_add_index_to_runs.up.sql", "add_index_to_runs"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := extractMigrationName(tt.filename); got != tt.want {
				t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
