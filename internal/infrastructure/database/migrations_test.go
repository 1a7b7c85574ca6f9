package database

import (
	"context"
	"testing"
	"testing/fstest"
	"time"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"sql/20260301_090000_create_items.up.sql": {
			Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);"),
		},
		"sql/20260302_090000_add_note.up.sql": {
			Data: []byte("ALTER TABLE items ADD COLUMN note TEXT;"),
		},
		"sql/20260301_090000_create_items.down.sql": {
			Data: []byte("DROP TABLE items;"),
		},
		"sql/README.md": {Data: []byte("ignored")},
	}
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fsys := testMigrations()
	if err := db.Migrate(ctx, fsys, "sql"); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO items (name, note) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("migrated schema unusable: %v", err)
	}

	applied, pending, err := db.MigrationStatus(ctx, fsys, "sql")
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("expected 2 applied migrations, got %d", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending migrations, got %d", len(pending))
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx, fsys, "sql"); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureRollsBackOnlyThatMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	fsys := testMigrations()
	fsys["sql/20260303_090000_broken.up.sql"] = &fstest.MapFile{Data: []byte("NOT SQL AT ALL")}

	if err := db.Migrate(ctx, fsys, "sql"); err == nil {
		t.Fatal("Migrate() expected error for broken migration")
	}

	applied, pending, err := db.MigrationStatus(ctx, fsys, "sql")
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 2 and 1", len(applied), len(pending))
	}
}

func TestMigrate_NilFS(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), nil, "."); err != nil {
		t.Errorf("Migrate() with nil fs error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantOk      bool
	}{
		{
			name:        "valid up migration",
			filename:    "20260301_090000_outbound_messages.up.sql",
			wantVersion: "20260301_090000",
			wantOk:      true,
		},
		{name: "down migration ignored", filename: "20260301_090000_outbound_messages.down.sql"},
		{name: "not sql file", filename: "readme.txt"},
		{name: "missing direction", filename: "20260301_090000_outbound_messages.sql"},
		{name: "invalid format", filename: "invalid.up.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Errorf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && version != tt.wantVersion {
				t.Errorf("version = %v, want %v", version, tt.wantVersion)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260301_090000_outbound_messages.up.sql", "outbound_messages"},
		{"20260302_090000_add_spool_index.up.sql", "add_spool_index"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := extractMigrationName(tt.filename); got != tt.want {
				t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
