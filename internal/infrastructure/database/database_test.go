package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpen(t *testing.T) {
	t.Run("creates file and parent directories", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "spool", "nested", "outbound.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		info, err := os.Stat(dbPath)
		if err != nil {
			t.Fatalf("database file missing: %v", err)
		}
		if perm := info.Mode().Perm(); perm != filePermissions {
			t.Errorf("file mode = %o, want %o", perm, filePermissions)
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %v, want %v", db.Path(), dbPath)
		}
	})

	t.Run("single writer connection", func(t *testing.T) {
		db := openTestDB(t)
		defer db.Close() //nolint:errcheck // Test cleanup

		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("MaxOpenConnections = %v, want 1", got)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		if _, err := Open(Config{}); err == nil {
			t.Error("Open() with empty path should fail")
		}
	})
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    []string
		notWant []string
	}{
		{
			name:    "rollback journal",
			cfg:     Config{Path: "/var/lib/solax/outbound.db", BusyTimeout: 5},
			want:    []string{"file:/var/lib/solax/outbound.db?", "_busy_timeout=5000"},
			notWant: []string{"_journal_mode"},
		},
		{
			name: "wal",
			cfg:  Config{Path: "spool.db", WALMode: true, BusyTimeout: 1},
			want: []string{"_busy_timeout=1000", "_journal_mode=WAL", "_synchronous=NORMAL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dsn(tt.cfg)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("dsn() = %q, missing %q", got, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("dsn() = %q, should not contain %q", got, w)
				}
			}
		})
	}
}

func TestCount(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "CREATE TABLE things (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("CREATE TABLE error = %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO things (id) VALUES (1), (2), (3)"); err != nil {
		t.Fatalf("INSERT error = %v", err)
	}

	n, err := db.Count(ctx, "things")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}

	if _, err := db.Count(ctx, "missing"); err == nil {
		t.Error("Count() on a missing table should fail")
	}
}

func TestClose(t *testing.T) {
	db := openTestDB(t)

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	return db
}
