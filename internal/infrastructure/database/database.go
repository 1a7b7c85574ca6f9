package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirPermissions  = 0750
	filePermissions = 0600

	// pingTimeout bounds the connectivity check in Open.
	pingTimeout = 5 * time.Second
)

// DB is a single-connection SQLite handle. The spool is the only writer,
// so one pooled connection serialises every statement.
type DB struct {
	*sql.DB
	path string
}

// Config contains database options. The bridge fills it from the
// mqtt.queue section of the config file.
type Config struct {
	// Path of the database file; missing parent directories are created.
	Path string

	// WALMode switches the journal to write-ahead logging.
	WALMode bool

	// BusyTimeout is how long a statement waits on a lock, in seconds.
	BusyTimeout int
}

// Open opens (or creates) the database at cfg.Path and verifies it with a ping.
//
// Parameters:
//   - cfg: Database configuration
//
// Returns:
//   - *DB: Open database
//   - error: If the directory, file or connection cannot be set up
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("opening database: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// The driver creates the file lazily; after the ping it exists.
	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // Permissions are best effort

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// dsn builds the go-sqlite3 connection string for cfg.
// See https://github.com/mattn/go-sqlite3#connection-string.
func dsn(cfg Config) string {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprint(time.Duration(cfg.BusyTimeout)*time.Second/time.Millisecond))
	if cfg.WALMode {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Close closes the database. Closing a zero DB is a no-op.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Count returns the number of rows in table.
func (db *DB) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil { //nolint:gosec // table names are constants
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}
