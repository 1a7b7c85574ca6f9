// Package database provides SQLite connectivity for the durable outbound spool.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Additive schema migrations read from an fs.FS
//   - Connection lifecycle and row counts
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/outbound.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
//	    log.Fatal(err)
//	}
package database
