// Package migrations embeds the SQL migration files for the outbound spool.
//
// They are compiled into the executable so the sqlite spool backend can
// create its schema without the files present on disk.
package migrations

import "embed"

// FS holds every migration file; they live at its root.
//
//go:embed *.sql
var FS embed.FS

// Dir is the directory within FS that holds the migrations.
const Dir = "."
