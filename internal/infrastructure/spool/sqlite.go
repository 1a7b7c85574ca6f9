package spool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/solax-bridge/internal/infrastructure/database"
	"github.com/nerrad567/solax-bridge/migrations"
)

// sqliteTimeout bounds every spool statement.
const sqliteTimeout = 5 * time.Second

// SQLite keeps the spool in the outbound_messages table.
type SQLite struct {
	db    *database.DB
	count atomic.Int64
}

// OpenSQLite opens (or creates) the spool database at path and applies migrations.
func OpenSQLite(path string, busyTimeout int) (*SQLite, error) {
	db, err := database.Open(database.Config{
		Path:        path,
		WALMode:     true,
		BusyTimeout: busyTimeout,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("migrating spool: %w", err)
	}

	n, err := db.Count(ctx, "outbound_messages")
	if err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, err
	}

	s := &SQLite{db: db}
	s.count.Store(n)
	return s, nil
}

// Push implements Spool.
func (s *SQLite) Push(m Message) (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	if m.EnqueuedAt.IsZero() {
		m.EnqueuedAt = time.Now()
	}
	if m.Payload == nil {
		m.Payload = []byte{}
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO outbound_messages (topic, payload, retained, enqueued_at) VALUES (?, ?, ?, ?)",
		m.Topic, m.Payload, m.Retained, m.EnqueuedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("spooling message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("spooling message: %w", err)
	}

	s.count.Add(1)
	return uint64(id), nil //nolint:gosec // AUTOINCREMENT ids are positive
}

// Peek implements Spool.
func (s *SQLite) Peek() (Message, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	var (
		m          Message
		id         int64
		enqueuedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, topic, payload, retained, enqueued_at FROM outbound_messages ORDER BY id LIMIT 1",
	).Scan(&id, &m.Topic, &m.Payload, &m.Retained, &enqueuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, fmt.Errorf("reading spool head: %w", err)
	}

	m.ID = uint64(id) //nolint:gosec // AUTOINCREMENT ids are positive
	m.EnqueuedAt, _ = time.Parse(time.RFC3339Nano, enqueuedAt) //nolint:errcheck // Format is controlled
	return m, true, nil
}

// Ack implements Spool.
func (s *SQLite) Ack(id uint64) error {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, "DELETE FROM outbound_messages WHERE id = ?", int64(id)) //nolint:gosec // ids come from Push
	if err != nil {
		return fmt.Errorf("acknowledging message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports rows affected
		return ErrNotFound
	}

	s.count.Add(-1)
	return nil
}

// Len implements Spool.
func (s *SQLite) Len() int {
	return int(s.count.Load())
}

// Close implements Spool.
func (s *SQLite) Close() error {
	return s.db.Close()
}
