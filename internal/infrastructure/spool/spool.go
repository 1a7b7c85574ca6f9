package spool

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownBackend is returned by Open for an unsupported storage name.
	ErrUnknownBackend = errors.New("spool: unknown storage backend")

	// ErrNotFound is returned by Ack when the id is not at the head of the spool.
	ErrNotFound = errors.New("spool: message not found")

	// ErrClosed is returned by operations on a closed spool.
	ErrClosed = errors.New("spool: closed")
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Message is one publish waiting for upstream delivery.
type Message struct {
	ID         uint64    `json:"id"`
	Topic      string    `json:"topic"`
	Payload    []byte    `json:"payload"`
	Retained   bool      `json:"retained"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Spool is a FIFO of outbound messages.
//
// Implementations must be safe for concurrent use. Peek returns the oldest
// message without removing it; Ack removes it once delivered.
type Spool interface {
	// Push appends a message and returns its assigned id.
	Push(m Message) (uint64, error)

	// Peek returns the oldest message, or ok=false when empty.
	Peek() (m Message, ok bool, err error)

	// Ack removes the message with the given id.
	Ack(id uint64) error

	// Len returns the number of messages held.
	Len() int

	// Close releases the underlying storage.
	Close() error
}

// Config selects and parameterises a backend.
type Config struct {
	Backend string
	// Path is the spool file for the sqlite and bolt backends.
	Path string
	// BusyTimeout is the sqlite lock wait in seconds.
	BusyTimeout int
}

// Open creates the spool described by cfg.
func Open(cfg Config) (Spool, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(cfg.Path, cfg.BusyTimeout)
	case BackendBolt:
		return OpenBolt(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
