package spool

import (
	"sync"
	"time"
)

// Memory is an in-process spool. Its contents do not survive a restart.
type Memory struct {
	mu     sync.Mutex
	items  []Message
	nextID uint64
	closed bool
}

// NewMemory returns an empty in-memory spool.
func NewMemory() *Memory {
	return &Memory{}
}

// Push implements Spool.
func (s *Memory) Push(m Message) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	s.nextID++
	m.ID = s.nextID
	if m.EnqueuedAt.IsZero() {
		m.EnqueuedAt = time.Now()
	}
	s.items = append(s.items, m)
	return m.ID, nil
}

// Peek implements Spool.
func (s *Memory) Peek() (Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Message{}, false, ErrClosed
	}
	if len(s.items) == 0 {
		return Message{}, false, nil
	}
	return s.items[0], true, nil
}

// Ack implements Spool.
func (s *Memory) Ack(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.items {
		if m.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Len implements Spool.
func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close implements Spool.
func (s *Memory) Close() error {
	s.mu.Lock()
	s.closed = true
	s.items = nil
	s.mu.Unlock()
	return nil
}
