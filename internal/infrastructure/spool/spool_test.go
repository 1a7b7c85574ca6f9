package spool

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

// openers builds each backend in a fresh temp dir.
func openers(t *testing.T) map[string]func() Spool {
	t.Helper()
	return map[string]func() Spool{
		BackendMemory: func() Spool { return NewMemory() },
		BackendSQLite: func() Spool {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "outbound.db"), 5)
			if err != nil {
				t.Fatalf("OpenSQLite() error = %v", err)
			}
			return s
		},
		BackendBolt: func() Spool {
			s, err := OpenBolt(filepath.Join(t.TempDir(), "outbound.bolt"))
			if err != nil {
				t.Fatalf("OpenBolt() error = %v", err)
			}
			return s
		},
	}
}

func TestSpool_FIFO(t *testing.T) {
	for name, open := range openers(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close() //nolint:errcheck // Test cleanup

			for i := 0; i < 3; i++ {
				_, err := s.Push(Message{
					Topic:    fmt.Sprintf("solax/sensor/s%d", i),
					Payload:  []byte(fmt.Sprint(i)),
					Retained: i%2 == 0,
				})
				if err != nil {
					t.Fatalf("Push() error = %v", err)
				}
			}
			if s.Len() != 3 {
				t.Fatalf("Len() = %d, want 3", s.Len())
			}

			for i := 0; i < 3; i++ {
				m, ok, err := s.Peek()
				if err != nil || !ok {
					t.Fatalf("Peek() = %v, %v", ok, err)
				}
				if want := fmt.Sprintf("solax/sensor/s%d", i); m.Topic != want {
					t.Errorf("Peek().Topic = %q, want %q", m.Topic, want)
				}
				if string(m.Payload) != fmt.Sprint(i) {
					t.Errorf("Peek().Payload = %q", m.Payload)
				}
				if m.Retained != (i%2 == 0) {
					t.Errorf("Peek().Retained = %v", m.Retained)
				}
				if err := s.Ack(m.ID); err != nil {
					t.Fatalf("Ack() error = %v", err)
				}
			}

			if _, ok, _ := s.Peek(); ok {
				t.Error("Peek() on empty spool returned a message")
			}
			if s.Len() != 0 {
				t.Errorf("Len() = %d, want 0", s.Len())
			}
		})
	}
}

func TestSpool_AckUnknown(t *testing.T) {
	for name, open := range openers(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close() //nolint:errcheck // Test cleanup

			if err := s.Ack(42); !errors.Is(err, ErrNotFound) {
				t.Errorf("Ack() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSpool_ConcurrentPush(t *testing.T) {
	for name, open := range openers(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close() //nolint:errcheck // Test cleanup

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := s.Push(Message{Topic: "t", Payload: []byte("x")}); err != nil {
						t.Errorf("Push() error = %v", err)
					}
				}()
			}
			wg.Wait()

			if s.Len() != 20 {
				t.Errorf("Len() = %d, want 20", s.Len())
			}
		})
	}
}

func TestSpool_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		open func() (Spool, error)
	}{
		{
			name: BackendSQLite,
			open: func() (Spool, error) { return OpenSQLite(filepath.Join(dir, "outbound.db"), 5) },
		},
		{
			name: BackendBolt,
			open: func() (Spool, error) { return OpenBolt(filepath.Join(dir, "outbound.bolt")) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := tt.open()
			if err != nil {
				t.Fatalf("open error = %v", err)
			}
			if _, err := s.Push(Message{Topic: "solax/sensor/pv1_power", Payload: []byte("7"), Retained: true}); err != nil {
				t.Fatalf("Push() error = %v", err)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			s, err = tt.open()
			if err != nil {
				t.Fatalf("reopen error = %v", err)
			}
			defer s.Close() //nolint:errcheck // Test cleanup

			if s.Len() != 1 {
				t.Fatalf("Len() after reopen = %d, want 1", s.Len())
			}
			m, ok, err := s.Peek()
			if err != nil || !ok {
				t.Fatalf("Peek() = %v, %v", ok, err)
			}
			if m.Topic != "solax/sensor/pv1_power" || string(m.Payload) != "7" || !m.Retained {
				t.Errorf("Peek() = %+v", m)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "default is memory", cfg: Config{}},
		{name: "memory", cfg: Config{Backend: BackendMemory}},
		{name: "sqlite", cfg: Config{Backend: BackendSQLite, Path: filepath.Join(dir, "a.db"), BusyTimeout: 5}},
		{name: "bolt", cfg: Config{Backend: BackendBolt, Path: filepath.Join(dir, "a.bolt")}},
		{name: "unknown", cfg: Config{Backend: "redis"}, wantErr: ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			s.Close() //nolint:errcheck // Test cleanup
		})
	}
}

func TestMemory_ClosedRejectsPush(t *testing.T) {
	s := NewMemory()
	s.Close() //nolint:errcheck // Test cleanup

	if _, err := s.Push(Message{Topic: "t"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Push() after Close error = %v, want ErrClosed", err)
	}
}
