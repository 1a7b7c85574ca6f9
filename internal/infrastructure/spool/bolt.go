package spool

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
)

// outboundBucket holds spooled messages keyed by big-endian sequence number,
// so cursor order is FIFO order.
const outboundBucket = "outbound"

// Bolt keeps the spool in a bbolt file. It needs no cgo.
type Bolt struct {
	db    *bbolt.DB
	count atomic.Int64
}

// OpenBolt opens (or creates) the spool file at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	var n int
	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(outboundBucket))
		if err != nil {
			return fmt.Errorf("failed to create outbound bucket: %w", err)
		}
		n = b.Stats().KeyN
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Bolt{db: db}
	s.count.Store(int64(n))
	return s, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Push implements Spool.
func (s *Bolt) Push(m Message) (uint64, error) {
	if m.EnqueuedAt.IsZero() {
		m.EnqueuedAt = time.Now()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(outboundBucket))
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		m.ID = id

		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		return b.Put(itob(id), data)
	})
	if err != nil {
		return 0, fmt.Errorf("spooling message: %w", err)
	}

	s.count.Add(1)
	return m.ID, nil
}

// Peek implements Spool.
func (s *Bolt) Peek() (Message, bool, error) {
	var (
		m  Message
		ok bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		k, v := tx.Bucket([]byte(outboundBucket)).Cursor().First()
		if k == nil {
			return nil
		}
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("failed to unmarshal message: %w", err)
		}
		ok = true
		return nil
	})
	if err != nil {
		return Message{}, false, err
	}
	return m, ok, nil
}

// Ack implements Spool.
func (s *Bolt) Ack(id uint64) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(outboundBucket))
		key := itob(id)
		if b.Get(key) == nil {
			return ErrNotFound
		}
		return b.Delete(key)
	})
	if err != nil {
		return err
	}

	s.count.Add(-1)
	return nil
}

// Len implements Spool.
func (s *Bolt) Len() int {
	return int(s.count.Load())
}

// Close implements Spool.
func (s *Bolt) Close() error {
	return s.db.Close()
}
