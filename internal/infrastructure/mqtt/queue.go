package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/solax-bridge/internal/infrastructure/spool"
)

// Queue defaults.
const (
	defaultRetryDelay    = 2 * time.Second
	defaultMaxPending    = 10000
	drainPollInterval    = 20 * time.Millisecond
	spoolErrorRetryDelay = time.Second
)

// Publisher delivers one message upstream. *Client implements it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// QueueOptions configures NewQueue.
type QueueOptions struct {
	// Publisher delivers messages; required.
	Publisher Publisher

	// Spool holds pending messages; defaults to an in-memory spool.
	Spool spool.Spool

	// QoS used for every delivery.
	QoS byte

	// MaxPending caps the spool; Enqueue fails with ErrQueueFull beyond it.
	MaxPending int

	// RetryDelay is the pause after a failed delivery before retrying the head.
	RetryDelay time.Duration

	// Logger is optional.
	Logger Logger
}

// QueueStats is a snapshot of queue counters.
type QueueStats struct {
	Pending   int    `json:"pending"`
	Enqueued  uint64 `json:"enqueued"`
	Delivered uint64 `json:"delivered"`
	Failures  uint64 `json:"failures"`
	Rejected  uint64 `json:"rejected"`
}

// Queue decouples message producers from upstream delivery.
//
// Enqueue never blocks on the network: it appends to the spool and wakes a
// single worker goroutine that delivers messages in FIFO order. A message
// leaves the spool only once the Publisher accepted it, so publishes made
// while the upstream broker is unreachable are delivered after reconnect.
//
// Thread Safety:
//   - Enqueue, Pending and Stats are safe for concurrent use.
type Queue struct {
	opts  QueueOptions
	spool spool.Spool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   atomic.Bool

	// enqueueMu serialises the capacity check with Push.
	enqueueMu sync.Mutex

	enqueued  atomic.Uint64
	delivered atomic.Uint64
	failures  atomic.Uint64
	rejected  atomic.Uint64
}

// NewQueue creates a queue. Call Start to begin delivery.
//
// Parameters:
//   - opts: Queue options; Publisher is required
//
// Returns:
//   - *Queue: Queue ready to accept messages
//   - error: If options are invalid
func NewQueue(opts QueueOptions) (*Queue, error) {
	if opts.Publisher == nil {
		return nil, errors.New("mqtt: queue publisher is required")
	}
	if opts.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}
	if opts.Spool == nil {
		opts.Spool = spool.NewMemory()
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = defaultMaxPending
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}

	return &Queue{
		opts:  opts,
		spool: opts.Spool,
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}, nil
}

// Enqueue accepts a message for asynchronous upstream delivery.
//
// Returns:
//   - error: ErrQueueFull, ErrQueueStopped, an invalid-publish error, or a spool error
func (q *Queue) Enqueue(topic string, payload []byte, retained bool) error {
	if q.stopped.Load() {
		return ErrQueueStopped
	}
	if err := validatePublish(topic, payload, q.opts.QoS); err != nil {
		return err
	}

	q.enqueueMu.Lock()
	if q.spool.Len() >= q.opts.MaxPending {
		q.enqueueMu.Unlock()
		q.rejected.Add(1)
		return fmt.Errorf("%w: %d pending", ErrQueueFull, q.opts.MaxPending)
	}
	_, err := q.spool.Push(spool.Message{
		Topic:      topic,
		Payload:    payload,
		Retained:   retained,
		EnqueuedAt: time.Now(),
	})
	q.enqueueMu.Unlock()
	if err != nil {
		return err
	}

	q.enqueued.Add(1)
	q.signal()
	return nil
}

// Pending returns the number of messages not yet accepted upstream.
func (q *Queue) Pending() int {
	return q.spool.Len()
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Pending:   q.Pending(),
		Enqueued:  q.enqueued.Load(),
		Delivered: q.delivered.Load(),
		Failures:  q.failures.Load(),
		Rejected:  q.rejected.Load(),
	}
}

// Start launches the delivery worker. It returns immediately; the worker
// runs until ctx is cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		go q.run(ctx)
	})
}

// Drain waits until every pending message is delivered or timeout elapses.
//
// Returns:
//   - int: Messages still pending when Drain returned (0 on success)
func (q *Queue) Drain(timeout time.Duration) int {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		n := q.Pending()
		if n == 0 || !time.Now().Before(deadline) {
			return n
		}
		q.signal()
		<-ticker.C
	}
}

// Stop halts the worker and rejects further Enqueue calls. Undelivered
// messages stay in the spool.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.stopped.Store(true)
		close(q.stop)
	})
	q.startOnce.Do(func() { close(q.done) })
	<-q.done
}

// signal wakes the worker without blocking.
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// run is the delivery loop.
func (q *Queue) run(ctx context.Context) {
	defer close(q.done)

	for {
		m, ok, err := q.spool.Peek()
		switch {
		case err != nil:
			q.logError("reading outbound spool", err)
			if !q.wait(ctx, spoolErrorRetryDelay) {
				return
			}
			continue
		case !ok:
			select {
			case <-ctx.Done():
				return
			case <-q.stop:
				return
			case <-q.wake:
			}
			continue
		}

		if err := q.opts.Publisher.Publish(m.Topic, m.Payload, q.opts.QoS, m.Retained); err != nil {
			q.failures.Add(1)
			if !errors.Is(err, ErrNotConnected) {
				q.logWarn("upstream publish failed, will retry", "topic", m.Topic, "error", err)
			}
			if !q.wait(ctx, q.opts.RetryDelay) {
				return
			}
			continue
		}

		if err := q.spool.Ack(m.ID); err != nil && !errors.Is(err, spool.ErrNotFound) {
			q.logError("acknowledging outbound message", err)
		}
		q.delivered.Add(1)
	}
}

// wait sleeps for d unless stopped. A wake signal during a retry pause is
// ignored so a failing head is not hammered by new arrivals.
func (q *Queue) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-q.stop:
		return false
	case <-t.C:
		return true
	}
}

func (q *Queue) logWarn(msg string, args ...any) {
	if q.opts.Logger != nil {
		q.opts.Logger.Warn(msg, args...)
	}
}

func (q *Queue) logError(msg string, err error) {
	if q.opts.Logger != nil {
		q.opts.Logger.Error(msg, "error", err)
	}
}
