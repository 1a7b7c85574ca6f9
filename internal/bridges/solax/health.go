package solax

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// HealthStatus is the bridge state published on the health topic.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStopping HealthStatus = "stopping"
)

// defaultHealthInterval applies when HealthReporterConfig.Interval is zero.
const defaultHealthInterval = 60 * time.Second

// staleIntervals is how many reporting intervals may pass without telemetry
// before the inverter is reported silent.
const staleIntervals = 3

// HealthMessage is the retained JSON document on <root>/bridge/health.
type HealthMessage struct {
	Status         HealthStatus `json:"status"`
	Reason         string       `json:"reason,omitempty"`
	Version        string       `json:"version"`
	Timestamp      string       `json:"timestamp"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	Model          string       `json:"model"`
	InverterStatus string       `json:"inverter_status,omitempty"`
	LastTelemetry  string       `json:"last_telemetry,omitempty"`
	Pending        int          `json:"pending"`
	Telemetry      uint64       `json:"telemetry_messages"`
	Errors         uint64       `json:"errors"`
}

// ConnectionState reports whether the upstream broker is reachable.
// *mqtt.Client implements it.
type ConnectionState interface {
	IsConnected() bool
}

// PendingCounter reports undelivered outbound messages. *mqtt.Queue implements it.
type PendingCounter interface {
	Pending() int
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// Bridge supplies counters and the outbound path; required.
	Bridge *Bridge

	// Version is the bridge software version.
	Version string

	// Interval is how often to publish health status.
	// Default: 60 seconds.
	Interval time.Duration

	// Upstream reports the upstream connection (optional).
	Upstream ConnectionState

	// Queue reports the outbound backlog (optional).
	Queue PendingCounter
}

// HealthReporter periodically publishes the bridge health, retained, so Home
// Assistant can show whether the inverter is still reporting.
type HealthReporter struct {
	bridge    *Bridge
	version   string
	interval  time.Duration
	upstream  ConnectionState
	queue     PendingCounter
	startTime time.Time

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewHealthReporter creates a new health reporter.
//
// Parameters:
//   - cfg: Configuration for the health reporter
//
// Returns:
//   - *HealthReporter: Ready to start (call Start to begin reporting)
//   - error: If no bridge is given
func NewHealthReporter(cfg HealthReporterConfig) (*HealthReporter, error) {
	if cfg.Bridge == nil {
		return nil, fmt.Errorf("solax: health reporter needs a bridge")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}

	return &HealthReporter{
		bridge:    cfg.Bridge,
		version:   cfg.Version,
		interval:  interval,
		upstream:  cfg.Upstream,
		queue:     cfg.Queue,
		startTime: cfg.Bridge.clock(),
		done:      make(chan struct{}),
	}, nil
}

// Topic returns the health topic.
func (h *HealthReporter) Topic() string {
	return h.bridge.ns.HealthTopic()
}

// Start begins periodic health reporting.
// Must be called after creation. Call Stop to shut down.
//
// Parameters:
//   - ctx: Context for cancellation (will stop reporting when cancelled)
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop stops health reporting and queues a final "stopping" status.
// Safe to call multiple times (uses sync.Once).
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		if err := h.publish(HealthStopping, "bridge shutting down"); err != nil {
			h.bridge.logErrorKind("health", "", h.Topic(), errorKind(err), err)
		}
	})
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publish(status, reason)
}

// reportLoop runs the periodic health reporting.
func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.bridge.logErrorKind("health", "", h.Topic(), errorKind(err), err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.bridge.logErrorKind("health", "", h.Topic(), errorKind(err), err)
			}
		}
	}
}

// determineStatus evaluates the current bridge status.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.upstream != nil && !h.upstream.IsConnected() {
		return HealthDegraded, "upstream broker disconnected"
	}

	now := h.bridge.clock()
	stale := staleIntervals * h.interval
	last, ok := h.bridge.stats.lastTelemetryTime()
	switch {
	case !ok && now.Sub(h.startTime) > stale:
		return HealthDegraded, "no telemetry received from inverter"
	case ok && now.Sub(last) > stale:
		return HealthDegraded, "inverter telemetry stale"
	}

	return HealthHealthy, ""
}

// message builds the health document for status.
func (h *HealthReporter) message(status HealthStatus, reason string) HealthMessage {
	now := h.bridge.clock()
	stats := h.bridge.Stats()

	msg := HealthMessage{
		Status:         status,
		Reason:         reason,
		Version:        h.version,
		Timestamp:      now.UTC().Format(time.RFC3339),
		UptimeSeconds:  int64(now.Sub(h.startTime).Seconds()),
		Model:          h.bridge.model.Model,
		InverterStatus: stats.LastStatus,
		LastTelemetry:  stats.LastTelemetryAt,
		Telemetry:      stats.TelemetryMessages,
		Errors:         stats.ParseErrors + stats.OffsetErrors + stats.DeliveryErrors + stats.InternalErrors,
	}
	if h.queue != nil {
		msg.Pending = h.queue.Pending()
	}
	return msg
}

// publish queues a retained health message.
func (h *HealthReporter) publish(status HealthStatus, reason string) error {
	payload, err := json.Marshal(h.message(status, reason))
	if err != nil {
		return err
	}
	return h.bridge.enqueue(h.Topic(), payload, true)
}
