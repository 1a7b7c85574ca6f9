package solax

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of bridge counters for the metrics endpoint.
type Stats struct {
	TimeSyncRequests  uint64 `json:"time_sync_requests"`
	TimeSyncAcks      uint64 `json:"time_sync_acks"`
	TelemetryMessages uint64 `json:"telemetry_messages"`
	DiscoveryRequests uint64 `json:"discovery_requests"`
	Published         uint64 `json:"published"`
	Subscriptions     uint64 `json:"subscriptions"`
	ParseErrors       uint64 `json:"parse_errors"`
	OffsetErrors      uint64 `json:"offset_errors"`
	DeliveryErrors    uint64 `json:"delivery_errors"`
	InternalErrors    uint64 `json:"internal_errors"`
	LastStatus        string `json:"last_status,omitempty"`
	LastTelemetryAt   string `json:"last_telemetry_at,omitempty"`
}

type counters struct {
	timeSyncRequests  atomic.Uint64
	timeSyncAcks      atomic.Uint64
	telemetryMessages atomic.Uint64
	discoveryRequests atomic.Uint64
	published         atomic.Uint64
	subscriptions     atomic.Uint64
	parseErrors       atomic.Uint64
	offsetErrors      atomic.Uint64
	deliveryErrors    atomic.Uint64
	internalErrors    atomic.Uint64
	lastStatus        atomic.Pointer[string]
	lastTelemetry     atomic.Int64 // unix nanoseconds
}

func (c *counters) countError(kind string) {
	switch kind {
	case KindParse:
		c.parseErrors.Add(1)
	case KindOffset:
		c.offsetErrors.Add(1)
	case KindDelivery:
		c.deliveryErrors.Add(1)
	default:
		c.internalErrors.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	s := Stats{
		TimeSyncRequests:  c.timeSyncRequests.Load(),
		TimeSyncAcks:      c.timeSyncAcks.Load(),
		TelemetryMessages: c.telemetryMessages.Load(),
		DiscoveryRequests: c.discoveryRequests.Load(),
		Published:         c.published.Load(),
		Subscriptions:     c.subscriptions.Load(),
		ParseErrors:       c.parseErrors.Load(),
		OffsetErrors:      c.offsetErrors.Load(),
		DeliveryErrors:    c.deliveryErrors.Load(),
		InternalErrors:    c.internalErrors.Load(),
	}
	if p := c.lastStatus.Load(); p != nil {
		s.LastStatus = *p
	}
	if ns := c.lastTelemetry.Load(); ns != 0 {
		s.LastTelemetryAt = time.Unix(0, ns).UTC().Format(time.RFC3339)
	}
	return s
}

// lastTelemetryTime returns when the last telemetry message was translated.
func (c *counters) lastTelemetryTime() (time.Time, bool) {
	ns := c.lastTelemetry.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}
