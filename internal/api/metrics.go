package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/solax-bridge/internal/bridges/solax"
	"github.com/nerrad567/solax-bridge/internal/infrastructure/mqtt"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	Upstream      UpstreamMetrics  `json:"upstream"`
	Broker        BrokerMetrics    `json:"broker"`
	Queue         *mqtt.QueueStats `json:"queue,omitempty"`
	Bridge        solax.Stats      `json:"bridge"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// UpstreamMetrics contains upstream MQTT client statistics.
type UpstreamMetrics struct {
	Connected bool `json:"connected"`
}

// BrokerMetrics contains embedded broker statistics.
type BrokerMetrics struct {
	ConnectedClients int64 `json:"connected_clients"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Bridge: s.bridge.Stats(),
	}

	if s.upstream != nil {
		metrics.Upstream.Connected = s.upstream.IsConnected()
	}
	if s.broker != nil {
		metrics.Broker.ConnectedClients = s.broker.ConnectedClients()
	}
	if s.queue != nil {
		qs := s.queue.Stats()
		metrics.Queue = &qs
	}

	writeJSON(w, http.StatusOK, metrics)
}
