// Package api implements the read-only HTTP status API of the Solax bridge.
//
// This package provides:
//   - Health of the bridge and its upstream connection
//   - Runtime, queue and routing counters
//   - The active inverter model's sensor table
//   - A preview of the Home Assistant discovery configs
//   - Middleware stack (request ID, logging, recovery)
//
// The API never changes bridge state and is disabled unless api.enabled is
// set. Every endpoint lives under /api/v1.
package api
