// Package logging provides structured logging for the Solax bridge.
//
// It wraps log/slog so every entry carries the service name and version,
// and filters attributes before they are written:
//
//   - "password", "secret" and "token" values are replaced by [redacted]
//   - "payload" strings longer than MaxPayloadLen are truncated
//
// Configuration comes from the logging section of the config file:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.With("component", "broker").Info("listening", "address", addr)
package logging
