package solax

import (
	"errors"

	"github.com/nerrad567/solax-bridge/internal/inverter"
)

// Domain errors for the Solax bridge package.
var (
	// ErrEnqueueFailed is returned when an outbound publish could not be queued.
	ErrEnqueueFailed = errors.New("solax: enqueue failed")

	// ErrInjectFailed is returned when a time-sync response could not be
	// injected into the embedded broker.
	ErrInjectFailed = errors.New("solax: inject failed")

	// ErrMissingSerial is returned for a time-sync request without a serial number.
	ErrMissingSerial = errors.New("solax: time sync request has no serial")

	// ErrHandlerPanic is recorded when a route handler panics.
	ErrHandlerPanic = errors.New("solax: handler panic")
)

// Error kinds reported in logs and metrics.
const (
	KindParse    = "parse"
	KindOffset   = "offset"
	KindDelivery = "delivery"
	KindInternal = "internal"
)

// errorKind classifies err for logging.
func errorKind(err error) string {
	switch {
	case errors.Is(err, inverter.ErrPayloadParse):
		return KindParse
	case errors.Is(err, inverter.ErrFieldOffset):
		return KindOffset
	case errors.Is(err, ErrEnqueueFailed), errors.Is(err, ErrInjectFailed):
		return KindDelivery
	default:
		return KindInternal
	}
}
