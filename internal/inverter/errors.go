package inverter

import "errors"

// Domain-specific errors for inverter models and telemetry payloads.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrPayloadParse is returned when a telemetry payload is not a JSON
	// document with a Data array.
	ErrPayloadParse = errors.New("inverter: payload parse failed")

	// ErrFieldOffset is returned when a sensor or the status decoder reads an
	// index the Data array does not have, or whose element is not a scalar.
	ErrFieldOffset = errors.New("inverter: field offset not available")

	// ErrUnknownModel is returned by Registry.Lookup for an unregistered name.
	ErrUnknownModel = errors.New("inverter: unknown model")

	// ErrDuplicateIdentifier is returned when two sensors of one model share an identifier.
	ErrDuplicateIdentifier = errors.New("inverter: duplicate sensor identifier")

	// ErrInvalidModel is returned when a model definition is incomplete or inconsistent.
	ErrInvalidModel = errors.New("inverter: invalid model")
)
