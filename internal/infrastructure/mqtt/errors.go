package mqtt

import "errors"

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when attempting operations on a disconnected client.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when the broker rejects the connection.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	// Valid QoS levels are 0, 1, or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when an empty or invalid topic is provided.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrInvalidFilter is returned for a malformed topic filter.
	ErrInvalidFilter = errors.New("mqtt: invalid topic filter")

	// ErrQueueFull is returned by Enqueue once max_pending messages are waiting.
	ErrQueueFull = errors.New("mqtt: outbound queue full")

	// ErrQueueStopped is returned by Enqueue after Stop.
	ErrQueueStopped = errors.New("mqtt: outbound queue stopped")
)
