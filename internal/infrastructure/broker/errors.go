package broker

import "errors"

var (
	// ErrNotStarted is returned by Inject before Start or after Close.
	ErrNotStarted = errors.New("broker: not started")

	// ErrInjectFailed is returned when the broker refuses an injected publish.
	ErrInjectFailed = errors.New("broker: inject failed")

	// ErrListenFailed is returned when the TCP listener cannot be added.
	ErrListenFailed = errors.New("broker: listen failed")
)
