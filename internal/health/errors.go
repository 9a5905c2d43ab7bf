package health

import "errors"

var (
	// ErrCircuitOpen is returned while an instance is being skipped.
	ErrCircuitOpen = errors.New("health: circuit open")

	// ErrProbeFailed wraps failed background probes.
	ErrProbeFailed = errors.New("health: probe failed")
)
