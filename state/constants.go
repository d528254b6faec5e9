package state

import "time"

const (
	// Infinity is the cost sentinel for an unreachable destination.
	// Routes are withdrawn by advertising this value, and costs are
	// clamped so they never exceed it.
	Infinity Metric = 16
)

var (
	DefaultHeartbeatMs int64 = 500
	DefaultTickMs      int64 = 50
	DefaultDurationMs  int64 = 10_000

	DispatchQueueSize     = 128
	SlowDispatchThreshold = time.Millisecond * 4
)
