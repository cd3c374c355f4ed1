package pipeline

import (
	"sync/atomic"
)

// Metrics contains per-pipeline counters. Run is the only writer; Stats may
// be read from another goroutine while it runs.
type Metrics struct {
	Polled    atomic.Uint64
	Timeouts  atomic.Uint64
	NotIPv4   atomic.Uint64
	Truncated atomic.Uint64
	Emitted   atomic.Uint64
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}
