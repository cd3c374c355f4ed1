// Package metrics exposes capture counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesPolledTotal counts poll outcomes by result (frame, timeout, eof, error).
	FramesPolledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktsum_frames_polled_total",
			Help: "Total number of capture polls by outcome",
		},
		[]string{"pipeline", "result"},
	)

	// FramesSkippedTotal counts frames that produced no row.
	FramesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktsum_frames_skipped_total",
			Help: "Total number of frames skipped without a report row",
		},
		[]string{"pipeline", "reason"},
	)

	// RowsEmittedTotal counts report rows by protocol label.
	RowsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktsum_rows_emitted_total",
			Help: "Total number of report rows emitted",
		},
		[]string{"pipeline", "protocol"},
	)

	// DecodeLatencySeconds measures the time spent dissecting one frame.
	DecodeLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pktsum_decode_latency_seconds",
			Help:    "Latency of frame dissection in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0000001, 2, 16), // 100ns to ~3ms
		},
		[]string{"pipeline"},
	)

	// CaptureStatus tracks whether a pipeline is running.
	CaptureStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pktsum_capture_status",
			Help: "Current capture status (0=stopped, 1=running, 2=error)",
		},
		[]string{"pipeline"},
	)
)

// Values for CaptureStatus.
const (
	CaptureStatusStopped = 0
	CaptureStatusRunning = 1
	CaptureStatusError   = 2
)

// Poll results used as the "result" label.
const (
	ResultFrame   = "frame"
	ResultTimeout = "timeout"
	ResultEOF     = "eof"
	ResultError   = "error"
)

// Skip reasons used as the "reason" label.
const (
	ReasonNotIPv4   = "not_ipv4"
	ReasonTruncated = "truncated"
)
