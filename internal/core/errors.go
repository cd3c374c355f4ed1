// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors. Callers wrap them with fmt.Errorf("...: %w", err) and
// match with errors.Is.
var (
	// Capture device errors
	ErrDeviceOpen     = errors.New("pktsum: device open failed")
	ErrCapture        = errors.New("pktsum: capture failed")
	ErrCaptureTimeout = errors.New("pktsum: capture read timeout")

	// Frame dissection errors, both recoverable per frame
	ErrTruncated = errors.New("pktsum: frame truncated")
	ErrNotIPv4   = errors.New("pktsum: not an IPv4 frame")

	// Report sink errors
	ErrReport = errors.New("pktsum: report write failed")

	// Configuration errors
	ErrConfigInvalid = errors.New("pktsum: invalid configuration")
)
