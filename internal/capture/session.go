// Package capture owns the capture handle and turns backend reads into the
// frame / timeout / end-of-stream / error outcomes the pipeline loops on.
package capture

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/gopacket/layers"

	"firestige.xyz/pktsum/internal/core"
)

// Session is a single open capture handle.
//
// A Session is owned by one goroutine; it is not safe for concurrent use.
type Session struct {
	backend string
	opts    Options
	handle  Handle
	closed  bool
}

// Open validates opts, opens the named backend and checks that it delivers
// Ethernet frames. Backend failures wrap core.ErrDeviceOpen.
func Open(backend string, opts Options) (*Session, error) {
	if opts.SnapLen <= 0 {
		return nil, fmt.Errorf("%w: snaplen must be positive, got %d", core.ErrConfigInvalid, opts.SnapLen)
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must not be negative, got %v", core.ErrConfigInvalid, opts.Timeout)
	}

	open, err := lookup(backend)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDeviceOpen, err)
	}

	h, err := open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", core.ErrDeviceOpen, backend, target(opts), err)
	}

	s, err := NewSession(h, opts)
	if err != nil {
		return nil, err
	}
	s.backend = backend

	slog.Info("capture session opened",
		"backend", backend,
		"source", target(opts),
		"snap_len", opts.SnapLen,
		"promiscuous", opts.Promiscuous,
		"timeout", opts.Timeout)
	return s, nil
}

// NewSession wraps an already opened handle. The handle is closed and
// core.ErrDeviceOpen returned if it does not use Ethernet framing.
func NewSession(h Handle, opts Options) (*Session, error) {
	if lt := h.LinkType(); lt != layers.LinkTypeEthernet {
		h.Close()
		return nil, fmt.Errorf("%w: unsupported link type %s (only Ethernet)", core.ErrDeviceOpen, lt)
	}
	return &Session{
		opts:   opts,
		handle: h,
	}, nil
}

// Next polls for the next frame.
//
// It returns core.ErrCaptureTimeout when the read timeout expired, io.EOF when
// the source is exhausted or the session was closed, and an error wrapping
// core.ErrCapture for any other failure. The frame's Data is only valid until
// the next call.
func (s *Session) Next() (core.CapturedFrame, error) {
	if s.closed {
		return core.CapturedFrame{}, io.EOF
	}

	data, ci, err := s.handle.ReadPacketData()
	switch {
	case err == nil:
	case errors.Is(err, core.ErrCaptureTimeout):
		return core.CapturedFrame{}, core.ErrCaptureTimeout
	case errors.Is(err, io.EOF):
		return core.CapturedFrame{}, io.EOF
	default:
		return core.CapturedFrame{}, fmt.Errorf("%w: %v", core.ErrCapture, err)
	}

	// Enforce CaptureLen == len(Data) <= snaplen and WireLen >= CaptureLen.
	if len(data) > s.opts.SnapLen {
		data = data[:s.opts.SnapLen]
	}
	wireLen := ci.Length
	if wireLen < len(data) {
		wireLen = len(data)
	}

	return core.CapturedFrame{
		Data:       data,
		CaptureLen: len(data),
		WireLen:    wireLen,
		Timestamp:  ci.Timestamp,
	}, nil
}

// Close releases the handle. It is idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.handle.Close()
	slog.Debug("capture session closed", "backend", s.backend, "source", target(s.opts))
	return nil
}

// Backend returns the backend name the session was opened with.
func (s *Session) Backend() string {
	return s.backend
}

func target(opts Options) string {
	if opts.File != "" {
		return opts.File
	}
	return opts.Interface
}
