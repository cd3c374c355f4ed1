// Package live implements the libpcap capture backend.
package live

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"firestige.xyz/pktsum/internal/capture"
	"firestige.xyz/pktsum/internal/core"
)

const Name = "pcap"

// minReadTimeout is used for non-blocking polls; libpcap treats 0 as "block".
const minReadTimeout = time.Millisecond

func init() {
	capture.Register(Name, Open)
}

// Source wraps a live pcap handle and maps its read timeout onto
// core.ErrCaptureTimeout.
type Source struct {
	*pcap.Handle
}

// Open activates a live capture on opts.Interface.
func Open(opts capture.Options) (capture.Handle, error) {
	if opts.Interface == "" {
		return nil, fmt.Errorf("interface is required")
	}

	inactive, err := pcap.NewInactiveHandle(opts.Interface)
	if err != nil {
		return nil, err
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(opts.SnapLen); err != nil {
		return nil, fmt.Errorf("failed to set snap length: %w", err)
	}
	if err := inactive.SetPromisc(opts.Promiscuous); err != nil {
		return nil, fmt.Errorf("failed to set promiscuous mode: %w", err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = minReadTimeout
		if err := inactive.SetImmediateMode(true); err != nil {
			return nil, fmt.Errorf("failed to set immediate mode: %w", err)
		}
	}
	if err := inactive.SetTimeout(timeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	h, err := inactive.Activate()
	if err != nil {
		return nil, err
	}

	if opts.BPFFilter != "" {
		if err := h.SetBPFFilter(opts.BPFFilter); err != nil {
			h.Close()
			return nil, fmt.Errorf("failed to set BPF filter %q: %w", opts.BPFFilter, err)
		}
	}

	return &Source{Handle: h}, nil
}

// ReadPacketData reads the next frame from the handle.
func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := s.Handle.ReadPacketData()
	if errors.Is(err, pcap.NextErrorTimeoutExpired) {
		return nil, ci, core.ErrCaptureTimeout
	}
	return data, ci, err
}
