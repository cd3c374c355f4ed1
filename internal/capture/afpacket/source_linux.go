//go:build linux

// Package afpacket implements the AF_PACKET TPACKET_V3 capture backend.
package afpacket

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/sys/unix"

	"firestige.xyz/pktsum/internal/capture"
	"firestige.xyz/pktsum/internal/capture/filter"
	"firestige.xyz/pktsum/internal/core"
)

const Name = "afpacket"

// minPollTimeout is used for non-blocking polls.
const minPollTimeout = time.Millisecond

func init() {
	capture.Register(Name, Open)
}

// Source reads frames from a TPACKET_V3 ring.
type Source struct {
	handle  *afpacket.TPacket
	device  string
	promisc *promiscMembership
}

// Open maps a ring of opts.BufferSizeMB on opts.Interface.
func Open(opts capture.Options) (capture.Handle, error) {
	if opts.Interface == "" {
		return nil, fmt.Errorf("interface is required")
	}

	frameSize, blockSize, numBlocks, err := recomputeSize(opts.BufferSizeMB, opts.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = minPollTimeout
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(opts.Interface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(timeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		if unix.Geteuid() != 0 {
			return nil, fmt.Errorf("failed to create TPacket handle (AF_PACKET needs root or CAP_NET_RAW): %w", err)
		}
		return nil, fmt.Errorf("failed to create TPacket handle: %w", err)
	}

	var promisc *promiscMembership
	if opts.Promiscuous {
		if promisc, err = enablePromisc(opts.Interface); err != nil {
			tp.Close()
			return nil, err
		}
	}

	if opts.BPFFilter != "" {
		rawInsns, err := filter.Compile(layers.LinkTypeEthernet, opts.SnapLen, opts.BPFFilter)
		if err != nil {
			promisc.Close()
			tp.Close()
			return nil, err
		}
		if err := tp.SetBPF(rawInsns); err != nil {
			promisc.Close()
			tp.Close()
			return nil, fmt.Errorf("failed to set BPF: %w", err)
		}
		slog.Debug("BPF filter applied", "filter", opts.BPFFilter)
	}

	slog.Debug("afpacket ring configured",
		"interface", opts.Interface,
		"frame_size", frameSize,
		"block_size", blockSize,
		"num_blocks", numBlocks,
		"promiscuous", opts.Promiscuous)

	return &Source{handle: tp, device: opts.Interface, promisc: promisc}, nil
}

// ReadPacketData copies the next frame out of the ring.
func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := s.handle.ReadPacketData()
	if errors.Is(err, afpacket.ErrTimeout) {
		return nil, ci, core.ErrCaptureTimeout
	}
	return data, ci, err
}

// LinkType is always Ethernet for SOCK_RAW AF_PACKET sockets on Ethernet devices.
func (s *Source) LinkType() layers.LinkType {
	return layers.LinkTypeEthernet
}

// Close unmaps the ring and closes the socket.
func (s *Source) Close() {
	s.handle.Close()
	s.promisc.Close()
}
