// Package file implements the capture-file replay backend.
package file

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/pktsum/internal/capture"
	"firestige.xyz/pktsum/internal/capture/filter"
)

const Name = "file"

// pcapngMagic is the block type of a pcapng Section Header Block.
const pcapngMagic = 0x0A0D0D0A

func init() {
	capture.Register(Name, Open)
}

// packetReader is satisfied by both pcapgo.Reader and pcapgo.NgReader.
type packetReader interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// Source replays frames from a pcap or pcapng file. Reaching the end of the
// file is reported as io.EOF.
type Source struct {
	path    string
	f       *os.File
	reader  packetReader
	matcher *filter.Matcher
}

// Open opens opts.File for replay.
func Open(opts capture.Options) (capture.Handle, error) {
	if opts.File == "" {
		return nil, fmt.Errorf("file path is required")
	}

	f, err := os.Open(opts.File)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file %s: %w", opts.File, err)
	}

	reader, err := newReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read capture file %s: %w", opts.File, err)
	}

	s := &Source{
		path:   opts.File,
		f:      f,
		reader: reader,
	}

	if opts.BPFFilter != "" {
		raw, err := filter.Compile(reader.LinkType(), opts.SnapLen, opts.BPFFilter)
		if err != nil {
			f.Close()
			return nil, err
		}
		if s.matcher, err = filter.NewMatcher(raw); err != nil {
			f.Close()
			return nil, err
		}
		slog.Debug("BPF filter applied in userspace", "filter", opts.BPFFilter)
	}

	return s, nil
}

// newReader picks the pcap or pcapng reader from the file magic.
func newReader(r io.Reader) (packetReader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(magic) == pcapngMagic {
		return pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	}
	return pcapgo.NewReader(br)
}

// ReadPacketData returns the next frame accepted by the filter, if any.
func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	for {
		data, ci, err := s.reader.ReadPacketData()
		if err != nil {
			if err == io.EOF {
				return nil, gopacket.CaptureInfo{}, io.EOF
			}
			return nil, gopacket.CaptureInfo{}, fmt.Errorf("failed to read packet: %w", err)
		}
		if s.matcher != nil && !s.matcher.Match(data) {
			continue
		}
		return data, ci, nil
	}
}

// LinkType returns the link type recorded in the file header.
func (s *Source) LinkType() layers.LinkType {
	return s.reader.LinkType()
}

// Close closes the underlying file.
func (s *Source) Close() {
	if s.f != nil {
		s.f.Close()
		s.f = nil
	}
}
