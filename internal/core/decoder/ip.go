// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/pktsum/internal/core"
)

const ipv4HeaderMinLen = 20

// decodeIPv4 decodes the IPv4 header at the start of data.
func decodeIPv4(data []byte) (core.IPv4Header, error) {
	if len(data) < ipv4HeaderMinLen {
		return core.IPv4Header{}, truncated("ipv4", ipv4HeaderMinLen, len(data))
	}

	// IHL (Internet Header Length) - lower 4 bits of first byte
	ihl := data[0] & 0x0F
	headerLen := int(ihl) * 4 // IHL is in 32-bit words

	if headerLen < ipv4HeaderMinLen {
		return core.IPv4Header{}, truncated("ipv4 ihl", ipv4HeaderMinLen, headerLen)
	}
	if len(data) < headerLen {
		return core.IPv4Header{}, truncated("ipv4 options", headerLen, len(data))
	}

	ip := core.IPv4Header{
		Version: data[0] >> 4,
		IHL:     ihl,
	}

	// Total Length (2 bytes at offset 2)
	ip.TotalLen = binary.BigEndian.Uint16(data[2:4])

	// TTL (1 byte at offset 8)
	ip.TTL = data[8]

	// Protocol (1 byte at offset 9)
	ip.Protocol = data[9]

	// Source IP (4 bytes at offset 12), copied into a value
	ip.SrcIP = netip.AddrFrom4([4]byte(data[12:16]))

	// Destination IP (4 bytes at offset 16)
	ip.DstIP = netip.AddrFrom4([4]byte(data[16:20]))

	return ip, nil
}
