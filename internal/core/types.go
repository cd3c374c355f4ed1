// Package core defines core types with zero external dependencies.
package core

import "net/netip"

// EthernetHeader represents the L2 Ethernet II header.
type EthernetHeader struct {
	DstMAC    [6]byte
	SrcMAC    [6]byte
	EtherType uint16 // 0x0800=IPv4, 0x0806=ARP
}

// IPv4Header represents the fixed part of an IPv4 header.
type IPv4Header struct {
	Version  uint8
	IHL      uint8 // header length in 32-bit words
	TotalLen uint16
	TTL      uint8
	Protocol uint8      // TCP=6, UDP=17, ICMP=1
	SrcIP    netip.Addr // value type, holds no reference to the frame buffer
	DstIP    netip.Addr
}

// HeaderLen returns the IPv4 header length in bytes.
func (h IPv4Header) HeaderLen() int {
	return int(h.IHL) * 4
}
