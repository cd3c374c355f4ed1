// Package decoder implements Ethernet + IPv4 frame dissection.
package decoder

import (
	"fmt"

	"firestige.xyz/pktsum/internal/core"
)

// Decode dissects a raw Ethernet II frame carrying IPv4.
//
// Non-IPv4 frames yield core.ErrNotIPv4 and short or malformed headers yield
// core.ErrTruncated; both mean "skip this frame". The returned DecodedFrame
// holds no reference into raw.
func Decode(raw []byte) (core.DecodedFrame, error) {
	eth, payload, err := decodeEthernet(raw)
	if err != nil {
		return core.DecodedFrame{}, err
	}

	if eth.EtherType != etherTypeIPv4 {
		return core.DecodedFrame{}, fmt.Errorf("%w: ethertype 0x%04x", core.ErrNotIPv4, eth.EtherType)
	}

	ip, err := decodeIPv4(payload)
	if err != nil {
		return core.DecodedFrame{}, err
	}

	return core.DecodedFrame{
		Ethernet: eth,
		IP:       ip,
	}, nil
}

// truncated builds a core.ErrTruncated carrying the byte counts.
func truncated(layer string, need, have int) error {
	return fmt.Errorf("%w: %s needs %d bytes, have %d", core.ErrTruncated, layer, need, have)
}
