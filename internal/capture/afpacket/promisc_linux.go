//go:build linux

package afpacket

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// promiscMembership holds a PACKET_MR_PROMISC membership. The kernel drops
// the membership, and the interface's promiscuous reference, when the
// socket is closed.
type promiscMembership struct {
	fd int
}

// enablePromisc puts device into promiscuous mode for the lifetime of the
// returned membership.
func enablePromisc(device string) (*promiscMembership, error) {
	iface, err := net.InterfaceByName(device)
	if err != nil {
		return nil, fmt.Errorf("failed to look up interface %s: %w", device, err)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership socket: %w", err)
	}

	mreq := &unix.PacketMreq{
		Ifindex: int32(iface.Index),
		Type:    unix.PACKET_MR_PROMISC,
	}
	if err := unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, mreq); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to enable promiscuous mode on %s: %w", device, err)
	}
	return &promiscMembership{fd: fd}, nil
}

func (m *promiscMembership) Close() {
	if m == nil || m.fd < 0 {
		return
	}
	unix.Close(m.fd)
	m.fd = -1
}
