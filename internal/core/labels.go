// Package core defines core types.
package core

// ProtocolLabel is the symbolic name of an IPv4 transport protocol.
type ProtocolLabel string

const (
	LabelTCP   ProtocolLabel = "TCP"
	LabelUDP   ProtocolLabel = "UDP"
	LabelICMP  ProtocolLabel = "ICMP"
	LabelOther ProtocolLabel = "OTHER"
)

// String implements fmt.Stringer.
func (l ProtocolLabel) String() string {
	return string(l)
}
