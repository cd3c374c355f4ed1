package decoder

import "firestige.xyz/pktsum/internal/core"

// Protocol numbers
const (
	protocolICMP = 1
	protocolTCP  = 6
	protocolUDP  = 17
)

// Classify maps an IPv4 protocol number to its label. Unknown numbers map to
// core.LabelOther.
func Classify(protocol uint8) core.ProtocolLabel {
	switch protocol {
	case protocolTCP:
		return core.LabelTCP
	case protocolUDP:
		return core.LabelUDP
	case protocolICMP:
		return core.LabelICMP
	default:
		return core.LabelOther
	}
}
