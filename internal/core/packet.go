// Package core defines core data structures with zero external dependencies.
package core

import "time"

// CapturedFrame is one raw link-layer frame as returned by a capture session.
//
// Data is owned by the capture layer and is only valid until the next poll
// on the same session. Anything that must outlive the poll is copied out by
// the decoder.
type CapturedFrame struct {
	Data       []byte    // Raw frame bytes, len(Data) == CaptureLen
	CaptureLen int       // Bytes actually stored, never above the snap length
	WireLen    int       // Original on-the-wire length, >= CaptureLen
	Timestamp  time.Time // Capture timestamp, microsecond resolution
}

// DecodedFrame is the result of Ethernet + IPv4 decoding.
type DecodedFrame struct {
	Ethernet EthernetHeader
	IP       IPv4Header
}

// Source returns the source address in dotted-decimal form.
func (f DecodedFrame) Source() string {
	return f.IP.SrcIP.String()
}

// Destination returns the destination address in dotted-decimal form.
func (f DecodedFrame) Destination() string {
	return f.IP.DstIP.String()
}

// ReportRow is one summary line handed to a report sink. It is a plain value
// and is never persisted.
type ReportRow struct {
	Index       int           `json:"index"` // 1-based
	Time        string        `json:"time"`  // HH:MM:SS
	Source      string        `json:"src"`
	Destination string        `json:"dst"`
	Protocol    ProtocolLabel `json:"protocol"`
	Length      int           `json:"length"`      // wire length
	CaptureLen  int           `json:"capture_len"` // bytes captured
}
