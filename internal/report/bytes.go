package report

import (
	"fmt"
	"io"

	"firestige.xyz/pktsum/internal/core"
)

// bytesSink prints captured and original lengths per frame.
type bytesSink struct {
	w io.Writer
}

func newBytesSink(w io.Writer) *bytesSink {
	return &bytesSink{w: w}
}

func (s *bytesSink) Emit(row core.ReportRow) error {
	_, err := fmt.Fprintf(s.w, "Frame %d at %s (%s -> %s)\n  Captured bytes: %d\n  Original length: %d\n",
		row.Index, row.Time, row.Source, row.Destination, row.CaptureLen, row.Length)
	if err != nil {
		return writeErr(err)
	}
	return nil
}

func (s *bytesSink) Close() error {
	return nil
}
