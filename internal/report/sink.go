// Package report renders summary rows.
// The pipeline only produces core.ReportRow values; layout lives here.
package report

import (
	"fmt"
	"io"

	"firestige.xyz/pktsum/internal/core"
)

// Sink receives rows in order.
type Sink interface {
	Emit(row core.ReportRow) error
	Close() error
}

// Reporting modes
const (
	ModeTable = "table" // protocol table
	ModeBytes = "bytes" // captured/original length per frame
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New creates the sink for a mode/format pair writing to w.
func New(mode, format string, w io.Writer) (Sink, error) {
	if mode != ModeTable && mode != ModeBytes {
		return nil, fmt.Errorf("%w: unknown report mode %q", core.ErrConfigInvalid, mode)
	}

	switch format {
	case FormatJSON:
		return newJSONSink(mode, w), nil
	case FormatText:
		if mode == ModeBytes {
			return newBytesSink(w), nil
		}
		return newTableSink(w), nil
	default:
		return nil, fmt.Errorf("%w: unknown report format %q", core.ErrConfigInvalid, format)
	}
}

func writeErr(err error) error {
	return fmt.Errorf("%w: %v", core.ErrReport, err)
}
