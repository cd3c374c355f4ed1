package report

import (
	"encoding/json"
	"io"

	"firestige.xyz/pktsum/internal/core"
)

// bytesRow is the JSON shape of a row in bytes mode.
type bytesRow struct {
	Index      int    `json:"index"`
	Time       string `json:"time"`
	CaptureLen int    `json:"capture_len"`
	Length     int    `json:"length"`
}

// jsonSink writes one JSON object per line.
type jsonSink struct {
	mode string
	enc  *json.Encoder
}

func newJSONSink(mode string, w io.Writer) *jsonSink {
	return &jsonSink{mode: mode, enc: json.NewEncoder(w)}
}

func (s *jsonSink) Emit(row core.ReportRow) error {
	var v any = row
	if s.mode == ModeBytes {
		v = bytesRow{
			Index:      row.Index,
			Time:       row.Time,
			CaptureLen: row.CaptureLen,
			Length:     row.Length,
		}
	}
	if err := s.enc.Encode(v); err != nil {
		return writeErr(err)
	}
	return nil
}

func (s *jsonSink) Close() error {
	return nil
}
