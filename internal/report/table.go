package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"firestige.xyz/pktsum/internal/core"
)

const columnGap = "  "

type column struct {
	title string
	width int
	align lipgloss.Position
}

var tableColumns = []column{
	{"#", 5, lipgloss.Right},
	{"TIME", 8, lipgloss.Left},
	{"SOURCE", 15, lipgloss.Left},
	{"DESTINATION", 15, lipgloss.Left},
	{"PROTO", 5, lipgloss.Left},
	{"LENGTH", 6, lipgloss.Right},
}

// tableSink writes one aligned line per row under a header printed on the
// first row.
type tableSink struct {
	w       io.Writer
	header  lipgloss.Style
	cells   []lipgloss.Style
	started bool
}

func newTableSink(w io.Writer) *tableSink {
	r := lipgloss.NewRenderer(w)
	s := &tableSink{
		w:      w,
		header: r.NewStyle().Bold(true),
	}
	for _, c := range tableColumns {
		s.cells = append(s.cells, r.NewStyle().Width(c.width).Align(c.align))
	}
	return s
}

func (s *tableSink) Emit(row core.ReportRow) error {
	if !s.started {
		titles := make([]string, len(tableColumns))
		for i, c := range tableColumns {
			titles[i] = c.title
		}
		if err := s.writeLine(titles, true); err != nil {
			return err
		}
		s.started = true
	}

	return s.writeLine([]string{
		strconv.Itoa(row.Index),
		row.Time,
		row.Source,
		row.Destination,
		row.Protocol.String(),
		strconv.Itoa(row.Length),
	}, false)
}

func (s *tableSink) writeLine(values []string, header bool) error {
	cells := make([]string, len(values))
	for i, v := range values {
		style := s.cells[i]
		if header {
			style = style.Inherit(s.header)
		}
		cells[i] = style.Render(v)
	}
	if _, err := io.WriteString(s.w, strings.Join(cells, columnGap)+"\n"); err != nil {
		return writeErr(err)
	}
	return nil
}

func (s *tableSink) Close() error {
	return nil
}
