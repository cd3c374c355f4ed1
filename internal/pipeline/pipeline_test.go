package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktsum/internal/core"
)

var baseTime = time.Date(2024, 1, 2, 12, 30, 45, 0, time.UTC)

// step is one scripted Next result.
type step struct {
	frame core.CapturedFrame
	err   error
}

// scriptSource replays steps, then io.EOF.
type scriptSource struct {
	steps  []step
	calls  int
	closes int
	onNext func(call int)
}

func (s *scriptSource) Next() (core.CapturedFrame, error) {
	s.calls++
	if s.onNext != nil {
		s.onNext(s.calls)
	}
	if len(s.steps) == 0 {
		return core.CapturedFrame{}, io.EOF
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	return st.frame, st.err
}

func (s *scriptSource) Close() error {
	s.closes++
	return nil
}

type recordSink struct {
	rows []core.ReportRow
}

func (s *recordSink) Emit(row core.ReportRow) error {
	s.rows = append(s.rows, row)
	return nil
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Emit(row core.ReportRow) error {
	return m.Called(row).Error(0)
}

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func ipv4Frame(t *testing.T, proto layers.IPProtocol, src, dst string) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: proto,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.ParseIP(dst).To4(),
	}
	return serialize(t, eth, ip, gopacket.Payload(make([]byte, 8)))
}

func arpFrame(t *testing.T) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeARP,
	}
	return serialize(t, eth, gopacket.Payload(make([]byte, 28)))
}

func frame(data []byte, wireLen int) step {
	if wireLen < len(data) {
		wireLen = len(data)
	}
	return step{frame: core.CapturedFrame{
		Data:       data,
		CaptureLen: len(data),
		WireLen:    wireLen,
		Timestamp:  baseTime,
	}}
}

func newPipeline(t *testing.T, src Source, sink Sink, maxRows int) *Pipeline {
	t.Helper()
	p, err := New(Config{Source: src, Sink: sink, MaxRows: maxRows, Location: time.UTC, Name: t.Name()})
	require.NoError(t, err)
	return p
}

func TestNew_Validation(t *testing.T) {
	src := &scriptSource{}
	sink := &recordSink{}

	_, err := New(Config{Source: src, Sink: sink, MaxRows: 0})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)

	_, err = New(Config{Sink: sink, MaxRows: 1})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)

	_, err = New(Config{Source: src, MaxRows: 1})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)

	p, err := New(Config{Source: src, Sink: sink, MaxRows: 1})
	require.NoError(t, err)
	assert.Equal(t, time.Local, p.location)
	assert.Equal(t, "default", p.name)
}

func TestRun_SkipsAndStopsAtQuota(t *testing.T) {
	tcp := ipv4Frame(t, layers.IPProtocolTCP, "10.0.0.1", "10.0.0.2")
	src := &scriptSource{steps: []step{
		frame(make([]byte, 13), 13),
		frame(arpFrame(t), 0),
		frame(tcp, 60),
		frame(ipv4Frame(t, layers.IPProtocolUDP, "10.0.0.3", "10.0.0.4"), 0),
		frame(ipv4Frame(t, layers.IPProtocolICMPv4, "10.0.0.5", "10.0.0.6"), 0),
	}}
	sink := &recordSink{}
	p := newPipeline(t, src, sink, 2)

	require.NoError(t, p.Run(context.Background()))

	require.Len(t, sink.rows, 2)
	assert.Equal(t, core.ReportRow{
		Index:       1,
		Time:        "12:30:45",
		Source:      "10.0.0.1",
		Destination: "10.0.0.2",
		Protocol:    core.LabelTCP,
		Length:      60,
		CaptureLen:  len(tcp),
	}, sink.rows[0])
	assert.Equal(t, 2, sink.rows[1].Index)
	assert.Equal(t, core.LabelUDP, sink.rows[1].Protocol)
	assert.Equal(t, "10.0.0.3", sink.rows[1].Source)

	assert.Equal(t, 4, src.calls, "no poll after the quota is reached")
	assert.Equal(t, 1, src.closes)
	assert.Equal(t, Stats{Polled: 4, NotIPv4: 1, Truncated: 1, Emitted: 2}, p.Stats())
}

func TestRun_EndOfStreamBeforeQuota(t *testing.T) {
	src := &scriptSource{steps: []step{
		frame(ipv4Frame(t, layers.IPProtocolICMPv4, "192.168.1.1", "192.168.1.2"), 0),
	}}
	sink := &recordSink{}
	p := newPipeline(t, src, sink, 5)

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, sink.rows, 1)
	assert.Equal(t, core.LabelICMP, sink.rows[0].Protocol)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, 1, src.closes)
}

func TestRun_TimeoutsKeepPolling(t *testing.T) {
	src := &scriptSource{steps: []step{
		{err: core.ErrCaptureTimeout},
		{err: core.ErrCaptureTimeout},
		frame(ipv4Frame(t, 47, "10.1.1.1", "10.1.1.2"), 0),
		{err: core.ErrCaptureTimeout},
	}}
	sink := &recordSink{}
	p := newPipeline(t, src, sink, 1)

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, sink.rows, 1)
	assert.Equal(t, core.LabelOther, sink.rows[0].Protocol)
	assert.Equal(t, 1, sink.rows[0].Index)

	stats := p.Stats()
	assert.Equal(t, uint64(2), stats.Timeouts)
	assert.Equal(t, uint64(1), stats.Polled)
	assert.Equal(t, 3, src.calls)
}

func TestRun_TimeoutLoggedAtDebug(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	src := &scriptSource{steps: []step{
		{err: core.ErrCaptureTimeout},
		{err: core.ErrCaptureTimeout},
	}}
	p := newPipeline(t, src, &recordSink{}, 1)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 2, strings.Count(logs.String(), "poll timeout"))
}

func TestRun_CaptureErrorIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"already wrapped", errors.Join(core.ErrCapture, errors.New("device went away"))},
		{"bare", errors.New("read: network is down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &scriptSource{steps: []step{
				frame(ipv4Frame(t, layers.IPProtocolTCP, "10.0.0.1", "10.0.0.2"), 0),
				{err: tt.err},
				frame(ipv4Frame(t, layers.IPProtocolTCP, "10.0.0.1", "10.0.0.2"), 0),
			}}
			sink := &recordSink{}
			p := newPipeline(t, src, sink, 10)

			err := p.Run(context.Background())
			assert.ErrorIs(t, err, core.ErrCapture)
			assert.Len(t, sink.rows, 1)
			assert.Equal(t, 2, src.calls)
			assert.Equal(t, 1, src.closes)
		})
	}
}

func TestRun_SinkFailure(t *testing.T) {
	src := &scriptSource{steps: []step{
		frame(ipv4Frame(t, layers.IPProtocolUDP, "10.0.0.1", "10.0.0.2"), 0),
		frame(ipv4Frame(t, layers.IPProtocolUDP, "10.0.0.1", "10.0.0.2"), 0),
	}}
	sink := &mockSink{}
	sink.On("Emit", mock.MatchedBy(func(r core.ReportRow) bool { return r.Index == 1 })).
		Return(errors.New("broken pipe")).Once()

	p := newPipeline(t, src, sink, 10)
	err := p.Run(context.Background())

	assert.ErrorIs(t, err, core.ErrReport)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, src.closes)
	assert.Equal(t, uint64(0), p.Stats().Emitted)
	sink.AssertExpectations(t)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &scriptSource{
		steps: []step{
			{err: core.ErrCaptureTimeout},
			{err: core.ErrCaptureTimeout},
			{err: core.ErrCaptureTimeout},
		},
		onNext: func(call int) {
			if call == 2 {
				cancel()
			}
		},
	}
	sink := &recordSink{}
	p := newPipeline(t, src, sink, 10)

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, 1, src.closes)
	assert.Empty(t, sink.rows)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &scriptSource{}
	p := newPipeline(t, src, &recordSink{}, 1)

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 0, src.calls)
	assert.Equal(t, 1, src.closes)
}

func TestRun_TimestampUsesLocation(t *testing.T) {
	src := &scriptSource{steps: []step{
		frame(ipv4Frame(t, layers.IPProtocolTCP, "10.0.0.1", "10.0.0.2"), 0),
	}}
	sink := &recordSink{}
	p, err := NewBuilder().
		WithName(t.Name()).
		WithSource(src).
		WithSink(sink).
		WithMaxRows(1).
		WithLocation(time.FixedZone("UTC+2", 2*60*60)).
		Build()
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, sink.rows, 1)
	assert.Equal(t, "14:30:45", sink.rows[0].Time)
}
