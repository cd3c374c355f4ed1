// Package pipeline implements the capture-to-report loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"firestige.xyz/pktsum/internal/core"
	"firestige.xyz/pktsum/internal/core/decoder"
	"firestige.xyz/pktsum/internal/metrics"
)

// TimeLayout is the row timestamp format (HH:MM:SS).
const TimeLayout = "15:04:05"

// Source yields captured frames. Next returns core.ErrCaptureTimeout when
// nothing arrived in time, io.EOF at end of stream and any other error for
// a fatal capture failure. *capture.Session satisfies it.
type Source interface {
	Next() (core.CapturedFrame, error)
	Close() error
}

// Sink receives report rows in order.
type Sink interface {
	Emit(row core.ReportRow) error
}

// Pipeline polls a Source, dissects each frame and emits one row per IPv4
// frame until MaxRows rows were written.
// It is single-threaded and owns the source.
type Pipeline struct {
	name     string
	source   Source
	sink     Sink
	maxRows  int
	location *time.Location
	metrics  *Metrics
}

// Config contains pipeline configuration.
type Config struct {
	Source   Source
	Sink     Sink
	MaxRows  int
	Location *time.Location // Zone used for row timestamps, time.Local when nil
	Name     string         // Label for logs and Prometheus series
}

// New creates a new pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("%w: pipeline needs a source", core.ErrConfigInvalid)
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("%w: pipeline needs a sink", core.ErrConfigInvalid)
	}
	if cfg.MaxRows <= 0 {
		return nil, fmt.Errorf("%w: max rows must be positive, got %d", core.ErrConfigInvalid, cfg.MaxRows)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	return &Pipeline{
		name:     cfg.Name,
		source:   cfg.Source,
		sink:     cfg.Sink,
		maxRows:  cfg.MaxRows,
		location: cfg.Location,
		metrics:  NewMetrics(),
	}, nil
}

// Run polls until the row quota is reached, the source ends, ctx is
// cancelled or a fatal error occurs. Quota, end of stream and cancellation
// return nil. The source is closed before Run returns.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	slog.Info("pipeline starting", "pipeline", p.name, "max_rows", p.maxRows)
	metrics.CaptureStatus.WithLabelValues(p.name).Set(metrics.CaptureStatusRunning)

	defer func() {
		if cerr := p.source.Close(); cerr != nil {
			slog.Warn("closing capture source failed", "pipeline", p.name, "error", cerr)
		}
		status := metrics.CaptureStatusStopped
		if err != nil {
			status = metrics.CaptureStatusError
		}
		metrics.CaptureStatus.WithLabelValues(p.name).Set(float64(status))
		slog.Info("pipeline stopped", "pipeline", p.name, "rows", p.metrics.Emitted.Load(), "error", err)
	}()

	rows := 0
	for rows < p.maxRows {
		if ctx.Err() != nil {
			slog.Debug("pipeline cancelled", "pipeline", p.name)
			return nil
		}

		frame, err := p.source.Next()
		switch {
		case err == nil:
		case errors.Is(err, core.ErrCaptureTimeout):
			p.observePoll(metrics.ResultTimeout)
			p.metrics.Timeouts.Add(1)
			slog.Debug("poll timeout, waiting for frames", "pipeline", p.name)
			continue
		case errors.Is(err, io.EOF):
			p.observePoll(metrics.ResultEOF)
			slog.Debug("end of capture stream", "pipeline", p.name)
			return nil
		default:
			p.observePoll(metrics.ResultError)
			if !errors.Is(err, core.ErrCapture) {
				err = fmt.Errorf("%w: %v", core.ErrCapture, err)
			}
			return err
		}

		p.observePoll(metrics.ResultFrame)
		p.metrics.Polled.Add(1)

		row, ok := p.processFrame(frame, rows+1)
		if !ok {
			continue
		}
		if err := p.sink.Emit(row); err != nil {
			if !errors.Is(err, core.ErrReport) {
				err = fmt.Errorf("%w: %v", core.ErrReport, err)
			}
			return err
		}
		rows++
		p.metrics.Emitted.Add(1)
		metrics.RowsEmittedTotal.WithLabelValues(p.name, row.Protocol.String()).Inc()
	}

	slog.Debug("row quota reached", "pipeline", p.name, "rows", rows)
	return nil
}

// processFrame dissects one frame. ok is false when the frame is skipped.
func (p *Pipeline) processFrame(frame core.CapturedFrame, index int) (core.ReportRow, bool) {
	start := time.Now()
	decoded, err := decoder.Decode(frame.Data)
	metrics.DecodeLatencySeconds.WithLabelValues(p.name).Observe(time.Since(start).Seconds())

	if err != nil {
		reason := metrics.ReasonTruncated
		if errors.Is(err, core.ErrNotIPv4) {
			reason = metrics.ReasonNotIPv4
			p.metrics.NotIPv4.Add(1)
		} else {
			p.metrics.Truncated.Add(1)
		}
		metrics.FramesSkippedTotal.WithLabelValues(p.name, reason).Inc()
		slog.Debug("frame skipped", "pipeline", p.name, "reason", reason, "error", err)
		return core.ReportRow{}, false
	}

	return core.ReportRow{
		Index:       index,
		Time:        frame.Timestamp.In(p.location).Format(TimeLayout),
		Source:      decoded.Source(),
		Destination: decoded.Destination(),
		Protocol:    decoder.Classify(decoded.IP.Protocol),
		Length:      frame.WireLen,
		CaptureLen:  frame.CaptureLen,
	}, true
}

func (p *Pipeline) observePoll(result string) {
	metrics.FramesPolledTotal.WithLabelValues(p.name, result).Inc()
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Polled:    p.metrics.Polled.Load(),
		Timeouts:  p.metrics.Timeouts.Load(),
		NotIPv4:   p.metrics.NotIPv4.Load(),
		Truncated: p.metrics.Truncated.Load(),
		Emitted:   p.metrics.Emitted.Load(),
	}
}

// Stats represents pipeline statistics.
type Stats struct {
	Polled    uint64 // frames returned by the source
	Timeouts  uint64
	NotIPv4   uint64
	Truncated uint64
	Emitted   uint64
}
