package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"firestige.xyz/pktsum/internal/capture"
	_ "firestige.xyz/pktsum/internal/capture/afpacket"
	"firestige.xyz/pktsum/internal/capture/file"
	"firestige.xyz/pktsum/internal/capture/live"
	"firestige.xyz/pktsum/internal/config"
	"firestige.xyz/pktsum/internal/core"
	"firestige.xyz/pktsum/internal/log"
	"firestige.xyz/pktsum/internal/metrics"
	"firestige.xyz/pktsum/internal/pipeline"
	"firestige.xyz/pktsum/internal/report"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture frames and print one summary row per IPv4 frame",
	Long: `Open a capture source and print a summary row for every IPv4 frame.

Non-IPv4 and truncated frames are skipped and do not count towards --count.
Without --interface the first enumerated device is used; --read replays a
pcap or pcapng file instead of capturing live.`,
	Example: `  pktsum capture -i eth0 -n 20
  pktsum capture -r trace.pcap -o json
  pktsum capture -i eth0 -f "udp port 53" -m bytes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runCapture(ctx, configFile, cmd.Flags(), cmd.OutOrStdout())
	},
}

func init() {
	registerCaptureFlags(captureCmd.Flags())
}

// registerCaptureFlags declares the capture flags. Names must match the
// flag-to-key table in internal/config.
func registerCaptureFlags(fs *pflag.FlagSet) {
	fs.StringP("interface", "i", "", "interface to capture on (default: first enumerated device)")
	fs.StringP("read", "r", "", "replay a pcap/pcapng file instead of a live interface")
	fs.StringP("backend", "b", "pcap", "capture backend: pcap, afpacket, file")
	fs.IntP("count", "n", 10, "number of IPv4 rows to print before stopping")
	fs.IntP("snaplen", "s", 65535, "maximum bytes captured per frame")
	fs.BoolP("promisc", "p", true, "put the interface in promiscuous mode")
	fs.IntP("timeout-ms", "t", 1000, "read timeout in milliseconds (0 = poll without waiting)")
	fs.StringP("filter", "f", "", "BPF filter expression")
	fs.StringP("mode", "m", report.ModeTable, "report mode: table, bytes")
	fs.StringP("format", "o", report.FormatText, "output format: text, json")
	fs.String("tz", "Local", "time zone for row timestamps (IANA name)")
}

func runCapture(ctx context.Context, path string, flags *pflag.FlagSet, out io.Writer) error {
	cfg, err := config.Load(path, flags)
	if err != nil {
		return err
	}
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			if err := srv.Stop(context.Background()); err != nil {
				slog.Warn("metrics server stop failed", "error", err)
			}
		}()
	}

	loc, err := cfg.Report.Location()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}

	sink, err := report.New(cfg.Report.Mode, cfg.Report.Format, out)
	if err != nil {
		return err
	}
	defer sink.Close()

	opts, err := captureOptions(cfg.Capture)
	if err != nil {
		return err
	}

	sess, err := capture.Open(cfg.Capture.Backend, opts)
	if err != nil {
		return err
	}

	p, err := pipeline.NewBuilder().
		WithName(sess.Backend()).
		WithSource(sess).
		WithSink(sink).
		WithMaxRows(cfg.Report.MaxRows).
		WithLocation(loc).
		Build()
	if err != nil {
		sess.Close()
		return err
	}

	runErr := p.Run(ctx)

	stats := p.Stats()
	slog.Info("capture finished",
		"rows", stats.Emitted,
		"frames", stats.Polled,
		"timeouts", stats.Timeouts,
		"not_ipv4", stats.NotIPv4,
		"truncated", stats.Truncated)

	return runErr
}

// captureOptions maps the capture config to session options, resolving the
// default interface for live backends.
func captureOptions(c config.CaptureConfig) (capture.Options, error) {
	opts := capture.Options{
		Interface:    c.Interface,
		File:         c.File,
		SnapLen:      c.SnapLen,
		Promiscuous:  c.Promiscuous,
		Timeout:      c.Timeout(),
		BPFFilter:    c.BPFFilter,
		BufferSizeMB: c.BufferSizeMB,
	}

	if c.Backend != file.Name && opts.Interface == "" {
		name, err := live.FirstDevice()
		if err != nil {
			return opts, fmt.Errorf("%w: %v", core.ErrDeviceOpen, err)
		}
		slog.Info("no interface given, using first device", "interface", name)
		opts.Interface = name
	}
	return opts, nil
}
