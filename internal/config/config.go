// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"firestige.xyz/pktsum/internal/core"
)

// Config represents the top-level configuration.
// Maps to the `pktsum:` root key in YAML.
type Config struct {
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ─── Capture ───

// CaptureConfig contains interface-open parameters.
type CaptureConfig struct {
	Backend      string `mapstructure:"backend" yaml:"backend"`     // pcap | afpacket | file
	Interface    string `mapstructure:"interface" yaml:"interface"` // Empty = first enumerated device
	File         string `mapstructure:"file" yaml:"file"`           // Replay source for the file backend
	SnapLen      int    `mapstructure:"snap_len" yaml:"snap_len"`
	Promiscuous  bool   `mapstructure:"promiscuous" yaml:"promiscuous"`
	TimeoutMs    int    `mapstructure:"timeout_ms" yaml:"timeout_ms"` // 0 = non-blocking poll
	BPFFilter    string `mapstructure:"bpf_filter" yaml:"bpf_filter"`
	BufferSizeMB int    `mapstructure:"buffer_size_mb" yaml:"buffer_size_mb"` // afpacket ring size
}

// Timeout returns TimeoutMs as a duration.
func (c CaptureConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ─── Report ───

// ReportConfig controls how summary rows are produced and rendered.
type ReportConfig struct {
	Mode     string `mapstructure:"mode" yaml:"mode"`         // table | bytes
	Format   string `mapstructure:"format" yaml:"format"`     // text | json
	MaxRows  int    `mapstructure:"max_rows" yaml:"max_rows"` // quota, > 0
	Timezone string `mapstructure:"timezone" yaml:"timezone"` // IANA name or "Local"
}

// Location resolves Timezone.
func (c ReportConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `pktsum: ...`.
type configRoot struct {
	Pktsum Config `mapstructure:"pktsum"`
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"backend":    "pktsum.capture.backend",
	"interface":  "pktsum.capture.interface",
	"read":       "pktsum.capture.file",
	"snaplen":    "pktsum.capture.snap_len",
	"promisc":    "pktsum.capture.promiscuous",
	"timeout-ms": "pktsum.capture.timeout_ms",
	"filter":     "pktsum.capture.bpf_filter",
	"mode":       "pktsum.report.mode",
	"format":     "pktsum.report.format",
	"count":      "pktsum.report.max_rows",
	"tz":         "pktsum.report.timezone",
	"log-level":  "pktsum.log.level",
}

// Load loads configuration from an optional file, environment and flags.
//
// An empty path means defaults only. The YAML file uses `pktsum:` as root key;
// env vars follow the key path (e.g. PKTSUM_CAPTURE_INTERFACE). Flags that are
// present in flags and listed in flagKeys take precedence when set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Key "pktsum.log.level" → env "PKTSUM_LOG_LEVEL".
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Pktsum

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use "pktsum." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Capture defaults
	v.SetDefault("pktsum.capture.backend", "pcap")
	v.SetDefault("pktsum.capture.interface", "")
	v.SetDefault("pktsum.capture.file", "")
	v.SetDefault("pktsum.capture.snap_len", 65535)
	v.SetDefault("pktsum.capture.promiscuous", true)
	v.SetDefault("pktsum.capture.timeout_ms", 1000)
	v.SetDefault("pktsum.capture.bpf_filter", "")
	v.SetDefault("pktsum.capture.buffer_size_mb", 8)

	// Report defaults
	v.SetDefault("pktsum.report.mode", "table")
	v.SetDefault("pktsum.report.format", "text")
	v.SetDefault("pktsum.report.max_rows", 10)
	v.SetDefault("pktsum.report.timezone", "Local")

	// Metrics defaults
	v.SetDefault("pktsum.metrics.enabled", false)
	v.SetDefault("pktsum.metrics.listen", ":9091")
	v.SetDefault("pktsum.metrics.path", "/metrics")

	// Log defaults
	v.SetDefault("pktsum.log.level", "info")
	v.SetDefault("pktsum.log.format", "text")
	v.SetDefault("pktsum.log.outputs.file.enabled", false)
	v.SetDefault("pktsum.log.outputs.file.path", "/var/log/pktsum/pktsum.log")
	v.SetDefault("pktsum.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("pktsum.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("pktsum.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("pktsum.log.outputs.file.rotation.compress", true)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
// Every returned error wraps core.ErrConfigInvalid.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return invalid("log level %q (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return invalid("log format %q (must be json/text)", cfg.Log.Format)
	}

	// ── Capture validation ──
	c := &cfg.Capture
	if c.File != "" && c.Backend == "pcap" {
		// A replay file implies the file backend unless another was chosen explicitly.
		c.Backend = "file"
	}
	switch c.Backend {
	case "pcap", "afpacket":
	case "file":
		if c.File == "" {
			return invalid("capture.file is required for the file backend")
		}
	default:
		return invalid("capture.backend %q (must be pcap/afpacket/file)", c.Backend)
	}
	if c.SnapLen <= 0 {
		return invalid("capture.snap_len must be positive, got %d", c.SnapLen)
	}
	if c.TimeoutMs < 0 {
		return invalid("capture.timeout_ms must not be negative, got %d", c.TimeoutMs)
	}
	if c.Backend == "afpacket" && c.BufferSizeMB <= 0 {
		return invalid("capture.buffer_size_mb must be positive, got %d", c.BufferSizeMB)
	}

	// ── Report validation ──
	r := &cfg.Report
	if r.Mode != "table" && r.Mode != "bytes" {
		return invalid("report.mode %q (must be table/bytes)", r.Mode)
	}
	if r.Format != "text" && r.Format != "json" {
		return invalid("report.format %q (must be text/json)", r.Format)
	}
	if r.MaxRows <= 0 {
		return invalid("report.max_rows must be positive, got %d", r.MaxRows)
	}
	if _, err := r.Location(); err != nil {
		return invalid("report.timezone %q: %v", r.Timezone, err)
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return invalid("metrics.listen is required when metrics.enabled=true")
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrConfigInvalid, fmt.Sprintf(format, args...))
}
