package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"firestige.xyz/pktsum/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration capture would run with, after defaults, the
config file, PKTSUM_* environment variables and flags are merged and validated.

The output is valid YAML and can be used as a --config file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfig(configFile, cmd.Flags(), cmd.OutOrStdout())
	},
}

func init() {
	registerCaptureFlags(configCmd.Flags())
}

func runConfig(path string, flags *pflag.FlagSet, out io.Writer) error {
	cfg, err := config.Load(path, flags)
	if err != nil {
		return err
	}

	doc := struct {
		Pktsum *config.Config `yaml:"pktsum"`
	}{cfg}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
