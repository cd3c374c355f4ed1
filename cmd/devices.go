package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"firestige.xyz/pktsum/internal/capture/live"
	"firestige.xyz/pktsum/internal/core"
)

var devicesFirst bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture-capable interfaces",
	Long: `List the interfaces libpcap can capture on, in enumeration order.

With --first only the first device is printed; it is the one capture uses
when --interface is not given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDevices(cmd.OutOrStdout(), live.Devices, devicesFirst)
	},
}

func init() {
	devicesCmd.Flags().BoolVar(&devicesFirst, "first", false, "print only the first device")
}

func runDevices(out io.Writer, list func() ([]live.Device, error), first bool) error {
	devices, err := list()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrDeviceOpen, err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("%w: no capture devices found", core.ErrDeviceOpen)
	}

	if first {
		_, err := fmt.Fprintf(out, "Device: %s\n", devices[0].Name)
		return err
	}

	r := lipgloss.NewRenderer(out)
	name := r.NewStyle().Bold(true)
	dim := r.NewStyle().Faint(true)

	for _, d := range devices {
		line := name.Render(d.Name)
		if d.Description != "" {
			line += " " + dim.Render("("+d.Description+")")
		}
		if len(d.Addresses) > 0 {
			line += "  " + strings.Join(d.Addresses, ", ")
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
