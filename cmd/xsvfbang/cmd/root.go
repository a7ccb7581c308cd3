package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/xsvfbang/pkg/bitbang"
)

var (
	// Global flags
	verbose int
	useSim  bool
)

var rootCmd = &cobra.Command{
	Use:   "xsvfbang",
	Short: "JTAG signal driver for FT232R synchronous bitbang",
	Long: `Drives JTAG TMS/TDI/TCK lines through an FT232R USB-serial chip in
synchronous bitbang mode and samples TDO back. The hardware surface is the
host side of an SVF/XSVF playback engine; the commands here exercise it
with primitive signal requests.

Examples:
  xsvfbang probe                                  # Bring the device up and back down
  xsvfbang pulse --sim --tms 11111 --capture      # 5 TAP-reset pulses against the simulator
  xsvfbang -vv pulse --tms 0000 --tdi 1011 --capture --hex-msb`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&useSim, "sim", false, "drive the loopback simulator instead of hardware")
}

// openDevice returns the selected device: the FT232R, or the loopback
// simulator when --sim is given.
func openDevice() (bitbang.Device, error) {
	if useSim {
		return bitbang.NewLoopback(), nil
	}
	return bitbang.Open()
}
