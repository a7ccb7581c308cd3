package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/xsvfbang/pkg/bitbang"
	"github.com/OpenTraceLab/xsvfbang/pkg/host"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Open and configure the adapter, then shut it down",
	Long: `Opens the FT232R, configures the baud rate and latency timer, enters
synchronous bitbang mode with the JTAG pins driven, and returns the chip
to normal operation. Useful as a wiring and permissions check.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	dev, err := openDevice()
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer dev.Close()

	sess := host.NewSession(bitbang.NewTransport(dev), nil)
	sess.Verbose = verbose

	if err := sess.Setup(); err != nil {
		return fmt.Errorf("configure device: %w", err)
	}
	defer sess.Shutdown()

	if useSim {
		fmt.Println("simulator ready in synchronous bitbang mode")
	} else {
		fmt.Printf("FT232R %04x:%04x ready in synchronous bitbang mode (baud %d, latency %d ms)\n",
			bitbang.VendorIDFTDI, bitbang.ProductIDFT232R, bitbang.Baudrate, bitbang.LatencyMS)
	}
	return nil
}
