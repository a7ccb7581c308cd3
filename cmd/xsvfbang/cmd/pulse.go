package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/xsvfbang/pkg/bitbang"
	"github.com/OpenTraceLab/xsvfbang/pkg/host"
)

var (
	pulseTMS     string
	pulseTDI     string
	pulseTDO     string
	pulseCapture bool
	pulseHexLSB  bool
	pulseHexMSB  bool
	reallocFunc  string
)

var pulseCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Issue a primitive TMS/TDI bit vector and report readback",
	Long: `Drives one clock pulse per vector position. Vectors are strings of 0
and 1, leftmost bit first; in --tdi and --tdo a '-' marks a don't-care
position, and a vector shorter than --tms is don't-care past its end.

Captured TDO bits are printed as a decimal list, or packed to hex with
--hex-lsb / --hex-msb. Checked positions (--tdo) that mismatch the sampled
level are counted and make the command fail.

Examples:
  xsvfbang pulse --sim --tms 11111 --capture
  xsvfbang pulse --tms 0000 --tdi 1011 --tdo 1011 --capture --hex-msb`,
	RunE: runPulse,
}

func init() {
	rootCmd.AddCommand(pulseCmd)

	pulseCmd.Flags().StringVar(&pulseTMS, "tms", "", "TMS levels, one bit per pulse")
	pulseCmd.Flags().StringVar(&pulseTDI, "tdi", "", "TDI levels ('-' = don't care)")
	pulseCmd.Flags().StringVar(&pulseTDO, "tdo", "", "expected TDO levels ('-' = unchecked)")
	pulseCmd.Flags().BoolVar(&pulseCapture, "capture", false, "capture sampled TDO bits for the report")
	pulseCmd.Flags().BoolVarP(&pulseHexLSB, "hex-lsb", "L", false, "print captured bits as hex, LSB-first grouping")
	pulseCmd.Flags().BoolVarP(&pulseHexMSB, "hex-msb", "B", false, "print captured bits as hex, MSB-first grouping")
	pulseCmd.Flags().StringVarP(&reallocFunc, "realloc-func", "r", "", "dump a fixed-capacity allocator under this name")

	pulseCmd.MarkFlagRequired("tms")
}

func runPulse(cmd *cobra.Command, args []string) error {
	if err := checkVector("tms", pulseTMS, false); err != nil {
		return err
	}
	if err := checkVector("tdi", pulseTDI, true); err != nil {
		return err
	}
	if err := checkVector("tdo", pulseTDO, true); err != nil {
		return err
	}
	if len(pulseTDI) > len(pulseTMS) || len(pulseTDO) > len(pulseTMS) {
		return fmt.Errorf("--tdi and --tdo must not be longer than --tms (%d bits)", len(pulseTMS))
	}
	if pulseHexLSB && pulseHexMSB {
		return fmt.Errorf("cannot combine --hex-lsb and --hex-msb")
	}

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

	// Stage the value vectors through the session allocator so
	// --realloc-func reports the capacities this run needed.
	tdi := string(sessCopy(sess, pulseTDI, host.MemXSVFTDIData))
	tdo := string(sessCopy(sess, pulseTDO, host.MemXSVFTDOData))

	mismatches := 0
	for i := 0; i < len(pulseTMS); i++ {
		_, err := sess.PulseTCK(bitAt(pulseTMS, i), optBitAt(tdi, i), optBitAt(tdo, i), pulseCapture, false)
		if errors.Is(err, host.ErrTDOMismatch) {
			mismatches++
			continue
		}
		if err != nil {
			return fmt.Errorf("pulse %d: %w", i, err)
		}
	}

	if verbose >= 1 {
		fmt.Fprintf(os.Stderr, "Total number of clock cycles: %d\n", sess.ClockCount())
		fmt.Fprintf(os.Stderr, "Number of significant TDI bits: %d\n", sess.TDICount())
		fmt.Fprintf(os.Stderr, "Number of significant TDO bits: %d\n", sess.TDOCount())
		if mismatches == 0 {
			fmt.Fprintln(os.Stderr, "Finished without errors.")
		} else {
			fmt.Fprintln(os.Stderr, "Finished with errors!")
		}
	}

	if bits := sess.Captured(); len(bits) > 0 {
		switch {
		case pulseHexLSB:
			fmt.Println(host.FormatHex(bits, host.LSBFirst))
		case pulseHexMSB:
			fmt.Println(host.FormatHex(bits, host.MSBFirst))
		default:
			fmt.Printf("%d rmask bits: %s\n", len(bits), host.FormatBits(bits))
		}
	}

	if reallocFunc != "" {
		if err := sess.Capacities().GenerateAllocator(os.Stdout, reallocFunc); err != nil {
			return fmt.Errorf("dump allocator: %w", err)
		}
	}

	if mismatches > 0 {
		return fmt.Errorf("%d of %d checked pulses mismatched", mismatches, sess.TDOCount())
	}
	return nil
}

func checkVector(name, v string, allowDontCare bool) error {
	if name == "tms" && v == "" {
		return fmt.Errorf("--tms must name at least one pulse")
	}
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '0', '1':
		case '-':
			if allowDontCare {
				continue
			}
			fallthrough
		default:
			return fmt.Errorf("--%s: invalid character %q at position %d", name, v[i], i)
		}
	}
	return nil
}

func sessCopy(sess *host.Session, v string, which host.MemKind) []byte {
	buf := sess.Realloc(nil, len(v), which)
	copy(buf, v)
	return buf
}

func bitAt(s string, i int) int {
	if s[i] == '1' {
		return 1
	}
	return 0
}

// optBitAt treats positions past the end of the vector, and '-' markers,
// as don't-care.
func optBitAt(s string, i int) int {
	if i >= len(s) {
		return -1
	}
	switch s[i] {
	case '1':
		return 1
	case '0':
		return 0
	default:
		return -1
	}
}
