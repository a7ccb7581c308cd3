package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// resetFlags restores the package flag state between command executions;
// cobra keeps flag values across Execute calls.
func resetFlags() {
	verbose = 0
	useSim = false
	pulseTMS = ""
	pulseTDI = ""
	pulseTDO = ""
	pulseCapture = false
	pulseHexLSB = false
	pulseHexMSB = false
	reallocFunc = ""
}

// execute runs the root command with args, capturing stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		io.Copy(&buf, r)
		close(done)
	}()

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	w.Close()
	os.Stdout = old
	<-done

	return buf.String(), execErr
}

func TestPulseE2E(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name: "capture decimal list",
			args: []string{"--sim", "pulse", "--tms", "0000", "--tdi", "1011", "--capture"},
			wantContain: []string{
				"4 rmask bits: 1 0 1 1",
			},
		},
		{
			name: "capture hex msb",
			args: []string{"--sim", "pulse", "--tms", "0000", "--tdi", "1011", "--capture", "--hex-msb"},
			wantContain: []string{
				"0xb",
			},
		},
		{
			name: "capture hex lsb",
			args: []string{"--sim", "pulse", "--tms", "0000", "--tdi", "1011", "--capture", "--hex-lsb"},
			wantContain: []string{
				"0xd",
			},
		},
		{
			name: "checked pulses pass on echo wiring",
			args: []string{"--sim", "pulse", "--tms", "0000", "--tdi", "1011", "--tdo", "1011"},
		},
		{
			name:    "checked pulses fail on mismatch",
			args:    []string{"--sim", "pulse", "--tms", "0000", "--tdi", "1011", "--tdo", "0011"},
			wantErr: true,
		},
		{
			name: "dont care tdo positions are not checked",
			args: []string{"--sim", "pulse", "--tms", "0000", "--tdi", "1011", "--tdo", "1-1-"},
		},
		{
			name: "realloc dump",
			args: []string{"--sim", "pulse", "--tms", "0000", "--tdi", "1011", "--realloc-func", "fixedAlloc"},
			wantContain: []string{
				"var buf_xsvf_tdi_data [4]byte",
				"func fixedAlloc(buf []byte, size int, which int) []byte {",
			},
		},
		{
			name:    "invalid vector character",
			args:    []string{"--sim", "pulse", "--tms", "00x0"},
			wantErr: true,
		},
		{
			name:    "tdi longer than tms",
			args:    []string{"--sim", "pulse", "--tms", "00", "--tdi", "1011"},
			wantErr: true,
		},
		{
			name:    "conflicting hex orders",
			args:    []string{"--sim", "pulse", "--tms", "0", "--hex-lsb", "--hex-msb"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got output:\n%s", out)
				}
				return
			}
			if err != nil {
				t.Fatalf("command failed: %v", err)
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestProbeE2E(t *testing.T) {
	out, err := execute(t, "--sim", "probe")
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !strings.Contains(out, "simulator ready") {
		t.Errorf("unexpected probe output: %q", out)
	}
}
