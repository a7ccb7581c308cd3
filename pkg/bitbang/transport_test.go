package bitbang

import (
	"strings"
	"testing"
)

// scriptDevice is a scripted Device for exercising the pulse protocol
// without hardware. Each Read call returns the next queued response.
type scriptDevice struct {
	writes    [][]byte
	responses [][]byte
	writeLen  int // override reported write length, 0 = full
	bitmodes  []struct{ mask, mode byte }
}

func (d *scriptDevice) Write(p []byte) (int, error) {
	d.writes = append(d.writes, append([]byte(nil), p...))
	if d.writeLen > 0 {
		return d.writeLen, nil
	}
	return len(p), nil
}

func (d *scriptDevice) Read(p []byte) (int, error) {
	if len(d.responses) == 0 {
		return 0, nil
	}
	resp := d.responses[0]
	d.responses = d.responses[1:]
	return copy(p, resp), nil
}

func (d *scriptDevice) SetBitmode(mask, mode byte) error {
	d.bitmodes = append(d.bitmodes, struct{ mask, mode byte }{mask, mode})
	return nil
}

func (d *scriptDevice) Close() error { return nil }

func TestTransport_ShadowRegister(t *testing.T) {
	tests := []struct {
		name string
		ops  func(*Transport)
		want byte
	}{
		{
			name: "initial state all low",
			ops:  func(*Transport) {},
			want: 0,
		},
		{
			name: "tms high",
			ops:  func(tr *Transport) { tr.SetTMS(1) },
			want: MaskTMS,
		},
		{
			name: "tdi high",
			ops:  func(tr *Transport) { tr.SetTDI(1) },
			want: MaskTDI,
		},
		{
			name: "both high",
			ops: func(tr *Transport) {
				tr.SetTMS(1)
				tr.SetTDI(1)
			},
			want: MaskTMS | MaskTDI,
		},
		{
			name: "overwrite is idempotent",
			ops: func(tr *Transport) {
				tr.SetTMS(1)
				tr.SetTMS(1)
				tr.SetTDI(0)
				tr.SetTDI(0)
			},
			want: MaskTMS,
		},
		{
			name: "clearing one line leaves the other",
			ops: func(tr *Transport) {
				tr.SetTMS(1)
				tr.SetTDI(1)
				tr.SetTMS(0)
			},
			want: MaskTDI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTransport(&scriptDevice{})
			if err := tr.Setup(); err != nil {
				t.Fatalf("Setup() failed: %v", err)
			}
			tt.ops(tr)
			if got := tr.Register(); got != tt.want {
				t.Errorf("Register() = %#08b, want %#08b", got, tt.want)
			}
		})
	}
}

func TestTransport_PulseTCK_Bundle(t *testing.T) {
	dev := &scriptDevice{
		responses: [][]byte{{0x00, 0x00, MaskTDO}},
	}
	tr := NewTransport(dev)
	if err := tr.Setup(); err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}

	tr.SetTMS(1)
	tr.SetTDI(1)

	tdo, err := tr.PulseTCK()
	if err != nil {
		t.Fatalf("PulseTCK() failed: %v", err)
	}
	if tdo != 1 {
		t.Errorf("PulseTCK() = %d, want 1", tdo)
	}

	// One three-byte bundle: outputs with TCK low, high, low again.
	if len(dev.writes) != 1 {
		t.Fatalf("Expected 1 write, got %d", len(dev.writes))
	}
	reg := MaskTMS | MaskTDI
	want := []byte{reg, reg | MaskTCK, reg}
	got := dev.writes[0]
	if len(got) != 3 {
		t.Fatalf("Expected 3-byte bundle, got %d bytes", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bundle[%d] = %#08b, want %#08b", i, got[i], want[i])
		}
	}
}

func TestTransport_PulseTCK_ThirdByteOnly(t *testing.T) {
	tests := []struct {
		name string
		resp []byte
		want int
	}{
		{"tdo in third byte", []byte{0x00, 0x00, MaskTDO}, 1},
		{"tdo only in first two bytes", []byte{MaskTDO, MaskTDO, 0x00}, 0},
		{"tdo everywhere", []byte{MaskTDO, MaskTDO, MaskTDO}, 1},
		{"all clear", []byte{0x00, 0x00, 0x00}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &scriptDevice{responses: [][]byte{tt.resp}}
			tr := NewTransport(dev)
			if err := tr.Setup(); err != nil {
				t.Fatalf("Setup() failed: %v", err)
			}
			got, err := tr.PulseTCK()
			if err != nil {
				t.Fatalf("PulseTCK() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("PulseTCK() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTransport_PulseTCK_ShortTransfers(t *testing.T) {
	t.Run("short write", func(t *testing.T) {
		dev := &scriptDevice{writeLen: 2}
		tr := NewTransport(dev)
		tr.Setup()
		_, err := tr.PulseTCK()
		if err == nil || !strings.Contains(err.Error(), "short pulse write") {
			t.Errorf("Expected short-write error, got %v", err)
		}
	})

	t.Run("short read", func(t *testing.T) {
		dev := &scriptDevice{responses: [][]byte{{0x00, 0x00}}}
		tr := NewTransport(dev)
		tr.Setup()
		_, err := tr.PulseTCK()
		if err == nil || !strings.Contains(err.Error(), "short pulse read") {
			t.Errorf("Expected short-read error, got %v", err)
		}
	})
}

func TestTransport_NotOpen(t *testing.T) {
	tr := NewTransport(nil)

	if err := tr.Setup(); err != ErrNotOpen {
		t.Errorf("Setup() = %v, want ErrNotOpen", err)
	}
	if _, err := tr.PulseTCK(); err != ErrNotOpen {
		t.Errorf("PulseTCK() = %v, want ErrNotOpen", err)
	}
	// Shutdown stays safe even when Setup never ran.
	if err := tr.Shutdown(); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
}

func TestTransport_SetupShutdownBitmodes(t *testing.T) {
	dev := &scriptDevice{}
	tr := NewTransport(dev)

	if err := tr.Setup(); err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}
	if err := tr.Shutdown(); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	if len(dev.bitmodes) != 2 {
		t.Fatalf("Expected 2 bitmode changes, got %d", len(dev.bitmodes))
	}
	if dev.bitmodes[0].mask != MaskIO || dev.bitmodes[0].mode != BitmodeSyncBB {
		t.Errorf("Setup bitmode = (%#x, %#x), want (%#x, %#x)",
			dev.bitmodes[0].mask, dev.bitmodes[0].mode, MaskIO, BitmodeSyncBB)
	}
	if dev.bitmodes[1].mask != 0 || dev.bitmodes[1].mode != BitmodeReset {
		t.Errorf("Shutdown bitmode = (%#x, %#x), want (0, %#x)",
			dev.bitmodes[1].mask, dev.bitmodes[1].mode, BitmodeReset)
	}
}
