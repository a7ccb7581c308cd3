package bitbang

import "github.com/pkg/errors"

// Transport implements JTAG signaling over a synchronous-bitbang Device.
// It keeps a one-byte shadow register holding the last requested level of
// every output pin; the register persists across pulses for the lifetime
// of one Setup/Shutdown session.
//
// Not safe for concurrent use: the playback engine drives one call at a
// time and the shadow register carries state serially between calls.
type Transport struct {
	dev Device
	reg byte
}

// NewTransport wraps an opened Device. The transport does not take over
// closing the device.
func NewTransport(dev Device) *Transport {
	return &Transport{dev: dev}
}

// Setup switches the device into synchronous bitbang mode with the JTAG
// output pins driven and clears the shadow register.
func (t *Transport) Setup() error {
	if t.dev == nil {
		return ErrNotOpen
	}
	if err := t.dev.SetBitmode(MaskIO, BitmodeSyncBB); err != nil {
		return errors.Wrap(err, "enter synchronous bitbang")
	}
	t.reg = 0
	return nil
}

// Shutdown returns the device to normal UART operation. Safe to call after
// a failed or skipped Setup.
func (t *Transport) Shutdown() error {
	if t.dev == nil {
		return nil
	}
	if err := t.dev.SetBitmode(0, BitmodeReset); err != nil {
		return errors.Wrap(err, "leave bitbang mode")
	}
	return nil
}

// SetTMS records the TMS level to drive on subsequent pulses. No I/O.
func (t *Transport) SetTMS(v int) { t.setPin(MaskTMS, v) }

// SetTDI records the TDI level to drive on subsequent pulses. No I/O.
func (t *Transport) SetTDI(v int) { t.setPin(MaskTDI, v) }

func (t *Transport) setPin(mask byte, v int) {
	if v != 0 {
		t.reg |= mask
	} else {
		t.reg &^= mask
	}
}

// Register returns the current shadow register.
func (t *Transport) Register() byte { return t.reg }

// PulseTCK drives one full clock pulse and returns the TDO level sampled
// after the rising edge.
//
// The chip samples the pins before a newly written byte takes effect, so a
// single pulse needs three writes: the register with TCK low, with TCK
// high, and with TCK low again. The read-back byte paired with the third
// write was sampled between the rising and the falling edge; its TDO bit
// is the valid sample for this pulse. Anything other than three bytes
// transferred in either direction is a transport failure.
func (t *Transport) PulseTCK() (int, error) {
	if t.dev == nil {
		return 0, ErrNotOpen
	}

	out := [3]byte{
		t.reg &^ MaskTCK,
		t.reg | MaskTCK,
		t.reg &^ MaskTCK,
	}

	n, err := t.dev.Write(out[:])
	if err != nil {
		return 0, errors.Wrap(err, "pulse write")
	}
	if n != 3 {
		return 0, errors.Errorf("short pulse write (%d of 3 bytes)", n)
	}

	var in [3]byte
	n, err = t.dev.Read(in[:])
	if err != nil {
		return 0, errors.Wrap(err, "pulse read")
	}
	if n != 3 {
		return 0, errors.Errorf("short pulse read (%d of 3 bytes)", n)
	}

	if in[2]&MaskTDO != 0 {
		return 1, nil
	}
	return 0, nil
}
