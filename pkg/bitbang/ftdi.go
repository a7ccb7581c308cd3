package bitbang

import (
	"context"
	"time"

	"github.com/google/gousb"
	"github.com/pkg/errors"
)

const (
	// FT232R USB identifiers
	VendorIDFTDI    = 0x0403
	ProductIDFT232R = 0x6001

	// Baudrate for synchronous bitbang. The chip samples and drives the
	// pins at sixteen times the configured baud rate.
	Baudrate = 62500

	// LatencyMS is the latency-timer value in milliseconds. 1 is the
	// minimum the chip accepts and keeps the round trip per pulse short.
	LatencyMS = 1

	// Base clock the baud-rate divisor divides down from.
	ftdiClockHz = 3_000_000

	// Vendor control requests, per FTDI AN_232R-01.
	reqReset       = 0x00
	reqSetBaudrate = 0x03
	reqSetLatency  = 0x09
	reqSetBitmode  = 0x0B

	// FT232R fixed bulk endpoint numbers.
	ftdiEndpointIn  = 1 // 0x81
	ftdiEndpointOut = 2 // 0x02

	ftdiIOTimeout = 5 * time.Second
)

// FTDI owns an open FT232R handle. It is created already reset, with the
// baud rate and latency timer configured; bitmode selection is left to the
// Transport so Setup/Shutdown can flip it per session.
type FTDI struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	intf *gousb.Interface
	done func()

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	maxPacket int
}

var _ Device = (*FTDI)(nil)

// Open locates the FT232R by its fixed VID/PID, claims its interface and
// configures the baud rate and latency timer. The caller owns the returned
// handle and must Close it.
func Open() (*FTDI, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(VendorIDFTDI, ProductIDFT232R)
	if err != nil {
		ctx.Close()
		return nil, errors.Wrap(err, "bitbang: usb open")
	}
	if dev == nil {
		ctx.Close()
		return nil, errors.Errorf("bitbang: device not found (%04X:%04X)", VendorIDFTDI, ProductIDFT232R)
	}

	// Detach ftdi_sio if the kernel grabbed the port. Not fatal on
	// platforms without kernel drivers.
	dev.SetAutoDetach(true)

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, errors.Wrap(err, "bitbang: claim interface")
	}

	d := &FTDI{ctx: ctx, dev: dev, intf: intf, done: done}

	if err := d.configure(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *FTDI) configure() error {
	epOut, err := d.intf.OutEndpoint(ftdiEndpointOut)
	if err != nil {
		return errors.Wrap(err, "bitbang: open OUT endpoint")
	}
	d.epOut = epOut

	epIn, err := d.intf.InEndpoint(ftdiEndpointIn)
	if err != nil {
		return errors.Wrap(err, "bitbang: open IN endpoint")
	}
	d.epIn = epIn
	d.maxPacket = epIn.Desc.MaxPacketSize

	if err := d.control(reqReset, 0, 0); err != nil {
		return errors.Wrap(err, "bitbang: reset")
	}

	value, index, err := baudrateParams(Baudrate)
	if err != nil {
		return err
	}
	if err := d.control(reqSetBaudrate, value, index); err != nil {
		return errors.Wrap(err, "bitbang: set baudrate")
	}

	if err := d.control(reqSetLatency, LatencyMS, 0); err != nil {
		return errors.Wrap(err, "bitbang: set latency timer")
	}
	return nil
}

func (d *FTDI) control(request uint8, value, index uint16) error {
	_, err := d.dev.Control(
		gousb.ControlOut|gousb.ControlVendor|gousb.ControlDevice,
		request, value, index, nil)
	return err
}

// SetBitmode selects the pin mode and direction mask via the chip's
// bitmode control request.
func (d *FTDI) SetBitmode(mask, mode byte) error {
	if err := d.control(reqSetBitmode, uint16(mode)<<8|uint16(mask), 0); err != nil {
		return errors.Wrapf(err, "bitbang: set bitmode %#x", mode)
	}
	return nil
}

// Write sends bytes to be driven onto the output pins, one per bitbang
// sample period.
func (d *FTDI) Write(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ftdiIOTimeout)
	defer cancel()

	n, err := d.epOut.WriteContext(ctx, p)
	if err != nil {
		return n, errors.Wrap(err, "bitbang: usb write")
	}
	return n, nil
}

// Read fills p with pin-state samples. Every bulk IN packet from the chip
// starts with two modem-status bytes that carry no sample data; they are
// stripped here so callers see only the payload.
func (d *FTDI) Read(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ftdiIOTimeout)
	defer cancel()

	buf := make([]byte, d.maxPacket)
	total := 0
	for total < len(p) {
		n, err := d.epIn.ReadContext(ctx, buf)
		if err != nil {
			return total, errors.Wrap(err, "bitbang: usb read")
		}
		if n <= 2 {
			// Status-only packet, sample data not flushed yet.
			continue
		}
		total += copy(p[total:], buf[2:n])
	}
	return total, nil
}

// Close releases the interface, device and USB context. Idempotent.
func (d *FTDI) Close() error {
	if d.done != nil {
		d.done()
		d.done = nil
		d.intf = nil
	}
	if d.dev != nil {
		d.dev.Close()
		d.dev = nil
	}
	if d.ctx != nil {
		d.ctx.Close()
		d.ctx = nil
	}
	return nil
}

// baudrateParams encodes a baud rate into the value/index pair of the
// set-baudrate control request. The divisor is expressed in eighths of the
// base clock; the three sub-integer bits use the chip's fraction code.
func baudrateParams(baud int) (value, index uint16, err error) {
	if baud <= 0 {
		return 0, 0, errors.Errorf("bitbang: invalid baud rate %d", baud)
	}
	div := (ftdiClockHz*8 + baud/2) / baud
	if div < 8 {
		return 0, 0, errors.Errorf("bitbang: baud rate %d too high", baud)
	}
	fracCode := [8]uint32{0, 3, 2, 4, 1, 5, 6, 7}
	enc := uint32(div>>3) | fracCode[div&7]<<14
	return uint16(enc), uint16(enc >> 16), nil
}
