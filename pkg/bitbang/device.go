package bitbang

import "errors"

// Device is the raw byte-level surface of a bitbang-capable USB-serial
// chip. Write drives the output-masked pins with each byte in order; Read
// returns the pin-state samples the chip queued for those writes. The
// Transport is the only caller and issues writes and reads strictly in
// pairs.
type Device interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	SetBitmode(mask, mode byte) error
	Close() error
}

// ErrNotOpen reports an operation against a transport whose device was
// never opened or has been closed.
var ErrNotOpen = errors.New("bitbang: device not open")
