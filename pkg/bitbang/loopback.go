package bitbang

// TDOFunc computes the TDO level a simulated chain drives for a given
// output line state.
type TDOFunc func(lines byte) int

// Loopback is an in-memory Device with synchronous-bitbang semantics: each
// written byte first queues a sample of the current line state, then takes
// effect on the output-masked pins. The default wiring echoes TDI back to
// TDO, which keeps tests and the CLI simulator mode predictable; set TDO
// to emulate other chain behavior.
type Loopback struct {
	TDO TDOFunc

	mode    byte
	mask    byte
	lines   byte
	pending []byte
	writes  int
	closed  bool
}

var _ Device = (*Loopback)(nil)

// NewLoopback returns a simulator in normal (non-bitbang) mode.
func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) SetBitmode(mask, mode byte) error {
	if l.closed {
		return ErrNotOpen
	}
	l.mode = mode
	l.mask = mask
	return nil
}

// Mode returns the currently selected bitmode.
func (l *Loopback) Mode() byte { return l.mode }

// Writes returns the total number of bytes written so far.
func (l *Loopback) Writes() int { return l.writes }

func (l *Loopback) Write(p []byte) (int, error) {
	if l.closed {
		return 0, ErrNotOpen
	}
	for _, b := range p {
		l.pending = append(l.pending, l.sample())
		l.lines = b & l.mask
	}
	l.writes += len(p)
	return len(p), nil
}

func (l *Loopback) Read(p []byte) (int, error) {
	if l.closed {
		return 0, ErrNotOpen
	}
	n := copy(p, l.pending)
	l.pending = l.pending[n:]
	return n, nil
}

func (l *Loopback) Close() error {
	l.closed = true
	return nil
}

// sample is the pin state the chip would read back just before the next
// write takes effect: the driven outputs plus the chain-supplied TDO level.
func (l *Loopback) sample() byte {
	s := l.lines &^ MaskTDO
	if l.tdo() != 0 {
		s |= MaskTDO
	}
	return s
}

func (l *Loopback) tdo() int {
	if l.TDO != nil {
		return l.TDO(l.lines)
	}
	if l.lines&MaskTDI != 0 {
		return 1
	}
	return 0
}
