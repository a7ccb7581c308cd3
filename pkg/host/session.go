package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// CaptureLimit bounds the readback bits retained per session. Captures
// past the limit are dropped silently; the buffer is only cleared by
// starting a new session.
const CaptureLimit = 256

// Clocker is the transport surface a Session drives. *bitbang.Transport
// satisfies it; tests substitute fakes.
type Clocker interface {
	Setup() error
	Shutdown() error
	SetTMS(v int)
	SetTDI(v int)
	PulseTCK() (int, error)
}

// ErrTDOMismatch reports a checked pulse whose sampled TDO level differed
// from the expected value. The engine decides whether to abort on it.
var ErrTDOMismatch = errors.New("host: tdo mismatch")

// Session implements Host over a bitbang transport and holds the per-run
// state: verbosity, the engine input stream, pulse/bit counters and the
// bounded readback capture buffer.
//
// Verbosity levels: 1 run summary, 2 setup/shutdown/status, 3 delay, TAP
// state and allocation traces, 4 per-pulse traces. Errors and unsupported
// feature warnings are emitted unconditionally.
type Session struct {
	tr Clocker

	// Verbose gates diagnostic output as described above.
	Verbose int
	// Diag receives diagnostics. Defaults to os.Stderr.
	Diag io.Writer

	in io.ByteReader

	clockCount int
	tdiCount   int
	tdoCount   int
	captured   []int
	caps       CapacityTable

	// Injection points for delay tests.
	now   func() time.Time
	sleep func(time.Duration)
}

var _ Host = (*Session)(nil)

// NewSession binds a transport and the engine's input stream. in may be
// nil when the engine needs no byte stream (chain scan).
func NewSession(tr Clocker, in io.Reader) *Session {
	s := &Session{
		tr:    tr,
		Diag:  os.Stderr,
		now:   time.Now,
		sleep: time.Sleep,
	}
	if in != nil {
		if br, ok := in.(io.ByteReader); ok {
			s.in = br
		} else {
			s.in = bufio.NewReader(in)
		}
	}
	return s
}

func (s *Session) logf(level int, format string, args ...any) {
	if s.Verbose >= level {
		fmt.Fprintf(s.Diag, format+"\n", args...)
	}
}

func (s *Session) Setup() error {
	s.logf(2, "[setup]")
	return s.tr.Setup()
}

func (s *Session) Shutdown() error {
	s.logf(2, "[shutdown]")
	return s.tr.Shutdown()
}

func (s *Session) GetByte() (byte, error) {
	if s.in == nil {
		return 0, io.EOF
	}
	return s.in.ReadByte()
}

func (s *Session) PulseTCK(tms, tdi, tdo int, rmask, sync bool) (int, error) {
	s.tr.SetTMS(tms)

	if tdi >= 0 {
		s.tdiCount++
		s.tr.SetTDI(tdi)
	}

	s.clockCount++
	line, err := s.tr.PulseTCK()
	if err != nil {
		fmt.Fprintf(s.Diag, "pulse failed: %v\n", err)
		return 0, err
	}

	if rmask && len(s.captured) < CaptureLimit {
		s.captured = append(s.captured, line)
	}

	rc := line
	var mismatch error
	if tdo >= 0 {
		s.tdoCount++
		if tdo != line {
			mismatch = ErrTDOMismatch
		}
	}

	s.logf(4, "[tms:%d tdi:%d tdo:%d line:%d rmask:%v rc:%d]", tms, tdi, tdo, line, rmask, rc)
	return rc, mismatch
}

func (s *Session) PulseSCK() {
	fmt.Fprintf(s.Diag, "warning: pulsing SCK ignored, transport has no system clock line\n")
}

func (s *Session) SetTRST(v int) {
	fmt.Fprintf(s.Diag, "warning: setting TRST to %d ignored, transport has no reset line\n", v)
}

func (s *Session) SetFrequency(hz int) error {
	fmt.Fprintf(s.Diag, "warning: setting TCK frequency to %d ignored, rate is fixed by the bitbang baud rate\n", hz)
	return nil
}

// Delay waits usecs microseconds. Pulses issued here already consume real
// time over the USB link, so their wall-clock cost is credited against the
// requested wait and only a positive remainder is slept.
func (s *Session) Delay(usecs int64, tms int, numTCK int64) {
	s.logf(3, "[delay:%d tms:%d num_tck:%d]", usecs, tms, numTCK)
	if numTCK > 0 {
		t1 := s.now()
		s.tr.SetTMS(tms)
		for ; numTCK > 0; numTCK-- {
			if _, err := s.tr.PulseTCK(); err != nil {
				fmt.Fprintf(s.Diag, "delay pulse failed: %v\n", err)
				break
			}
		}
		usecs = creditElapsed(usecs, t1, s.now())
		remain := usecs
		if remain < 0 {
			remain = 0
		}
		s.logf(3, "[delay_after_tck:%d]", remain)
	}
	if usecs > 0 {
		s.sleep(time.Duration(usecs) * time.Microsecond)
	}
}

// creditElapsed subtracts the wall time between t1 and t2 from a requested
// microsecond delay, decomposing the timestamps into whole-second and
// sub-second parts so the carry across a second boundary is exact.
func creditElapsed(usecs int64, t1, t2 time.Time) int64 {
	sec1, usec1 := t1.Unix(), int64(t1.Nanosecond())/1000
	sec2, usec2 := t2.Unix(), int64(t2.Nanosecond())/1000
	if sec2 > sec1 {
		usecs -= (1_000_000 - usec1) + (sec2-sec1-1)*1_000_000
		usec1 = 0
	}
	return usecs - (usec2 - usec1)
}

func (s *Session) ReportTAPState(state string) {
	s.logf(3, "[%s]", state)
}

func (s *Session) ReportDevice(idcode uint32) {
	fmt.Fprintf(s.Diag, "idcode=0x%08x, revision=0x%01x, part=0x%04x, manufacturer=0x%03x\n",
		idcode, (idcode>>28)&0xf, (idcode>>12)&0xffff, (idcode>>1)&0x7ff)
}

func (s *Session) ReportStatus(message string) {
	s.logf(2, "[status] %s", message)
}

func (s *Session) ReportError(file string, line int, message string) {
	fmt.Fprintf(s.Diag, "[%s:%d] %s\n", file, line, message)
}

// Realloc grows or shrinks buf to size bytes, recording the high-water
// size for the region so a profiled run can later be replayed against
// fixed buffers (see CapacityTable.GenerateAllocator). A non-positive size
// frees the buffer.
func (s *Session) Realloc(buf []byte, size int, which MemKind) []byte {
	s.caps.Record(which, size)
	s.logf(3, "[realloc:%s:%d]", which, size)
	if size <= 0 {
		return nil
	}
	if cap(buf) >= size {
		return buf[:size]
	}
	grown := make([]byte, size)
	copy(grown, buf)
	return grown
}

// ClockCount returns the total number of clock pulses issued through
// PulseTCK.
func (s *Session) ClockCount() int { return s.clockCount }

// TDICount returns how many pulses carried a defined TDI value.
func (s *Session) TDICount() int { return s.tdiCount }

// TDOCount returns how many sampled TDO bits were checked against an
// expected value.
func (s *Session) TDOCount() int { return s.tdoCount }

// Captured returns a copy of the readback bits collected so far,
// oldest first.
func (s *Session) Captured() []int {
	return append([]int(nil), s.captured...)
}

// Capacities exposes the session's allocation high-water table.
func (s *Session) Capacities() *CapacityTable { return &s.caps }
