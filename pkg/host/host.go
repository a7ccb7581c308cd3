// Package host implements the callback surface a vector playback engine
// (an SVF/XSVF interpreter) drives to execute primitive JTAG signal
// requests against a bitbang transport. The engine owns file parsing and
// TAP sequencing; this package only executes the signal-level requests it
// is handed and reports results back.
package host

// Host is the contract between the playback engine and the adapter, one
// method per engine callback. Line levels are ints so that tdi and tdo
// arguments can carry a don't-care marker: any negative value means the
// bit is undefined and must be neither driven nor checked.
type Host interface {
	// Setup brings up the transport. Operations before a successful Setup
	// degrade per the transport's not-open handling instead of crashing.
	Setup() error
	// Shutdown returns the transport to its idle mode. Idempotent.
	Shutdown() error
	// GetByte reads the next byte of the engine's input stream; io.EOF
	// signals end of stream.
	GetByte() (byte, error)
	// PulseTCK drives one clock pulse with TMS set to tms and, when tdi is
	// defined, TDI set to tdi. It returns the sampled TDO level. When tdo
	// is defined and disagrees with the sample, the error is
	// ErrTDOMismatch. rmask requests capture of the sample into the
	// session's bounded readback buffer. sync is accepted for interface
	// compatibility and has no effect; the transport is synchronous.
	PulseTCK(tms, tdi, tdo int, rmask, sync bool) (int, error)
	// PulseSCK requests a system-clock pulse. Not supported by this
	// transport; reported as a warning, no hardware action.
	PulseSCK()
	// SetTRST requests a TRST level change. Not supported; warning only.
	SetTRST(v int)
	// SetFrequency requests a TCK frequency. The rate is fixed by the
	// transport's baud configuration, so this warns and reports success.
	SetFrequency(hz int) error
	// Delay waits usecs microseconds. When numTCK is positive it first
	// issues that many pulses with TMS held at tms and credits the wall
	// time they consumed against the requested wait.
	Delay(usecs int64, tms int, numTCK int64)
	// ReportTAPState logs the engine-formatted TAP state name.
	ReportTAPState(state string)
	// ReportDevice logs a device identification code found on the chain.
	ReportDevice(idcode uint32)
	// ReportStatus logs an engine status message.
	ReportStatus(message string)
	// ReportError logs an engine error with its source position. Always
	// emitted, regardless of verbosity.
	ReportError(file string, line int, message string)
	// Realloc grows, shrinks or frees buf to size bytes for the given
	// memory region, recording the high-water size per region.
	Realloc(buf []byte, size int, which MemKind) []byte
}
