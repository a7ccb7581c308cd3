package bitbang

// JTAG line assignment within the FT232R bitbang byte. The positions are
// fixed by the board wiring; changing one means re-deriving MaskIO as well.
const (
	MaskTMS byte = 1 << 7 // output
	MaskTDI byte = 1 << 3 // output
	MaskTDO byte = 1 << 6 // input, sampled only
	MaskTCK byte = 1 << 5 // output

	// MaskIO is the pin-direction mask handed to the chip: a set bit marks
	// the pin as driven, a clear bit as sampled.
	MaskIO = MaskTMS | MaskTDI | MaskTCK
)

// Bitmode selector values for Device.SetBitmode.
const (
	// BitmodeReset returns the chip to normal UART operation.
	BitmodeReset byte = 0x0
	// BitmodeSyncBB selects synchronous bitbang: every written byte queues
	// a read-back sample of the pin state taken just before the write
	// takes effect.
	BitmodeSyncBB byte = 0x4
)
