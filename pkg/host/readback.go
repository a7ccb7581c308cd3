package host

import (
	"fmt"
	"strings"
)

// HexOrder selects the grouping direction for FormatHex.
type HexOrder int

const (
	// LSBFirst consumes the captured bits back to front, rendering the
	// readback as a little-endian value.
	LSBFirst HexOrder = iota
	// MSBFirst consumes the bits front to back.
	MSBFirst
)

// FormatBits renders captured readback bits as a space-separated decimal
// list, oldest first.
func FormatBits(bits []int) string {
	var sb strings.Builder
	for i, b := range bits {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if b != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// FormatHex packs captured bits into 4-bit groups and renders them as a
// "0x"-prefixed hex string. Sequences that are not a multiple of four bits
// are zero-padded at the tail of the grouping.
func FormatHex(bits []int, order HexOrder) string {
	var sb strings.Builder
	sb.WriteString("0x")
	for i := 0; i < len(bits); i += 4 {
		val := 0
		for j := i; j < i+4; j++ {
			idx := j
			if order == LSBFirst {
				idx = len(bits) - j - 1
			}
			bit := 0
			if idx >= 0 && idx < len(bits) && bits[idx] != 0 {
				bit = 1
			}
			val = val<<1 | bit
		}
		fmt.Fprintf(&sb, "%x", val)
	}
	return sb.String()
}
