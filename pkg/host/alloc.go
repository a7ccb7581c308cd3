package host

import (
	"bytes"
	"fmt"
	"io"
)

// MemKind identifies the engine-defined memory regions whose allocations
// flow through Host.Realloc. The set is closed: the playback engine owns
// the numbering and this adapter only tracks sizes per slot.
type MemKind int

const (
	MemSVFCommandBuf MemKind = iota
	MemSVFSDRTDIData
	MemSVFSDRTDOData
	MemSVFSDRMaskData
	MemSVFSIRTDIData
	MemSVFSIRTDOData
	MemSVFSIRMaskData
	MemXSVFTDIData
	MemXSVFTDOData
	MemXSVFMaskData
	MemXSVFRetData

	memNum
)

var memNames = [...]string{
	"svf_commandbuf",
	"svf_sdr_tdi_data",
	"svf_sdr_tdo_data",
	"svf_sdr_mask_data",
	"svf_sir_tdi_data",
	"svf_sir_tdo_data",
	"svf_sir_mask_data",
	"xsvf_tdi_data",
	"xsvf_tdo_data",
	"xsvf_mask_data",
	"xsvf_ret_data",
}

func (m MemKind) String() string {
	if m < 0 || int(m) >= len(memNames) {
		return fmt.Sprintf("mem%d", int(m))
	}
	return memNames[m]
}

// CapacityTable records the largest buffer size ever requested per memory
// region. It only grows; a whole-process profile of a representative run
// yields worst-case capacities for generating a fixed-buffer allocator.
type CapacityTable struct {
	max [memNum]int
}

// Record notes a requested size for a region, keeping the maximum.
// Unknown regions are ignored.
func (t *CapacityTable) Record(which MemKind, size int) {
	if which < 0 || which >= memNum {
		return
	}
	if size > t.max[which] {
		t.max[which] = size
	}
}

// Max returns the largest size recorded for a region, 0 if none.
func (t *CapacityTable) Max(which MemKind) int {
	if which < 0 || which >= memNum {
		return 0
	}
	return t.max[which]
}

// GenerateAllocator writes Go source for a fixed-capacity replacement
// allocator: one statically sized buffer per region that saw a nonzero
// maximum, plus parallel buffer/size lookup tables and a function named
// funcName that serves requests from them.
func (t *CapacityTable) GenerateAllocator(w io.Writer, funcName string) error {
	num := 0
	for i, m := range t.max {
		if m > 0 {
			num = i + 1
		}
	}

	var b bytes.Buffer
	for i := 0; i < num; i++ {
		if t.max[i] > 0 {
			fmt.Fprintf(&b, "var buf_%s [%d]byte\n", MemKind(i), t.max[i])
		}
	}
	fmt.Fprintf(&b, "\nvar buflist = [%d][]byte{", num)
	for i := 0; i < num; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		if t.max[i] > 0 {
			fmt.Fprintf(&b, "buf_%s[:]", MemKind(i))
		} else {
			b.WriteString("nil")
		}
	}
	b.WriteString("}\n")
	fmt.Fprintf(&b, "var sizelist = [%d]int{", num)
	for i := 0; i < num; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", t.max[i])
	}
	b.WriteString("}\n\n")
	fmt.Fprintf(&b, "func %s(buf []byte, size int, which int) []byte {\n", funcName)
	fmt.Fprintf(&b, "\tif which < %d && size <= sizelist[which] {\n", num)
	b.WriteString("\t\treturn buflist[which][:size]\n")
	b.WriteString("\t}\n")
	b.WriteString("\treturn nil\n")
	b.WriteString("}\n")

	_, err := w.Write(b.Bytes())
	return err
}
