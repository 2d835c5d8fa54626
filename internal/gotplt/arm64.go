package gotplt

import (
	"encoding/binary"

	"github.com/cosmorun/cosmorun/internal/cosmorunerr"
)

// regIP0 (x16) is the ARM64 procedure-call scratch register conventionally
// reserved for linker-generated stubs — the same register the real ELF
// ARM64 PLT uses, so a stub here is indistinguishable from one a system
// linker would have produced.
const regIP0 = 16

// arm64Stub encodes:
//
//	adrp x16, <got_page>
//	ldr  x16, [x16, #<got_page_offset>]
//	br   x16
//	<pad>
//
// per spec §4.6's ARM64 PLT contents, each stub is itself guaranteed to be
// within PC32 range of its GOT entry because GOT and PLT are placed
// back-to-back by the caller (internal/gotplt.Build).
func arm64Stub(stubAddr, gotEntryAddr uint64) ([]byte, error) {
	pageOf := func(addr uint64) uint64 { return addr &^ 0xFFF }
	pageDelta := int64(pageOf(gotEntryAddr)) - int64(pageOf(stubAddr))
	pageCount := pageDelta >> 12
	if pageCount > (1<<20)-1 || pageCount < -(1<<20) {
		return nil, cosmorunerr.New(cosmorunerr.KindRelocationLayout, "ADRP page delta %d out of range for PLT stub at 0x%x", pageCount, stubAddr)
	}
	pageOffset := gotEntryAddr & 0xFFF
	if pageOffset%8 != 0 {
		return nil, cosmorunerr.New(cosmorunerr.KindRelocationLayout, "GOT entry 0x%x is not 8-byte aligned within its page", gotEntryAddr)
	}

	adrp := encodeADRP(regIP0, pageCount)
	ldr := encodeLDRImm64(regIP0, regIP0, uint32(pageOffset/8))
	br := encodeBR(regIP0)

	stub := make([]byte, StubSize)
	binary.LittleEndian.PutUint32(stub[0:4], adrp)
	binary.LittleEndian.PutUint32(stub[4:8], ldr)
	binary.LittleEndian.PutUint32(stub[8:12], br)
	binary.LittleEndian.PutUint32(stub[12:16], 0xD503201F) // NOP, pads to 16 bytes / 16-byte alignment
	return stub, nil
}

func encodeADRP(rd uint32, pageCount int64) uint32 {
	imm := uint32(pageCount) & 0x1FFFFF // 21-bit signed field, two's complement
	immlo := imm & 0x3
	immhi := (imm >> 2) & 0x7FFFF
	return (1 << 31) | (immlo << 29) | (0b10000 << 24) | (immhi << 5) | (rd & 0x1F)
}

func encodeLDRImm64(rt, rn uint32, imm12Scaled uint32) uint32 {
	// LDR (immediate), 64-bit unsigned offset form.
	return 0xF9400000 | ((imm12Scaled & 0xFFF) << 10) | ((rn & 0x1F) << 5) | (rt & 0x1F)
}

func encodeBR(rn uint32) uint32 {
	return 0xD61F0000 | ((rn & 0x1F) << 5)
}
