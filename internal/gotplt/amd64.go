package gotplt

import "encoding/binary"

// amd64Stub encodes `jmp [rip + disp32]` (FF 25 xx xx xx xx) followed by
// NOP padding to StubSize bytes, matching the ELF PLT convention — a plain
// RIP-relative indirect jump through the matching GOT entry, with no
// lazy-binding resolver stub since this core always binds eagerly at
// relocate time (spec §4.6 "PLT contents").
func amd64Stub(stubAddr, gotEntryAddr uint64) []byte {
	stub := make([]byte, StubSize)
	stub[0] = 0xFF
	stub[1] = 0x25

	// disp32 is measured from the end of this 6-byte instruction.
	instrEnd := stubAddr + 6
	disp := int64(gotEntryAddr) - int64(instrEnd)
	binary.LittleEndian.PutUint32(stub[2:6], uint32(int32(disp)))

	for i := 6; i < StubSize; i++ {
		stub[i] = 0x90 // NOP padding
	}
	return stub
}
