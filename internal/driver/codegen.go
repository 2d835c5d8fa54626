package driver

import (
	"encoding/binary"
	"regexp"

	"github.com/cosmorun/cosmorun/internal/cosmorunerr"
	"github.com/cosmorun/cosmorun/internal/platform"
)

// Full C-to-machine-code generation from a parsed translation unit is out
// of scope for this repo (spec §1 treats the frontend as an external
// collaborator whose job ends at parsing and macro expansion). What
// follows is the minimal, honest codegen the driver needs to exercise
// real relocation, GOT/PLT, and trampoline machinery end to end: each
// function a translation unit defines becomes a single return instruction
// at its own address, and each call expression the source text contains
// becomes a real call-site instruction whose displacement is patched
// during Relocate exactly like a linker would patch one emitted by an
// actual backend.

// retBytes is the architecture's single-instruction "return" encoding,
// used as the body every defined function compiles down to.
func retBytes(arch platform.Arch) []byte {
	switch arch {
	case platform.ArchARM64:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, 0xD65F03C0) // RET
		return buf
	default:
		return []byte{0xC3} // amd64 RET
	}
}

// callSiteSize is the byte length of a placeholder call-site instruction.
func callSiteSize(arch platform.Arch) int {
	if arch == platform.ArchARM64 {
		return 4
	}
	return 5
}

// emitCallSite writes a placeholder call instruction into code at offset
// and returns the address (within the eventual finalized region, given
// base) that Relocate's patch pass must treat as the relocation's source
// address (P in the "(S+A)-P" formula).
func emitCallSite(arch platform.Arch, code []byte, offset int, base uint64) uint64 {
	switch arch {
	case platform.ArchARM64:
		binary.LittleEndian.PutUint32(code[offset:], 0x94000000) // BL with a zero immediate
		return base + uint64(offset)                             // ARM64 BL's displacement is from the instruction's own address
	default:
		code[offset] = 0xE8 // near CALL rel32
		binary.LittleEndian.PutUint32(code[offset+1:], 0)
		return base + uint64(offset) + 1 // x86 CALL's displacement field starts one byte in
	}
}

// patchCallSite writes disp into the placeholder call instruction at
// offset. An x86 CALL holds any displacement that passed reloc's PC32
// check; an ARM64 BL holds only ±128 MiB, so a larger displacement is
// rejected with a RelocationLayoutError.
func patchCallSite(arch platform.Arch, code []byte, offset int, disp int64) error {
	switch arch {
	case platform.ArchARM64:
		if disp < -(1<<27) || disp >= 1<<27 {
			return cosmorunerr.New(cosmorunerr.KindRelocationLayout, "ARM64 BL displacement %d exceeds the ±128 MiB range of its 26-bit immediate", disp)
		}
		if disp%4 != 0 {
			return cosmorunerr.New(cosmorunerr.KindRelocationLayout, "ARM64 BL displacement %d is not 4-byte aligned", disp)
		}
		imm26 := uint32((disp >> 2)) & 0x03FFFFFF
		binary.LittleEndian.PutUint32(code[offset:], 0x94000000|imm26)
		return nil
	default:
		binary.LittleEndian.PutUint32(code[offset+1:], uint32(int32(disp)))
		return nil
	}
}

// externalCallPattern finds bare identifier-call expressions in C source
// text — a deliberately simple stand-in for what a real backend's call
// expression codegen would discover directly from the AST.
var externalCallPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// externalCallsIn returns the identifiers src calls that are not
// themselves defined within the same translation unit (locallyDefined),
// in occurrence order with repeats preserved (each occurrence needs
// its own relocation record — see internal/reloc's Scan comment).
func externalCallsIn(src string, locallyDefined map[string]bool) []string {
	var out []string
	for _, m := range externalCallPattern.FindAllStringSubmatch(src, -1) {
		name := m[1]
		if locallyDefined[name] {
			continue
		}
		switch name {
		case "if", "while", "for", "switch", "return", "sizeof":
			continue
		}
		out = append(out, name)
	}
	return out
}
