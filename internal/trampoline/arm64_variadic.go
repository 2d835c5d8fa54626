package trampoline

import (
	"encoding/binary"

	"github.com/cosmorun/cosmorun/internal/cosmorunerr"
)

// arm64VariadicStub bridges AAPCS64's register-passing convention to
// Apple's ARM64 ABI variant, which requires every variadic argument past
// the named parameters to arrive on the stack rather than in x0-x7/v0-v7
// (spec §4.5). fixedArgs is the number of leading named integer
// parameters (1, 2, or 3 for the printf-family functions cosmorun
// bridges: format, stream/format, str/size/format).
//
// The stub, in order:
//
//  1. stores the variadic integer registers (x[fixedArgs] through x7) to
//     a reserved area at [sp, #0..], using STP pairs where possible;
//  2. materializes a pointer to that area in x8, mimicking the va_list
//     cosmorun's call-site synthesizer would otherwise have had to build
//     by hand;
//  3. loads the real target address into x17 via a four-instruction
//     movz/movk sequence (covers the full 64-bit range, unlike ADRP+ADD
//     which only reaches +/-4GB);
//  4. branches to it with BR.
//
// x17 (IP1) is the AAPCS64 scratch register reserved for this purpose.
func arm64VariadicStub(target uint64, fixedArgs int) ([]byte, error) {
	if fixedArgs < 0 || fixedArgs > 7 {
		return nil, cosmorunerr.New(cosmorunerr.KindConfig, "variadic trampoline fixedArgs %d out of range [0,7]", fixedArgs)
	}

	var out []uint32
	spillBytes := uint32(0)
	reg := fixedArgs
	for reg+1 < 8 {
		out = append(out, encodeSTP(reg, reg+1, 31, spillBytes))
		spillBytes += 16
		reg += 2
	}
	if reg < 8 {
		out = append(out, encodeSTRImm64(reg, 31, spillBytes/8))
		spillBytes += 8
	}

	out = append(out, encodeADDImm(8, 31, 0)) // mov x8, sp  (va_list base)

	out = append(out, encodeMOVZ(17, uint16(target), 0))
	out = append(out, encodeMOVK(17, uint16(target>>16), 1))
	out = append(out, encodeMOVK(17, uint16(target>>32), 2))
	out = append(out, encodeMOVK(17, uint16(target>>48), 3))

	out = append(out, encodeBRn(17))

	buf := make([]byte, len(out)*4)
	for i, ins := range out {
		binary.LittleEndian.PutUint32(buf[i*4:], ins)
	}
	return buf, nil
}

func encodeSTP(rt, rt2, rn uint32, immBytes uint32) uint32 {
	imm7 := (immBytes / 8) & 0x7F
	return 0xA9000000 | (imm7 << 15) | (rt2 << 10) | (rn << 5) | rt
}

func encodeSTRImm64(rt, rn uint32, imm12Scaled uint32) uint32 {
	return 0xF9000000 | ((imm12Scaled & 0xFFF) << 10) | ((rn & 0x1F) << 5) | (rt & 0x1F)
}

func encodeADDImm(rd, rn uint32, imm12 uint32) uint32 {
	return 0x91000000 | ((imm12 & 0xFFF) << 10) | ((rn & 0x1F) << 5) | (rd & 0x1F)
}

func encodeMOVZ(rd uint32, imm16 uint16, hw uint32) uint32 {
	return 0xD2800000 | ((hw & 0x3) << 21) | (uint32(imm16) << 5) | (rd & 0x1F)
}

func encodeMOVK(rd uint32, imm16 uint16, hw uint32) uint32 {
	return 0xF2800000 | ((hw & 0x3) << 21) | (uint32(imm16) << 5) | (rd & 0x1F)
}

func encodeBRn(rn uint32) uint32 {
	return 0xD61F0000 | ((rn & 0x1F) << 5)
}
