package trampoline

import (
	"encoding/binary"
	"sync"

	"github.com/cosmorun/cosmorun/internal/jitmem"
)

// The SysV->Win64 bridge is two pieces of code working together (spec
// §4.5):
//
//   - a tiny per-target stub, minted once per wrapped function, that saves
//     a frame and loads rax (target) / r10 (marshaller) before calling
//     through r10;
//   - one shared marshaller, minted once per process, that reshuffles the
//     first four SysV integer argument registers (rdi,rsi,rdx,rcx) into
//     their Win64 homes (rcx,rdx,r8,r9), opens 32 bytes of Win64 shadow
//     space, and calls through rax.
//
// Only the first four integer arguments are bridged. Floating-point
// registers pass through unchanged; integer arguments five and up are not
// forwarded (the marshaller overwrites r8/r9, and stack arguments sit
// below the stub's frame and the two return addresses). Entry points
// such as open, read, write and close take four or fewer integer
// arguments.
var marshallerOnce sync.Once
var marshallerAddr uintptr
var marshallerErr error

func sharedMarshaller() (uintptr, error) {
	marshallerOnce.Do(func() {
		code := buildMarshaller()
		region, err := jitmem.Alloc(len(code))
		if err != nil {
			marshallerErr = err
			return
		}
		copy(region.Bytes(), code)
		if err := region.Finalize(); err != nil {
			marshallerErr = err
			return
		}
		marshallerAddr = region.Base()
	})
	return marshallerAddr, marshallerErr
}

// sysvToWin64Stub builds the per-target stub for a single wrapped
// function at target.
func (m *Mint) sysvToWin64Stub(target uintptr) ([]byte, error) {
	marshaller, err := sharedMarshaller()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 29)
	buf = append(buf, 0x55)             // push rbp
	buf = append(buf, 0x48, 0x89, 0xE5) // mov rbp, rsp
	buf = append(buf, 0x48, 0xB8)       // movabs rax, imm64
	buf = binary.LittleEndian.AppendUint64(buf, uint64(target))
	buf = append(buf, 0x49, 0xBA) // movabs r10, imm64
	buf = binary.LittleEndian.AppendUint64(buf, uint64(marshaller))
	buf = append(buf, 0x41, 0xFF, 0xD2) // call r10
	buf = append(buf, 0x5D)             // pop rbp
	buf = append(buf, 0xC3)             // ret
	return buf, nil
}

// buildMarshaller encodes the shared register-shuffle routine:
//
//	sub  rsp, 0x20       ; Win64 shadow space
//	mov  r11, rcx        ; save sysv arg4
//	mov  r10, rdx        ; save sysv arg3
//	mov  rcx, rdi        ; win arg1 = sysv arg1
//	mov  rdx, rsi        ; win arg2 = sysv arg2
//	mov  r8,  r10        ; win arg3 = sysv arg3
//	mov  r9,  r11        ; win arg4 = sysv arg4
//	call rax             ; into the real Win64 target
//	add  rsp, 0x20
//	ret
func buildMarshaller() []byte {
	return []byte{
		0x48, 0x83, 0xEC, 0x20, // sub rsp, 0x20
		0x49, 0x89, 0xCB, // mov r11, rcx
		0x49, 0x89, 0xD2, // mov r10, rdx
		0x48, 0x89, 0xF9, // mov rcx, rdi
		0x48, 0x89, 0xF2, // mov rdx, rsi
		0x4D, 0x89, 0xD0, // mov r8, r10
		0x4D, 0x89, 0xD9, // mov r9, r11
		0xFF, 0xD0, // call rax
		0x48, 0x83, 0xC4, 0x20, // add rsp, 0x20
		0xC3, // ret
	}
}
