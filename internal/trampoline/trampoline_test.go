package trampoline

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

func TestSysVToWin64StubBeginsWithPushRbp(t *testing.T) {
	mint := New()
	stub, err := mint.sysvToWin64Stub(0x4141414141414141)
	require.NoError(t, err)
	require.NotEmpty(t, stub)

	inst, err := x86asm.Decode(stub[:1], 64)
	require.NoError(t, err)
	require.Equal(t, x86asm.PUSH, inst.Op)
}

func TestMarshallerEndsInCallThroughRaxThenRet(t *testing.T) {
	code := buildMarshaller()
	require.NotEmpty(t, code)

	// Decode forward until we find the `call rax` instruction; asserts the
	// marshaller really does tail the target rather than jumping into it,
	// which is what lets it restore the stack afterwards.
	off := 0
	var sawCall bool
	for off < len(code) {
		inst, err := x86asm.Decode(code[off:], 64)
		require.NoError(t, err)
		if inst.Op == x86asm.CALL {
			sawCall = true
		}
		off += inst.Len
	}
	require.True(t, sawCall, "marshaller must CALL the real target, not jump to it, so it can restore rsp afterwards")
}

func TestWrapIsIdempotent(t *testing.T) {
	mint := New()
	first, err := mint.Wrap(0x1000, KindARM64Variadic, "printf", 1)
	require.NoError(t, err)
	require.NotZero(t, first)

	second, err := mint.Wrap(0x1000, KindARM64Variadic, "printf", 1)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, mint.Len())

	// Re-wrapping the stub's own address must be a no-op, not a double stub.
	third, err := mint.Wrap(first, KindARM64Variadic, "printf", 1)
	require.NoError(t, err)
	require.Equal(t, first, third)
	require.Equal(t, 1, mint.Len())
}

func TestWrapNoneReturnsAddressUnchanged(t *testing.T) {
	mint := New()
	addr, err := mint.Wrap(0xDEADBEEF, KindNone, "noop", 0)
	require.NoError(t, err)
	require.EqualValues(t, 0xDEADBEEF, addr)
	require.Equal(t, 0, mint.Len())
}

func TestArm64VariadicStubEndsInBranch(t *testing.T) {
	code, err := arm64VariadicStub(0x1_0000_0000, 2)
	require.NoError(t, err)
	require.True(t, len(code)%4 == 0)

	last := code[len(code)-4:]
	inst, err := arm64asm.Decode(last)
	require.NoError(t, err)
	require.Equal(t, arm64asm.BR, inst.Op)
}

func TestArm64VariadicStubRejectsOutOfRangeArity(t *testing.T) {
	_, err := arm64VariadicStub(0x1000, 8)
	require.Error(t, err)
	_, err = arm64VariadicStub(0x1000, -1)
	require.Error(t, err)
}
