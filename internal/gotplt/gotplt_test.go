package gotplt

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"

	"github.com/cosmorun/cosmorun/internal/platform"
	"github.com/cosmorun/cosmorun/internal/reloc"
)

func TestBuildAmd64StubDisassemblesAsIndirectJump(t *testing.T) {
	codeBase, codeEnd := uint64(0x1000), uint64(0x2000)
	deduped := []reloc.OverflowCandidate{{SymbolName: "printf", SymbolAddr: 0x1_0000_0000}}

	table, err := Build(platform.ArchAMD64, codeBase, codeEnd, deduped)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	require.NoError(t, Validate(table, codeBase, codeEnd))

	inst, err := x86asm.Decode(table.PLTStubs[0], 64)
	require.NoError(t, err)
	require.Equal(t, x86asm.JMP, inst.Op)
}

func TestBuildArm64StubDisassemblesAsAdrpLdrBr(t *testing.T) {
	codeBase, codeEnd := uint64(0x1000), uint64(0x2000)
	deduped := []reloc.OverflowCandidate{{SymbolName: "malloc", SymbolAddr: 0x2_0000_1000}}

	table, err := Build(platform.ArchARM64, codeBase, codeEnd, deduped)
	require.NoError(t, err)
	require.NoError(t, Validate(table, codeBase, codeEnd))

	stub := table.PLTStubs[0]
	inst0, err := arm64asm.Decode(stub[0:4])
	require.NoError(t, err)
	require.Equal(t, arm64asm.ADRP, inst0.Op)

	inst1, err := arm64asm.Decode(stub[4:8])
	require.NoError(t, err)
	require.Equal(t, arm64asm.LDR, inst1.Op)

	inst2, err := arm64asm.Decode(stub[8:12])
	require.NoError(t, err)
	require.Equal(t, arm64asm.BR, inst2.Op)
}

func TestBuildDedupesOneSlotPerSymbol(t *testing.T) {
	codeBase, codeEnd := uint64(0x1000), uint64(0x2000)
	all := []reloc.OverflowCandidate{
		{SymbolName: "printf", SymbolAddr: 0x1_0000_0000, SourceAddr: 0x1010},
		{SymbolName: "printf", SymbolAddr: 0x1_0000_0000, SourceAddr: 0x1050},
	}
	deduped := reloc.Dedup(all)
	table, err := Build(platform.ArchAMD64, codeBase, codeEnd, deduped)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	rewritten, counts := Rewrite(all, table)
	require.Len(t, rewritten, 2)
	require.Equal(t, 2, counts[reloc.KindUnknown]+counts[reloc.KindX86PC32]+counts[reloc.KindX86PLT32])
}

func TestBuildFailsWhenPlacementExceedsPC32Range(t *testing.T) {
	// A code section longer than 2 GiB cannot have a GOT/PLT placed after
	// it that is within PC32 range of its first byte — forces
	// RelocationLayoutError.
	codeBase := uint64(0xFFFF_FFFF_0000_0000)
	codeEnd := codeBase + 0x8000_1000
	deduped := []reloc.OverflowCandidate{{SymbolName: "x", SymbolAddr: 1}}
	_, err := Build(platform.ArchAMD64, codeBase, codeEnd, deduped)
	require.Error(t, err)
}

func TestEmptyOverflowSetProducesEmptyTable(t *testing.T) {
	table, err := Build(platform.ArchAMD64, 0x1000, 0x1000, nil)
	require.NoError(t, err)
	require.Equal(t, 0, table.Len())
	require.Empty(t, table.GOTEntries)
	require.Empty(t, table.PLTStubs)
}
