package reloc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFits32Boundaries(t *testing.T) {
	require.True(t, Fits32(pc32Max))
	require.True(t, Fits32(-pc32Max))
	require.False(t, Fits32(pc32Max+1))
	require.False(t, Fits32(-pc32Max-1))
	require.False(t, Fits32(math.MinInt32), "exactly -2^31 overflows, it is not the negative boundary")
}

func TestScanFlagsOnlyOutOfRangeRecords(t *testing.T) {
	near := Record{Symbol: "near", SourceAddr: 0x1000, TargetAddr: 0x1000 + pc32Max, Kind: KindX86PC32}
	far := Record{Symbol: "far", SourceAddr: 0x1000, TargetAddr: 0x1000 + pc32Max + 1, Kind: KindX86PC32}

	overflows := Scan([]Record{near, far})
	require.Len(t, overflows, 1)
	require.Equal(t, "far", overflows[0].SymbolName)
	require.Equal(t, int64(1), overflows[0].OverflowAmount)
}

func TestDedupKeepsFirstOccurrencePerSymbol(t *testing.T) {
	cands := []OverflowCandidate{
		{SymbolName: "printf", RelocOffset: 0x10},
		{SymbolName: "printf", RelocOffset: 0x40},
		{SymbolName: "malloc", RelocOffset: 0x20},
	}
	deduped := Dedup(cands)
	require.Len(t, deduped, 2)
	require.Equal(t, uint64(0x10), deduped[0].RelocOffset)
	require.Equal(t, "malloc", deduped[1].SymbolName)
}
