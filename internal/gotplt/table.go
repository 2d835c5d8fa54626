// Package gotplt synthesizes in-memory GOT and PLT tables for relocations
// that overflow the signed 32-bit PC-relative range, and rewrites the
// offending relocations to target the generated PLT stubs instead. Placed
// back-to-back within PC32 range of the compiled code section (spec §4.6).
package gotplt

import (
	"github.com/cosmorun/cosmorun/internal/cosmorunerr"
	"github.com/cosmorun/cosmorun/internal/platform"
	"github.com/cosmorun/cosmorun/internal/reloc"
)

// StubSize is the fixed PLT stub size on both supported architectures
// (spec §3 "per-architecture stub size (16 bytes on both x86-64 and
// ARM64)").
const StubSize = 16

// Table owns the synthesized GOT and PLT memory for one compilation.
type Table struct {
	Arch platform.Arch

	GOTBase    uint64
	GOTEntries []uint64 // absolute target addresses, indexed by symbol

	PLTBase  uint64
	PLTStubs [][]byte // StubSize bytes each, indexed the same as GOTEntries

	index map[string]int // symbol name -> slot index
	order []string
}

// Len returns the number of unique overflow symbols this table serves.
func (t *Table) Len() int { return len(t.order) }

// SlotOf returns the GOT/PLT slot index for symbol, and whether it exists.
func (t *Table) SlotOf(symbol string) (int, bool) {
	i, ok := t.index[symbol]
	return i, ok
}

// GOTEntryAddr returns the absolute address of GOT slot i.
func (t *Table) GOTEntryAddr(i int) uint64 {
	return t.GOTBase + uint64(i)*8
}

// PLTStubAddr returns the absolute address of PLT stub i.
func (t *Table) PLTStubAddr(i int) uint64 {
	return t.PLTBase + uint64(i)*StubSize
}

func pageRoundUp(addr uint64) uint64 {
	const pageSize = 4096
	return (addr + pageSize - 1) &^ (pageSize - 1)
}

const pc32Abs = int64(1) << 31

func withinPC32(a, b uint64) bool {
	diff := int64(a) - int64(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= pc32Abs-1
}

// Build lays out a GOT/PLT pair for the deduplicated overflow candidates,
// immediately after the end of the code section, and fills in both tables'
// contents. It returns RelocationLayoutError (fatal, spec §4.6/§7) if the
// resulting layout would not be mutually reachable via a signed 32-bit
// PC-relative offset from every byte of the code section.
func Build(arch platform.Arch, codeBase, codeEnd uint64, deduped []reloc.OverflowCandidate) (*Table, error) {
	t := &Table{
		Arch:  arch,
		index: make(map[string]int, len(deduped)),
	}

	t.GOTBase = pageRoundUp(codeEnd)
	gotSize := uint64(len(deduped)) * 8
	t.PLTBase = t.GOTBase + gotSize
	pltSize := uint64(len(deduped)) * StubSize

	if err := checkMutualReach(codeBase, codeEnd, t.GOTBase, gotSize, t.PLTBase, pltSize); err != nil {
		return nil, err
	}

	t.GOTEntries = make([]uint64, len(deduped))
	t.PLTStubs = make([][]byte, len(deduped))

	for i, c := range deduped {
		t.index[c.SymbolName] = i
		t.order = append(t.order, c.SymbolName)
		t.GOTEntries[i] = c.SymbolAddr

		stub, err := buildStub(arch, t.PLTStubAddr(i), t.GOTEntryAddr(i))
		if err != nil {
			return nil, err
		}
		t.PLTStubs[i] = stub
	}

	return t, nil
}

func checkMutualReach(codeBase, codeEnd, gotBase, gotSize, pltBase, pltSize uint64) error {
	points := []uint64{codeBase, codeEnd, gotBase, gotBase + gotSize, pltBase, pltBase + pltSize}
	for _, a := range points {
		for _, b := range points {
			if !withinPC32(a, b) {
				return cosmorunerr.New(cosmorunerr.KindRelocationLayout,
					"GOT/PLT placement at 0x%x/0x%x unreachable from code [0x%x,0x%x) within PC32 range", gotBase, pltBase, codeBase, codeEnd)
			}
		}
	}
	return nil
}

func buildStub(arch platform.Arch, stubAddr, gotEntryAddr uint64) ([]byte, error) {
	switch arch {
	case platform.ArchAMD64:
		return amd64Stub(stubAddr, gotEntryAddr), nil
	case platform.ArchARM64:
		return arm64Stub(stubAddr, gotEntryAddr)
	default:
		return nil, cosmorunerr.New(cosmorunerr.KindRelocationLayout, "unsupported architecture %v for GOT/PLT stub", arch)
	}
}
