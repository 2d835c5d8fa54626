package gotplt

import "github.com/cosmorun/cosmorun/internal/reloc"

// Rewrite recomputes every overflow candidate (not deduplicated — a symbol
// referenced from ten call sites needs ten rewritten relocations even
// though it shares one GOT/PLT slot) as a PC-relative reference to its
// synthesized PLT stub instead of the original out-of-range target. It
// also tallies rewrites per relocation kind for -vv diagnostics.
func Rewrite(all []reloc.OverflowCandidate, table *Table) ([]reloc.Record, map[reloc.Kind]int) {
	counts := make(map[reloc.Kind]int)
	out := make([]reloc.Record, 0, len(all))
	for _, c := range all {
		slot, ok := table.SlotOf(c.SymbolName)
		if !ok {
			continue // symbol wasn't part of this table's build; caller error
		}
		out = append(out, reloc.Record{
			Symbol:     c.SymbolName,
			SourceAddr: c.SourceAddr,
			TargetAddr: table.PLTStubAddr(slot),
			Addend:     0,
			Kind:       c.RelocType,
			Section:    c.OwningSection,
		})
		counts[c.RelocType]++
	}
	return out, counts
}
