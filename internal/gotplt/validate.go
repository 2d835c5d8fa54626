package gotplt

import "github.com/cosmorun/cosmorun/internal/cosmorunerr"

// Validate walks the table after construction and checks the two
// invariants spec §4.6 demands: every PLT stub reaches the code section
// within PC32 range, and every stub reaches its own GOT entry within PC32
// range. Both are guaranteed by construction (Build already verified
// mutual reachability of the six code/GOT/PLT boundaries), so Validate exists
// as a defense-in-depth check against a future layout bug rather than a
// normal-path failure.
func Validate(table *Table, codeBase, codeEnd uint64) error {
	for i := range table.order {
		stubAddr := table.PLTStubAddr(i)
		gotAddr := table.GOTEntryAddr(i)

		if !withinPC32(stubAddr, codeBase) || !withinPC32(stubAddr, codeEnd) {
			return cosmorunerr.New(cosmorunerr.KindRelocationLayout,
				"PLT stub %d at 0x%x unreachable from code section [0x%x,0x%x)", i, stubAddr, codeBase, codeEnd)
		}
		if !withinPC32(stubAddr, gotAddr) {
			return cosmorunerr.New(cosmorunerr.KindRelocationLayout,
				"PLT stub %d at 0x%x cannot reach its GOT entry at 0x%x", i, stubAddr, gotAddr)
		}
	}
	return nil
}
