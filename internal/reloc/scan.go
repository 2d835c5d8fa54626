package reloc

import "math"

// pc32Max is the largest signed 32-bit displacement magnitude a PC-relative
// encoding can hold. The surviving range is symmetric around zero,
// |(S+A)-P| <= 2^31-1: two's-complement's extra negative value at exactly
// -2^31 is not reachable through this encoding, so both +2^31 and -2^31
// overflow (spec §8 "Boundary behaviours").
const pc32Max = math.MaxInt32

// Displacement computes (S + A) − P for a record, the quantity whose range
// determines whether the relocation overflows a signed 32-bit PC-relative
// encoding.
func Displacement(r Record) int64 {
	return int64(r.TargetAddr) + r.Addend - int64(r.SourceAddr)
}

// Fits32 reports whether a displacement fits the range [-(2^31-1), 2^31-1].
// ±(2^31-1) is fine, exactly ±2^31 is not (spec §8 "Boundary behaviours").
func Fits32(disp int64) bool {
	return disp >= -pc32Max && disp <= pc32Max
}

// Scan walks every relocation record and returns the overflow candidates
// among them, one per overflowing record (deduplication by symbol name is
// a separate, later step — see Dedup — because the owning PLT-stub rewrite
// in internal/gotplt needs every individual occurrence, not just one).
func Scan(records []Record) []OverflowCandidate {
	var out []OverflowCandidate
	for _, r := range records {
		disp := Displacement(r)
		if Fits32(disp) {
			continue
		}
		out = append(out, OverflowCandidate{
			SymbolName:     r.Symbol,
			SymbolAddr:     r.TargetAddr,
			RelocOffset:    r.SourceAddr,
			RelocType:      r.Kind,
			Addend:         r.Addend,
			SourceAddr:     r.SourceAddr,
			OverflowAmount: overflowAmount(disp),
			OwningSection:  r.Section,
		})
	}
	return out
}

func overflowAmount(disp int64) int64 {
	if disp > pc32Max {
		return disp - pc32Max
	}
	return -pc32Max - disp
}

// Dedup collapses overflow candidates so that repeated overflows to the
// same symbol share a single entry, preserving first-seen order — this is
// the set the GOT/PLT resolver allocates one slot per (spec §4.6
// "Deduplication").
func Dedup(candidates []OverflowCandidate) []OverflowCandidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]OverflowCandidate, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.SymbolName] {
			continue
		}
		seen[c.SymbolName] = true
		out = append(out, c)
	}
	return out
}
