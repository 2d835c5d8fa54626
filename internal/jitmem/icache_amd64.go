//go:build amd64

package jitmem

// x86-64 keeps the instruction and data caches coherent for
// self-modifying code (aside from a pipeline serializing instruction the
// CPU itself issues on the next fetch), so no explicit flush is needed
// here; the mprotect in Finalize already acts as the necessary barrier.
func flushInstructionCache(b []byte) {}
