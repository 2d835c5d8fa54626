// Package runtimehelpers holds the per-architecture C source snippets the
// compiled-in-memory path needs alongside the user's own source: ABI
// helpers the frontend emits references to but that no host library
// exports, because they are a compiler-runtime convention rather than a
// libc routine (e.g. ARM64 soft-float conversions, x86-64 long long
// division and modulo). Grounded on the teacher's per-width runtime source strings
// (std/runtime/runtime_c_64.go, runtime_c_32.go) generalized from "slice
// and string intrinsics" to "ABI helper routines".
package runtimehelpers

import "github.com/cosmorun/cosmorun/internal/platform"

// Source returns the helper source to compile into every memory-output
// instance for the given architecture, or the empty string if the
// architecture needs none.
func Source(arch platform.Arch) string {
	switch arch {
	case platform.ArchARM64:
		return arm64Helpers
	case platform.ArchAMD64:
		return amd64Helpers
	default:
		return ""
	}
}

// arm64Helpers provides the soft-float conversions some AAPCS64 code
// generators assume are always linkable, mirroring the helper routines a
// real C runtime (compiler-rt/libgcc) would supply.
const arm64Helpers = `
/* cosmorun ARM64 runtime helpers */
float __cosmorun_u64_to_f32(unsigned long long x) { return (float)x; }
double __cosmorun_u64_to_f64(unsigned long long x) { return (double)x; }
unsigned long long __cosmorun_f64_to_u64(double x) { return (unsigned long long)x; }
unsigned long long __cosmorun_f32_to_u64(float x) { return (unsigned long long)x; }
`

// amd64Helpers provides the long-long division/modulo helpers some 32-bit
// legacy C idioms lower to on targets where the frontend does not inline
// them directly.
const amd64Helpers = `
/* cosmorun x86-64 runtime helpers */
long long __cosmorun_lldiv(long long a, long long b) { return a / b; }
long long __cosmorun_llmod(long long a, long long b) { return a % b; }
unsigned long long __cosmorun_ulldiv(unsigned long long a, unsigned long long b) { return a / b; }
unsigned long long __cosmorun_ullmod(unsigned long long a, unsigned long long b) { return a % b; }
`
