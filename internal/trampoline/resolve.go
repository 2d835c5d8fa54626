package trampoline

import (
	"github.com/cosmorun/cosmorun/internal/cosmorunerr"
	"github.com/cosmorun/cosmorun/internal/platform"
	"github.com/cosmorun/cosmorun/internal/symtab"
)

// variadicFamily lists the libc entry points cosmorun bridges across the
// ARM64 variadic ABI boundary, together with the count of leading named
// (non-variadic) integer parameters each one takes.
var variadicFamily = map[string]int{
	"printf":   1, // fmt
	"fprintf":  2, // stream, fmt
	"sprintf":  2, // str, fmt
	"snprintf": 3, // str, size, fmt
	"scanf":    1, // fmt
	"fscanf":   2, // stream, fmt
	"sscanf":   2, // str, fmt
	"execl":    1, // path
	"execle":   1,
	"execlp":   1,
}

// Resolver ties a symbol table to a trampoline Mint so that callers get a
// single resolve(name) entry point: look the symbol up, decide whether
// the host's ABI needs bridging for it, and return an address that is
// always safe to call directly from JIT-generated code (spec §4.5's
// "Libc-function resolution with automatic variadic trampolining").
type Resolver struct {
	info  platform.Info
	table *symtab.Table
	mint  *Mint
}

// NewResolver builds a Resolver bound to a symbol table and platform
// description. info determines which bridge kind (if any) resolve
// applies.
func NewResolver(info platform.Info, table *symtab.Table, mint *Mint) *Resolver {
	return &Resolver{info: info, table: table, mint: mint}
}

// Resolve looks up name and returns an address ready to be called from
// JIT-generated code under the target's native calling convention,
// minting and memoising a cross-ABI trampoline when one is required.
func (r *Resolver) Resolve(name string) (uintptr, error) {
	addr, ok := r.table.Lookup(name)
	if !ok {
		return 0, cosmorunerr.New(cosmorunerr.KindSymbolNotFound, "unresolved symbol %q", name)
	}

	switch {
	case r.info.OS == platform.OSWindows && r.info.Arch == platform.ArchAMD64 && isSysVHost(r):
		return r.mint.Wrap(addr, KindSysVToWin64, name, 0)

	case r.info.OS == platform.OSDarwin && r.info.Arch == platform.ArchARM64:
		if fixedArgs, variadic := variadicFamily[name]; variadic {
			return r.mint.Wrap(addr, KindARM64Variadic, name, fixedArgs)
		}
		return addr, nil

	default:
		return addr, nil
	}
}

// isSysVHost reports whether the *caller* of resolved stubs is itself
// JIT code generated under the SysV convention while the callee lives in
// a Win64-convention system library. On native Windows/amd64 this is
// never true today (cosmorun's own codegen follows the host's native
// convention); the hook exists so a future cross-compiling frontend that
// emits SysV-convention code on Windows can opt in without touching the
// resolver's call sites.
func isSysVHost(_ *Resolver) bool {
	return false
}
