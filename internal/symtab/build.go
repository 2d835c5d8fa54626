package symtab

import (
	"github.com/cosmorun/cosmorun/internal/dynload"
	"github.com/cosmorun/cosmorun/internal/platform"
)

// Build assembles the builtin table for the current host: it resolves each
// non-variadic coreBuiltins name against the process-wide preloaded host
// libraries (dynload.Preloaded), falls back to the pure-Go
// modernc.org/libc-backed implementations in fallback.go when the host
// lookup comes up empty, and always registers the hand-written variadic
// shims (they are never looked up via dlsym, per spec §4.3).
func Build() *Table {
	t := NewTable()
	info := platform.Probe()
	handles := dynload.Preloaded()
	fallback := buildLibcFallback()

	for _, spec := range coreBuiltins {
		if !spec.availableOn(info.OS) {
			continue
		}
		if spec.cat == catVariadic {
			continue // handled by the loop below
		}
		if addr, ok := resolveAgainstHosts(spec.name, handles); ok {
			t.Register(spec.name, addr)
			continue
		}
		if addr, ok := fallback[spec.name]; ok {
			t.Register(spec.name, addr)
		}
	}

	variadicAvailable := make(map[string]bool)
	for _, spec := range coreBuiltins {
		if spec.cat == catVariadic {
			variadicAvailable[spec.name] = spec.availableOn(info.OS)
		}
	}
	for _, e := range buildVariadicTable() {
		if !variadicAvailable[e.Name] {
			continue
		}
		t.Register(e.Name, e.Addr)
	}

	return t
}

func resolveAgainstHosts(name string, handles []*dynload.Handle) (uintptr, bool) {
	for _, h := range handles {
		if addr, err := dynload.Lookup(h, name); err == nil {
			return addr, true
		}
	}
	return 0, false
}

// Resolve implements the full three-layer lookup of spec §4.3 for a single
// undefined symbol encountered during relocation: builtin table, then each
// pre-opened host library in registration order, then the caller's own
// extra search hook (e.g. libraries added via -L for this instance).
func Resolve(builtins *Table, name string, extraLibs []*dynload.Handle) (uintptr, bool) {
	if addr, ok := builtins.Lookup(name); ok {
		return addr, true
	}
	for _, h := range dynload.Preloaded() {
		if addr, err := dynload.Lookup(h, name); err == nil {
			return addr, true
		}
	}
	for _, h := range extraLibs {
		if addr, err := dynload.Lookup(h, name); err == nil {
			return addr, true
		}
	}
	return 0, false
}
