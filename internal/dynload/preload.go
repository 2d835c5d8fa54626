package dynload

import (
	"sync"

	"github.com/cosmorun/cosmorun/internal/platform"
)

// preloadedNames lists the host libraries opened once per process and
// consulted, in order, as layer 2 of symbol resolution (spec §4.3). Entries
// are platform-appropriate; libm is folded into libc on most hosts but kept
// separate here for clarity and because some hosts (musl-based Linux) ship
// it that way historically.
func preloadedNames(info platform.Info) []string {
	switch info.OS {
	case platform.OSDarwin:
		return []string{"libSystem.B.dylib"}
	case platform.OSWindows:
		return []string{"msvcrt.dll", "kernel32.dll"}
	default:
		return []string{"libc.so.6", "libm.so.6", "libpthread.so.0", "libdl.so.2"}
	}
}

var (
	preloadOnce    sync.Once
	preloadHandles []*Handle
)

// Preloaded returns the process-wide list of pre-opened host library
// handles, opening them on first call. A library that fails to open is
// simply omitted; it is not a fatal condition since layer 1 (builtins) or
// layer 3 (runtime search) may still resolve the symbol.
func Preloaded() []*Handle {
	preloadOnce.Do(func() {
		info := platform.Probe()
		for _, name := range preloadedNames(info) {
			if h, err := Open(name, FlagsDefault); err == nil {
				preloadHandles = append(preloadHandles, h)
			}
		}
	})
	return preloadHandles
}
