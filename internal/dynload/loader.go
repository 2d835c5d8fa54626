// Package dynload provides a uniform open/lookup/close/error interface over
// the host OS's native dynamic linker, with lazy binding, opt-in global
// visibility, and prefix/extension retry when the literal path does not
// resolve.
package dynload

import (
	"fmt"
	"sync"

	"github.com/cosmorun/cosmorun/internal/cosmorunerr"
	"github.com/cosmorun/cosmorun/internal/platform"
)

// Flags controls how Open resolves and binds a library.
type Flags int

const (
	// FlagsDefault means "pick smart defaults": lazy binding everywhere,
	// global symbol visibility where the OS supports it (not Windows).
	FlagsDefault Flags = 0
	FlagGlobal   Flags = 1 << iota
	FlagLazy
)

// Handle is an opaque reference to an opened library.
type Handle struct {
	native nativeHandle
	path   string
}

var (
	lastErrMu  sync.Mutex
	lastErrMsg string
)

func setLastError(msg string) {
	lastErrMu.Lock()
	lastErrMsg = msg
	lastErrMu.Unlock()
}

// LastError returns a description of the most recent failure from Open or
// Lookup, process-wide (the spec models this as a thread-local string; a
// single process-wide value is sufficient for a single-threaded-per-compile
// core and avoids goroutine-local state).
func LastError() string {
	lastErrMu.Lock()
	defer lastErrMu.Unlock()
	return lastErrMsg
}

// Open opens a shared library, retrying with host-appropriate
// prefix/extension permutations if the literal path fails.
func Open(path string, flags Flags) (*Handle, error) {
	info := platform.Probe()

	candidates := candidatePaths(path, info)
	var firstErr error
	for _, candidate := range candidates {
		h, err := nativeOpen(candidate, flags, info)
		if err == nil {
			return &Handle{native: h, path: candidate}, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	msg := fmt.Sprintf("cannot open %q (tried %d candidates): %v", path, len(candidates), firstErr)
	setLastError(msg)
	return nil, cosmorunerr.Wrap(cosmorunerr.KindResolve, firstErr, "%s", msg)
}

// candidatePaths enumerates the literal path followed by every
// prefix×extension permutation the platform probe recommends, skipping
// permutations that reduce to the literal path already tried.
func candidatePaths(path string, info platform.Info) []string {
	seen := map[string]bool{path: true}
	out := []string{path}
	dir, base := splitDir(path)
	for _, prefix := range info.LibPrefixes {
		for _, ext := range info.LibExtensions {
			candidate := dir + prefix + base + ext
			if !seen[candidate] {
				seen[candidate] = true
				out = append(out, candidate)
			}
		}
	}
	return out
}

func splitDir(path string) (dir, base string) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i+1], path[i+1:]
		}
	}
	return "", path
}

// Lookup returns the address of name within handle, or an error if it is
// not defined there.
func Lookup(h *Handle, name string) (uintptr, error) {
	addr, err := nativeLookup(h.native, name)
	if err != nil {
		msg := fmt.Sprintf("symbol %q not found in %q: %v", name, h.path, err)
		setLastError(msg)
		return 0, cosmorunerr.Wrap(cosmorunerr.KindSymbolNotFound, err, "%s", msg)
	}
	return addr, nil
}

// Close releases handle. Process-owned preloaded handles (see Preloaded) are
// never closed, per the spec's resource model.
func Close(h *Handle) error {
	if h == nil {
		return nil
	}
	return nativeClose(h.native)
}
