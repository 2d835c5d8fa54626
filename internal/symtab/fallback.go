package symtab

import (
	"sync"

	"github.com/ebitengine/purego"
	"modernc.org/libc"
)

// buildLibcFallback wraps a handful of modernc.org/libc's cgo-free, pure-Go
// routines as raw C-ABI addresses via purego.NewCallback. These back a
// small set of memory/string builtins when the host dynamic loader cannot
// find a system libc at all — a real condition for statically linked Go
// binaries running on minimal/musl-less containers, where dlopen("libc.so.6")
// has nothing to find. Only entries in this table are used, and only when
// layer 1/2 resolution (spec §4.3) did not already supply an address, so a
// host with a normal libc always prefers the real one.
//
// purego caps the total number of callbacks a process may register, so
// this table, like buildVariadicTable's, is built exactly once
// (libcFallbackOnce) and shared across every symtab.Build call.
var (
	libcFallbackOnce sync.Once
	libcFallback     map[string]uintptr
)

func buildLibcFallback() map[string]uintptr {
	libcFallbackOnce.Do(func() {
		libcFallback = map[string]uintptr{
			"memcpy":  purego.NewCallback(fallbackMemcpy),
			"memmove": purego.NewCallback(fallbackMemmove),
			"memset":  purego.NewCallback(fallbackMemset),
			"memcmp":  purego.NewCallback(fallbackMemcmp),
			"strlen":  purego.NewCallback(fallbackStrlen),
		}
	})
	return libcFallback
}

func fallbackMemcpy(dst, src uintptr, n uint64) uintptr {
	libc.Xmemcpy(variadicTLS, dst, src, n)
	return dst
}

func fallbackMemmove(dst, src uintptr, n uint64) uintptr {
	libc.Xmemmove(variadicTLS, dst, src, n)
	return dst
}

func fallbackMemset(dst uintptr, val int32, n uint64) uintptr {
	libc.Xmemset(variadicTLS, dst, val, n)
	return dst
}

func fallbackMemcmp(a, b uintptr, n uint64) int32 {
	return libc.Xmemcmp(variadicTLS, a, b, n)
}

func fallbackStrlen(s uintptr) uint64 {
	return uint64(libc.Xstrlen(variadicTLS, s))
}
