// Package jitmem provides the executable-memory arena shared by the
// trampoline mint and the GOT/PLT resolver: allocate read-write, write
// generated code, flip to read-execute, flush the instruction cache. The
// discipline mirrors the teacher's codesign.go comment that code pages must
// be finalized in that order before they are ever branched into.
package jitmem

import "sync"

// Region is a single RWX-capable allocation. The zero value is not usable;
// construct via Alloc.
type Region struct {
	base []byte
	used int
	mu   sync.Mutex
	done bool
}

// Perm is a page protection request.
type Perm int

const (
	PermReadWrite Perm = iota
	PermReadExecute
)

// Alloc reserves size bytes (rounded up to a page) as read-write memory.
// On Apple Silicon the platform-specific implementation additionally
// requests the JIT entitlement flag at allocation time, since W^X cannot be
// toggled after the fact there without it.
func Alloc(size int) (*Region, error) {
	return allocRegion(size)
}

// Bytes returns the writable slice backing the region. Valid only before
// Finalize is called.
func (r *Region) Bytes() []byte {
	return r.base
}

// Base returns the region's start address as a uintptr, suitable for
// PC-relative arithmetic once the region is finalized.
func (r *Region) Base() uintptr {
	return regionAddr(r.base)
}

// Finalize flips the region from read-write to read-execute and flushes the
// instruction cache over the written bytes. Once finalized, Bytes must not
// be mutated.
func (r *Region) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil
	}
	if err := protect(r.base, PermReadExecute); err != nil {
		return err
	}
	flushInstructionCache(r.base)
	r.done = true
	return nil
}

// Release returns the region's pages to the OS. Callers attributable to a
// destroyed compiler instance must call Release (a driver's region also
// holds its GOT/PLT); process-owned trampoline regions are never released
// (spec §5).
func (r *Region) Release() error {
	return releaseRegion(r.base)
}
