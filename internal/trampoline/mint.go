// Package trampoline generates small executable stubs at runtime that
// bridge one calling convention to another: the SysV→Win64 ABI bridge on
// x86-64, and the ARM64 variadic bridge used when the host libc's
// variadic ABI differs from its named-argument ABI. Stubs are immortal for
// the process and memoised per original address (spec §4.5).
package trampoline

import (
	"sync"

	"github.com/cosmorun/cosmorun/internal/jitmem"
)

// Kind selects which bridge a Wrap call needs.
type Kind int

const (
	// KindNone means the address needs no bridging; Wrap returns it
	// unchanged.
	KindNone Kind = iota
	// KindSysVToWin64 marshals a SysV caller's arguments into the Win64
	// convention before jumping to the target (x86-64 only).
	KindSysVToWin64
	// KindARM64Variadic spills the variadic portion of the integer
	// argument registers to a reserved stack area and bridges to a
	// libc entry point that expects that layout (ARM64 only).
	KindARM64Variadic
)

// entry tracks one minted stub.
type entry struct {
	original uintptr
	stub     uintptr
	name     string
}

// Mint owns the process-wide trampoline table. The zero value is not
// usable; use New.
type Mint struct {
	mu         sync.Mutex
	byOriginal map[uintptr]*entry
	marshaller uintptr // x86-64 only: the shared SysV->Win64 register-shuffle routine
	regions    []*jitmem.Region
}

// New creates an empty mint. One process-wide Mint is expected (spec §5:
// "Trampoline pages are owned by the process"), but the type itself holds
// no package-level global so tests can create isolated instances.
func New() *Mint {
	return &Mint{byOriginal: make(map[uintptr]*entry)}
}

// Wrap returns address unchanged if kind is KindNone or no bridge is
// required; otherwise it returns a memoised stub address, minting one on
// first request. Wrap is idempotent: Wrap(Wrap(addr)) == Wrap(addr),
// because the lookup table is keyed by original address and an address
// that matches an already minted stub is returned unchanged instead of
// being wrapped again.
func (m *Mint) Wrap(addr uintptr, kind Kind, name string, variadicFixedArgs int) (uintptr, error) {
	if kind == KindNone || addr == 0 {
		return addr, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.byOriginal[addr]; ok {
		return e.stub, nil
	}
	// addr might already *be* a stub we minted; treat re-wrapping a known
	// stub as a no-op so Wrap stays idempotent even when called on its own
	// output.
	for _, e := range m.byOriginal {
		if e.stub == addr {
			return addr, nil
		}
	}

	var code []byte
	var err error
	switch kind {
	case KindSysVToWin64:
		code, err = m.sysvToWin64Stub(addr)
	case KindARM64Variadic:
		code, err = arm64VariadicStub(uint64(addr), variadicFixedArgs)
	}
	if err != nil {
		return 0, err
	}

	region, err := jitmem.Alloc(len(code))
	if err != nil {
		return 0, err
	}
	copy(region.Bytes(), code)
	if err := region.Finalize(); err != nil {
		return 0, err
	}
	m.regions = append(m.regions, region)

	stub := region.Base()
	m.byOriginal[addr] = &entry{original: addr, stub: stub, name: name}
	return stub, nil
}

// Lookup returns the minted stub for addr, if one exists, without
// allocating a new one.
func (m *Mint) Lookup(addr uintptr) (uintptr, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.byOriginal[addr]; ok {
		return e.stub, true
	}
	return 0, false
}

// Len returns the number of distinct stubs minted so far.
func (m *Mint) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byOriginal)
}
