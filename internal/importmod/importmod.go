// Package importmod implements the compile-once import API: Import loads
// a module by path (dispatching on extension between a cached/compiled .c
// source and a precompiled .o object), Sym resolves a symbol within it,
// and Free releases it. It is the top-level entry point spec §4.7
// describes in pseudocode.
package importmod

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cosmorun/cosmorun/internal/cache"
	"github.com/cosmorun/cosmorun/internal/cosmorunerr"
	"github.com/cosmorun/cosmorun/internal/driver"
	"github.com/cosmorun/cosmorun/internal/frontend"
	"github.com/cosmorun/cosmorun/internal/jitmem"
	"github.com/cosmorun/cosmorun/internal/platform"
)

// state is a handle's position in the lifecycle spec §4.7 describes:
// Loading -> (LoadedFromCache | Compiling -> Relocated) -> Destroyed,
// with an explicit release-on-error path back out of Compiling.
type state int

const (
	stateLoading state = iota
	stateLoadedFromCache
	stateCompiling
	stateRelocated
	stateDestroyed
)

// Handle is an opaque loaded module. The zero value is not usable.
type Handle struct {
	mu      sync.Mutex
	path    string
	state   state
	symbols map[string]uintptr
	region  *jitmem.Region // only set for the .o / cache-load path
	drv     *driver.Driver // only set for the .c (compile) path, kept for Lookup/Destroy
}

// Importer owns the platform/frontend configuration every Import call
// uses, so callers don't have to thread it through each time.
type Importer struct {
	info platform.Info
	newFrontend func() frontend.Frontend
}

// New builds an Importer. newFrontend is called once per .c import to
// build a fresh parser instance (a real deployment passes a constructor
// around frontend.NewCCFrontend; tests pass one around a faketest.Frontend).
func New(info platform.Info, newFrontend func() frontend.Frontend) *Importer {
	return &Importer{info: info, newFrontend: newFrontend}
}

// Import loads path, dispatching on its extension per spec §4.7:
//
//	.o  -> read the object file and copy its code into an executable region
//	.c  -> look for a fresh sibling cache object first, compile on a miss
func (im *Importer) Import(path string) (*Handle, error) {
	switch filepath.Ext(path) {
	case ".o":
		return im.importObject(path)
	case ".c":
		return im.importSource(path)
	default:
		return nil, cosmorunerr.New(cosmorunerr.KindImportNotFound, "unsupported module extension for %q", path)
	}
}

func (im *Importer) importObject(path string) (*Handle, error) {
	h := &Handle{path: path, state: stateLoading}

	obj, err := cache.ReadObject(path)
	if err != nil {
		return nil, err
	}
	if obj.Arch != im.info.Arch {
		return nil, cosmorunerr.New(cosmorunerr.KindImportNotFound, "object %q was built for %v, host is %v", path, obj.Arch, im.info.Arch)
	}

	region, err := jitmem.Alloc(len(obj.Code))
	if err != nil {
		return nil, err
	}
	copy(region.Bytes(), obj.Code)
	if err := region.Finalize(); err != nil {
		region.Release()
		return nil, err
	}

	base := region.Base()
	symbols := make(map[string]uintptr, len(obj.Symbols))
	for name, off := range obj.Symbols {
		symbols[name] = base + uintptr(off)
	}

	h.region = region
	h.symbols = symbols
	h.state = stateLoadedFromCache
	return h, nil
}

func (im *Importer) importSource(path string) (*Handle, error) {
	h := &Handle{path: path, state: stateLoading}

	machineTag := im.info.MachineTag()
	cachePath := cache.PathFor(path, machineTag)

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, cosmorunerr.Wrap(cosmorunerr.KindIO, err, "statting %s", path)
		}
		// The .c source is gone but a previously compiled cache object
		// may still be usable (spec §4.7: "source absent, cache
		// present" falls back to the cache rather than failing outright
		// — mtime equality can no longer be checked, so any cache found
		// here is trusted as-is).
		if cached, cerr := im.importObject(cachePath); cerr == nil {
			cached.path = path
			return cached, nil
		}
		return nil, cosmorunerr.New(cosmorunerr.KindImportNotFound, "source %q not found and no usable cache at %q", path, cachePath)
	}

	headers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.h"))
	if fresh, err := cache.IsFresh(path, cachePath, headers); err == nil && fresh {
		if cached, err := im.importObject(cachePath); err == nil {
			cached.path = path
			return cached, nil
		}
		// Fall through to a real compile if the cache file turned out to
		// be corrupt despite matching mtimes.
	}

	h.state = stateCompiling
	drv := driver.Create(im.info, im.newFrontend(), driver.DefaultOptions())
	drv.AddSource(path)

	if _, err := drv.Compile(); err != nil {
		drv.Destroy()
		h.state = stateDestroyed
		return nil, err
	}
	if err := drv.Relocate(); err != nil {
		drv.Destroy()
		h.state = stateDestroyed
		return nil, err
	}

	if err := drv.WriteOutput(cachePath); err == nil {
		_ = cache.StampLikeSource(path, cachePath)
	}

	h.drv = drv
	h.state = stateRelocated
	return h, nil
}

// Sym resolves name within h.
func (h *Handle) Sym(name string) (uintptr, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == stateDestroyed {
		return 0, cosmorunerr.New(cosmorunerr.KindImportNotFound, "Sym called on a freed module %q", h.path)
	}
	if addr, ok := h.symbols[name]; ok {
		return addr, nil
	}
	if h.drv != nil {
		return h.drv.Lookup(name)
	}
	return 0, cosmorunerr.New(cosmorunerr.KindImportNotFound, "symbol %q not found in %q", name, h.path)
}

// Free releases h's resources. Safe to call more than once.
func (h *Handle) Free() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == stateDestroyed {
		return nil
	}
	h.state = stateDestroyed

	var err error
	if h.region != nil {
		err = h.region.Release()
	}
	if h.drv != nil {
		if derr := h.drv.Destroy(); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}
