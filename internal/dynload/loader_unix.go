//go:build !windows

package dynload

import (
	"github.com/ebitengine/purego"

	"github.com/cosmorun/cosmorun/internal/platform"
)

type nativeHandle uintptr

func nativeOpen(path string, flags Flags, _ platform.Info) (nativeHandle, error) {
	mode := purego.RTLD_LAZY
	if flags&FlagGlobal != 0 || flags == FlagsDefault {
		mode |= purego.RTLD_GLOBAL
	}
	h, err := purego.Dlopen(path, mode)
	if err != nil {
		return 0, err
	}
	return nativeHandle(h), nil
}

func nativeLookup(h nativeHandle, name string) (uintptr, error) {
	addr, err := purego.Dlsym(uintptr(h), name)
	if err != nil {
		return 0, err
	}
	return addr, nil
}

func nativeClose(h nativeHandle) error {
	return purego.Dlclose(uintptr(h))
}
