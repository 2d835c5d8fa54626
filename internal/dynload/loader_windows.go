//go:build windows

package dynload

import (
	"golang.org/x/sys/windows"

	"github.com/cosmorun/cosmorun/internal/platform"
)

type nativeHandle windows.Handle

func nativeOpen(path string, _ Flags, _ platform.Info) (nativeHandle, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return 0, err
	}
	return nativeHandle(h), nil
}

func nativeLookup(h nativeHandle, name string) (uintptr, error) {
	addr, err := windows.GetProcAddress(windows.Handle(h), name)
	if err != nil {
		return 0, err
	}
	return addr, nil
}

func nativeClose(h nativeHandle) error {
	return windows.FreeLibrary(windows.Handle(h))
}
