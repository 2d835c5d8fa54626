//go:build windows

package jitmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

func allocRegion(size int) (*Region, error) {
	size = roundUp(size, 4096)
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("jitmem: VirtualAlloc %d bytes: %w", size, err)
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &Region{base: b}, nil
}

func protect(b []byte, perm Perm) error {
	if len(b) == 0 {
		return nil
	}
	var newProtect uint32
	switch perm {
	case PermReadWrite:
		newProtect = windows.PAGE_READWRITE
	case PermReadExecute:
		newProtect = windows.PAGE_EXECUTE_READ
	}
	var old uint32
	addr := uintptr(unsafe.Pointer(&b[0]))
	if err := windows.VirtualProtect(addr, uintptr(len(b)), newProtect, &old); err != nil {
		return fmt.Errorf("jitmem: VirtualProtect: %w", err)
	}
	return nil
}

func releaseRegion(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}

func regionAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func roundUp(n, align int) int {
	if align <= 0 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

var (
	kernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procFlushInstrCache     = kernel32.NewProc("FlushInstructionCache")
	currentProcessHandle, _ = windows.GetCurrentProcess()
)

// flushInstructionCache calls kernel32!FlushInstructionCache, required on
// windows/arm64 before freshly written code is safe to execute; a no-op in
// practice on windows/amd64 but cheap enough to call unconditionally.
func flushInstructionCache(b []byte) {
	if len(b) == 0 {
		return
	}
	procFlushInstrCache.Call(
		uintptr(currentProcessHandle),
		uintptr(unsafe.Pointer(&b[0])),
		uintptr(len(b)),
	)
}
