//go:build !windows

package jitmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mapJITFlag is non-zero only on darwin (both architectures); on Apple
// Silicon RWX pages must be requested with MAP_JIT at allocation time
// because the OS enforces per-thread W^X and refuses to grant execute
// permission otherwise.
var mapJITFlag = platformMapJITFlag()

func allocRegion(size int) (*Region, error) {
	pageSize := unix.Getpagesize()
	size = roundUp(size, pageSize)
	b, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON|mapJITFlag)
	if err != nil {
		return nil, fmt.Errorf("jitmem: mmap %d bytes: %w", size, err)
	}
	return &Region{base: b}, nil
}

func protect(b []byte, perm Perm) error {
	var prot int
	switch perm {
	case PermReadWrite:
		prot = unix.PROT_READ | unix.PROT_WRITE
	case PermReadExecute:
		prot = unix.PROT_READ | unix.PROT_EXEC
	}
	if err := unix.Mprotect(b, prot); err != nil {
		return fmt.Errorf("jitmem: mprotect: %w", err)
	}
	return nil
}

func releaseRegion(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("jitmem: munmap: %w", err)
	}
	return nil
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
