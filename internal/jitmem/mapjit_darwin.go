//go:build darwin

package jitmem

// MAP_JIT, required on Apple Silicon to obtain a page that can later be
// switched to executable under the platform's per-thread W^X enforcement.
const darwinMapJIT = 0x800

func platformMapJITFlag() int { return darwinMapJIT }
