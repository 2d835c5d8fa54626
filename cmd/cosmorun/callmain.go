package main

import "github.com/ebitengine/purego"

// callMain invokes the compiled program's entry point exactly as a C
// runtime's _start would call main(): no arguments, integer return value
// becomes the process exit code. purego.SyscallN is the same cgo-free
// raw-call primitive internal/dynload builds its host library bindings
// on, reused here for calling into JIT-generated code instead of a
// dlopen'd library.
func callMain(addr uintptr) int {
	r1, _, _ := purego.SyscallN(addr)
	return int(int32(r1))
}
