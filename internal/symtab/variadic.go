package symtab

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"modernc.org/libc"
)

// variadicTLS is a single process-wide modernc.org/libc TLS used by every
// variadic shim below. libc's generated bindings are not safe to call from
// two OS threads concurrently against the same TLS, which matches this
// core's single-threaded-per-compile concurrency model (spec §5).
var variadicTLS = libc.NewTLS()

// cString reads a NUL-terminated string out of the compiled program's
// address space starting at addr.
func cString(addr uintptr) string {
	if addr == 0 {
		return ""
	}
	var b strings.Builder
	for p := addr; ; p++ {
		c := *(*byte)(unsafe.Pointer(p))
		if c == 0 {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

// formatVariadic renders a small, deliberately conservative subset of the
// printf format language (%d %u %x %s %c %p %%) against up to
// maxVariadicArgs trailing raw argument words. The spec calls out that a
// variadic routine's calling convention "cannot be safely synthesized from
// a generic dlsym result on every architecture" (§4.3); rather than
// attempting full printf fidelity through a foreign ABI, this hand-written
// shim covers the common integer/string/pointer cases that JIT test
// programs actually exercise and leaves floating-point conversions
// unimplemented.
const maxVariadicArgs = 6

func formatVariadic(format uintptr, args [maxVariadicArgs]uintptr) string {
	spec := cString(format)
	var out strings.Builder
	argi := 0
	next := func() uintptr {
		if argi >= len(args) {
			return 0
		}
		v := args[argi]
		argi++
		return v
	}
	for i := 0; i < len(spec); i++ {
		c := spec[i]
		if c != '%' || i == len(spec)-1 {
			out.WriteByte(c)
			continue
		}
		i++
		switch spec[i] {
		case 'd', 'i':
			out.WriteString(strconv.FormatInt(int64(next()), 10))
		case 'u':
			out.WriteString(strconv.FormatUint(uint64(next()), 10))
		case 'x':
			out.WriteString(strconv.FormatUint(uint64(next()), 16))
		case 's':
			out.WriteString(cString(next()))
		case 'c':
			out.WriteByte(byte(next()))
		case 'p':
			out.WriteString("0x" + strconv.FormatUint(uint64(next()), 16))
		case '%':
			out.WriteByte('%')
		default:
			out.WriteByte('%')
			out.WriteByte(spec[i])
		}
	}
	return out.String()
}

// printfShim backs printf/fprintf: it writes the formatted text to fd 1 via
// modernc.org/libc's Xwrite, which is a faithful cgo-free wrapper over the
// host write(2) syscall.
func printfShim(format uintptr, a0, a1, a2, a3, a4, a5 uintptr) int32 {
	s := formatVariadic(format, [maxVariadicArgs]uintptr{a0, a1, a2, a3, a4, a5})
	b := []byte(s)
	if len(b) == 0 {
		return 0
	}
	n := libc.Xwrite(variadicTLS, 1, uintptr(unsafe.Pointer(&b[0])), uint64(len(b)))
	return int32(n)
}

// fprintfShim backs fprintf. Its C signature is fprintf(FILE *stream,
// const char *format, ...) — stream occupies the argument slot printf
// doesn't have, so it cannot share printfShim's parameter layout despite
// sharing its formatting logic. Mapping an arbitrary FILE* back to a host
// fd without a libc-internal lookup table is out of scope here; every
// stream is treated as stdout, which is correct for the overwhelmingly
// common fprintf(stdout, ...) / fprintf(stderr, ...) test-program cases
// modulo the stderr-vs-stdout distinction.
func fprintfShim(stream uintptr, format uintptr, a0, a1, a2, a3, a4 uintptr) int32 {
	return printfShim(format, a0, a1, a2, a3, a4, 0)
}

// sprintfNoSizeShim backs sprintf, which — unlike snprintf — has no size
// parameter: sprintf(char *str, const char *format, ...).
func sprintfNoSizeShim(dst uintptr, format uintptr, a0, a1, a2, a3, a4 uintptr) int32 {
	return snprintfShim(dst, 0, format, a0, a1, a2, a3, a4, 0)
}

// snprintfShim backs snprintf: it copies the formatted text into the
// caller-supplied buffer, NUL-terminating it, and returns the would-be
// length per C semantics (capped to size-1 bytes actually written, matching
// snprintf's truncation behavior; size=0 means "unbounded", used internally
// by sprintfNoSizeShim).
func snprintfShim(dst uintptr, size uintptr, format uintptr, a0, a1, a2, a3, a4, a5 uintptr) int32 {
	s := formatVariadic(format, [maxVariadicArgs]uintptr{a0, a1, a2, a3, a4, a5})
	limit := len(s)
	if size > 0 && limit > int(size)-1 {
		limit = int(size) - 1
	}
	for i := 0; i < limit; i++ {
		*(*byte)(unsafe.Pointer(dst + uintptr(i))) = s[i]
	}
	*(*byte)(unsafe.Pointer(dst + uintptr(limit))) = 0
	return int32(len(s))
}

// execlShim backs execl/execle/execlp: it collects the NUL-terminated
// trailing arguments into an argv array (terminated by the first zero
// word, matching execl's own NULL sentinel) and execs via
// modernc.org/libc's Xexecv.
func execlShim(path uintptr, a0, a1, a2, a3, a4, a5 uintptr) int32 {
	raw := [maxVariadicArgs]uintptr{a0, a1, a2, a3, a4, a5}
	argv := make([]uintptr, 0, maxVariadicArgs+2)
	for _, a := range raw {
		argv = append(argv, a)
		if a == 0 {
			break
		}
	}
	if len(argv) == 0 || argv[len(argv)-1] != 0 {
		argv = append(argv, 0)
	}
	return libc.Xexecv(variadicTLS, path, uintptr(unsafe.Pointer(&argv[0])))
}

// stdinWords lazily tokenizes the process's entire stdin on first use and
// hands out whitespace-delimited words to successive scanf/fscanf calls.
// Real scanf consumes bytes from the stream incrementally and can be
// interleaved with other reads of the same fd; this core's compiled
// programs are JIT test snippets rather than interactive readers, so
// eagerly slurping stdin once and walking a cursor over it is a simpler,
// deterministic stand-in.
var (
	stdinOnce  sync.Once
	stdinWords []string
	stdinPos   int
	stdinMu    sync.Mutex
)

func nextStdinWord() (string, bool) {
	stdinOnce.Do(func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Split(bufio.ScanWords)
		for scanner.Scan() {
			stdinWords = append(stdinWords, scanner.Text())
		}
	})
	stdinMu.Lock()
	defer stdinMu.Unlock()
	if stdinPos >= len(stdinWords) {
		return "", false
	}
	w := stdinWords[stdinPos]
	stdinPos++
	return w, true
}

// scanVariadic walks format the same way formatVariadic does, but in
// reverse: each recognized conversion consumes one whitespace-delimited
// word from next and stores a parsed value through the matching pointer
// argument, returning the count of successful assignments (the scanf
// family's own return-value convention, short on the first conversion that
// fails or runs out of input).
func scanVariadic(format string, ptrs [maxVariadicArgs]uintptr, next func() (string, bool)) int32 {
	argi := 0
	nextPtr := func() uintptr {
		if argi >= len(ptrs) {
			return 0
		}
		p := ptrs[argi]
		argi++
		return p
	}
	var assigned int32
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i == len(format)-1 {
			continue
		}
		i++
		verb := format[i]
		if verb == '%' {
			continue
		}
		word, ok := next()
		if !ok {
			break
		}
		ptr := nextPtr()
		if ptr == 0 {
			break
		}
		switch verb {
		case 'd', 'i':
			v, err := strconv.ParseInt(word, 10, 32)
			if err != nil {
				return assigned
			}
			*(*int32)(unsafe.Pointer(ptr)) = int32(v)
		case 'u':
			v, err := strconv.ParseUint(word, 10, 32)
			if err != nil {
				return assigned
			}
			*(*uint32)(unsafe.Pointer(ptr)) = uint32(v)
		case 'x':
			v, err := strconv.ParseUint(word, 16, 32)
			if err != nil {
				return assigned
			}
			*(*uint32)(unsafe.Pointer(ptr)) = uint32(v)
		case 's':
			for j := 0; j < len(word); j++ {
				*(*byte)(unsafe.Pointer(ptr + uintptr(j))) = word[j]
			}
			*(*byte)(unsafe.Pointer(ptr + uintptr(len(word)))) = 0
		case 'c':
			if len(word) == 0 {
				return assigned
			}
			*(*byte)(unsafe.Pointer(ptr)) = word[0]
		default:
			return assigned
		}
		assigned++
	}
	return assigned
}

// scanfShim backs scanf: it reads words from the process's stdin, the same
// simplification fprintfShim's "every stream is treated as stdout" applies
// in the output direction.
func scanfShim(format uintptr, a0, a1, a2, a3, a4, a5 uintptr) int32 {
	return scanVariadic(cString(format), [maxVariadicArgs]uintptr{a0, a1, a2, a3, a4, a5}, nextStdinWord)
}

// fscanfShim backs fscanf(FILE *stream, ...). As with fprintfShim, every
// stream is treated as stdin.
func fscanfShim(stream uintptr, format uintptr, a0, a1, a2, a3, a4 uintptr) int32 {
	return scanVariadic(cString(format), [maxVariadicArgs]uintptr{a0, a1, a2, a3, a4, 0}, nextStdinWord)
}

// sscanfShim backs sscanf(const char *str, ...): unlike scanf/fscanf it
// reads from an in-memory C string already in the compiled program's
// address space, so it needs no stdin simplification at all.
func sscanfShim(str uintptr, format uintptr, a0, a1, a2, a3, a4 uintptr) int32 {
	fields := strings.Fields(cString(str))
	pos := 0
	next := func() (string, bool) {
		if pos >= len(fields) {
			return "", false
		}
		w := fields[pos]
		pos++
		return w, true
	}
	return scanVariadic(cString(format), [maxVariadicArgs]uintptr{a0, a1, a2, a3, a4, 0}, next)
}

// buildVariadicTable constructs the (name, addr) pairs for the variadic
// builtin family by wrapping each shim through purego.NewCallback, which
// produces a real C-ABI-callable function pointer from a Go function — the
// mechanism this core relies on instead of hand-rolling per-target
// calling-convention glue for every variadic routine. purego caps the
// total number of callbacks a process may register, so this table is built
// exactly once (variadicTableOnce) and shared by every Table Build
// produces, rather than once per compiler instance.
var (
	variadicTableOnce sync.Once
	variadicTable     []Entry
)

func buildVariadicTable() []Entry {
	variadicTableOnce.Do(func() {
		variadicTable = []Entry{
			{"printf", purego.NewCallback(printfShim)},
			{"fprintf", purego.NewCallback(fprintfShim)},
			{"sprintf", purego.NewCallback(sprintfNoSizeShim)},
			{"snprintf", purego.NewCallback(snprintfShim)},
			{"scanf", purego.NewCallback(scanfShim)},
			{"fscanf", purego.NewCallback(fscanfShim)},
			{"sscanf", purego.NewCallback(sscanfShim)},
			{"execl", purego.NewCallback(execlShim)},
			{"execle", purego.NewCallback(execlShim)},
			{"execlp", purego.NewCallback(execlShim)},
		}
	})
	return variadicTable
}
