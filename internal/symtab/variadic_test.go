package symtab

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func cStringBytes(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

func TestFormatVariadicCoversIntegerStringAndPointerVerbs(t *testing.T) {
	format := cStringBytes("%d-%u-%x-%s-%c-%%")
	name := cStringBytes("ok")

	got := formatVariadic(uintptr(unsafe.Pointer(&format[0])), [maxVariadicArgs]uintptr{
		uintptr(42),
		uintptr(7),
		uintptr(255),
		uintptr(unsafe.Pointer(&name[0])),
		uintptr('!'),
		0,
	})
	require.Equal(t, "42-7-ff-ok-!-%", got)
}

func TestSscanfShimParsesIntegerAndString(t *testing.T) {
	input := cStringBytes("42 hello")
	format := cStringBytes("%d %s")

	var n int32
	out := make([]byte, 16)

	assigned := sscanfShim(
		uintptr(unsafe.Pointer(&input[0])),
		uintptr(unsafe.Pointer(&format[0])),
		uintptr(unsafe.Pointer(&n)),
		uintptr(unsafe.Pointer(&out[0])),
		0, 0, 0,
	)

	require.Equal(t, int32(2), assigned)
	require.Equal(t, int32(42), n)
	require.Equal(t, "hello", cString(uintptr(unsafe.Pointer(&out[0]))))
}

func TestSscanfShimStopsAtFirstMismatch(t *testing.T) {
	input := cStringBytes("notanumber")
	format := cStringBytes("%d")
	var n int32

	assigned := sscanfShim(
		uintptr(unsafe.Pointer(&input[0])),
		uintptr(unsafe.Pointer(&format[0])),
		uintptr(unsafe.Pointer(&n)),
		0, 0, 0, 0,
	)
	require.Equal(t, int32(0), assigned)
}

func TestSnprintfShimTruncatesToSize(t *testing.T) {
	format := cStringBytes("%s")
	name := cStringBytes("abcdefgh")
	dst := make([]byte, 4)

	n := snprintfShim(
		uintptr(unsafe.Pointer(&dst[0])), 4,
		uintptr(unsafe.Pointer(&format[0])),
		uintptr(unsafe.Pointer(&name[0])), 0, 0, 0, 0, 0,
	)
	require.Equal(t, int32(8), n, "snprintf reports the would-be length, not the truncated one")
	require.Equal(t, "abc", cString(uintptr(unsafe.Pointer(&dst[0]))))
}
