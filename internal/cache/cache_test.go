package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cosmorun/cosmorun/internal/platform"
)

func TestEncodeDecodeRoundTrips(t *testing.T) {
	obj := Object{
		Arch:    platform.ArchAMD64,
		Symbols: map[string]uint64{"main": 0, "helper": 16},
		Code:    []byte{0xC3, 0x90, 0x90, 0xC3},
	}
	decoded, err := Decode(Encode(obj))
	require.NoError(t, err)
	require.Equal(t, obj.Arch, decoded.Arch)
	require.Equal(t, obj.Symbols, decoded.Symbols)
	require.Equal(t, obj.Code, decoded.Code)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte("not-an-object"))
	require.Error(t, err)
}

func TestPathForAppendsMachineTag(t *testing.T) {
	require.Equal(t, "/tmp/foo.linux-x86_64.o", PathFor("/tmp/foo.c", "linux-x86_64"))
}

func TestIsFreshRequiresMtimeEquality(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.c")
	cacheFile := filepath.Join(dir, "a.linux-x86_64.o")
	require.NoError(t, os.WriteFile(src, []byte("int main(){return 0;}"), 0o644))
	require.NoError(t, os.WriteFile(cacheFile, []byte("obj"), 0o644))
	unaligned := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(cacheFile, unaligned, unaligned))

	fresh, err := IsFresh(src, cacheFile, nil)
	require.NoError(t, err)
	require.False(t, fresh, "mtimes were never aligned, so the cache must be considered stale")

	require.NoError(t, StampLikeSource(src, cacheFile))
	fresh, err = IsFresh(src, cacheFile, nil)
	require.NoError(t, err)
	require.True(t, fresh)

	// Touching the source again, even to an *older* time, must invalidate:
	// the rule is equality, not "cache >= source".
	older := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, older, older))
	fresh, err = IsFresh(src, cacheFile, nil)
	require.NoError(t, err)
	require.False(t, fresh)
}

func TestIsFreshInvalidatedByNewerHeader(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.c")
	hdr := filepath.Join(dir, "a.h")
	cacheFile := filepath.Join(dir, "a.linux-x86_64.o")
	require.NoError(t, os.WriteFile(src, []byte("src"), 0o644))
	require.NoError(t, os.WriteFile(cacheFile, []byte("obj"), 0o644))
	require.NoError(t, StampLikeSource(src, cacheFile))

	require.NoError(t, os.WriteFile(hdr, []byte("hdr"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(hdr, future, future))

	fresh, err := IsFresh(src, cacheFile, []string{hdr})
	require.NoError(t, err)
	require.False(t, fresh)
}

func TestWriteSidecarHashIsDiagnosticOnly(t *testing.T) {
	dir := t.TempDir()
	cacheFile := filepath.Join(dir, "a.linux-x86_64.o")
	require.NoError(t, os.WriteFile(cacheFile, []byte("obj"), 0o644))
	require.NoError(t, WriteSidecarHash(cacheFile, []byte("obj")))

	_, err := os.Stat(cacheFile + ".sha256")
	require.NoError(t, err)
}
