package importmod

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmorun/cosmorun/internal/frontend"
	"github.com/cosmorun/cosmorun/internal/frontend/faketest"
	"github.com/cosmorun/cosmorun/internal/platform"
)

func newFaketestFrontend() frontend.Frontend { return faketest.New() }

func TestImportSourceCompilesAndResolvesSymbol(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "mod.c")
	require.NoError(t, os.WriteFile(src, []byte("int answer() {\n  return 42;\n}\n"), 0o644))

	im := New(platform.Probe(), newFaketestFrontend)
	h, err := im.Import(src)
	require.NoError(t, err)
	defer h.Free()

	addr, err := h.Sym("answer")
	require.NoError(t, err)
	require.NotZero(t, addr)
}

func TestImportSourceWritesSiblingCacheObject(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "mod.c")
	require.NoError(t, os.WriteFile(src, []byte("int answer() {\n  return 42;\n}\n"), 0o644))

	im := New(platform.Probe(), newFaketestFrontend)
	h, err := im.Import(src)
	require.NoError(t, err)
	defer h.Free()

	cachePath := filepath.Join(dir, "mod."+platform.Probe().MachineTag()+".o")
	_, err = os.Stat(cachePath)
	require.NoError(t, err, "Import of a .c source should leave a fresh sibling cache object behind")
}

func TestImportUnsupportedExtension(t *testing.T) {
	im := New(platform.Probe(), newFaketestFrontend)
	_, err := im.Import("mod.txt")
	require.Error(t, err)
}

func TestImportSourceFallsBackToCacheWhenSourceIsGone(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "mod.c")
	require.NoError(t, os.WriteFile(src, []byte("int answer() {\n  return 42;\n}\n"), 0o644))

	im := New(platform.Probe(), newFaketestFrontend)
	h, err := im.Import(src)
	require.NoError(t, err)
	require.NoError(t, h.Free())

	require.NoError(t, os.Remove(src))

	h2, err := im.Import(src)
	require.NoError(t, err, "a present cache object should still load once its source is deleted")
	defer h2.Free()

	addr, err := h2.Sym("answer")
	require.NoError(t, err)
	require.NotZero(t, addr)
}

func TestImportSourceErrorsWhenNeitherSourceNorCacheExist(t *testing.T) {
	dir := t.TempDir()
	im := New(platform.Probe(), newFaketestFrontend)
	_, err := im.Import(filepath.Join(dir, "missing.c"))
	require.Error(t, err)
}

func TestSymAfterFreeIsAnError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "mod.c")
	require.NoError(t, os.WriteFile(src, []byte("int answer() {\n  return 42;\n}\n"), 0o644))

	im := New(platform.Probe(), newFaketestFrontend)
	h, err := im.Import(src)
	require.NoError(t, err)
	require.NoError(t, h.Free())
	require.NoError(t, h.Free(), "Free must be idempotent")

	_, err = h.Sym("answer")
	require.Error(t, err)
}
