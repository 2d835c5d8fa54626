package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmorun/cosmorun/internal/frontend/faketest"
	"github.com/cosmorun/cosmorun/internal/platform"
)

func testInfo() platform.Info {
	return platform.Probe()
}

func TestCompileRelocateLookupRoundTrip(t *testing.T) {
	fe := faketest.New()
	d := Create(testInfo(), fe, DefaultOptions())
	defer d.Destroy()

	d.AddSourceString("eval.c", "int answer() {\n  return 42;\n}\n")

	diags, err := d.Compile()
	require.NoError(t, err)
	require.Empty(t, diags.Warnings)

	require.NoError(t, d.Relocate())

	addr, err := d.Lookup("answer")
	require.NoError(t, err)
	require.NotZero(t, addr)
}

func TestCompileDetectsDuplicateSymbolAsWarningByDefault(t *testing.T) {
	fe := faketest.New()
	d := Create(testInfo(), fe, DefaultOptions())
	defer d.Destroy()

	d.AddSourceString("a.c", "int f() {\n  return 1;\n}\n")
	d.AddSourceString("b.c", "int f() {\n  return 2;\n}\n")

	diags, err := d.Compile()
	require.NoError(t, err)
	require.Len(t, diags.Warnings, 1)
	require.Equal(t, "DuplicateSymbol", diags.Warnings[0].Kind.String())
}

func TestCompileDuplicateSymbolFatalUnderStrictWarnings(t *testing.T) {
	fe := faketest.New()
	opts := DefaultOptions()
	opts.StrictWarnings = true
	d := Create(testInfo(), fe, opts)
	defer d.Destroy()

	d.AddSourceString("a.c", "int f() {\n  return 1;\n}\n")
	d.AddSourceString("b.c", "int f() {\n  return 2;\n}\n")

	_, err := d.Compile()
	require.Error(t, err)
}

func TestRelocateBeforeCompileIsAnError(t *testing.T) {
	fe := faketest.New()
	d := Create(testInfo(), fe, DefaultOptions())
	defer d.Destroy()

	require.Error(t, d.Relocate())
}

func TestWriteOutputProducesReadableObject(t *testing.T) {
	fe := faketest.New()
	d := Create(testInfo(), fe, DefaultOptions())
	defer d.Destroy()

	d.AddSourceString("eval.c", "int answer() {\n  return 42;\n}\n")
	_, err := d.Compile()
	require.NoError(t, err)
	require.NoError(t, d.Relocate())

	path := filepath.Join(t.TempDir(), "eval.o")
	require.NoError(t, d.WriteOutput(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func TestParseArgsRecognizesCompilerFlags(t *testing.T) {
	opts, positional, err := ParseArgs([]string{"-Ifoo", "-L", "bar", "-DFOO=1", "-c", "-v", "main.c"})
	require.NoError(t, err)
	require.Equal(t, []string{"foo"}, opts.IncludeDirs)
	require.Equal(t, []string{"bar"}, opts.LibraryDirs)
	require.Equal(t, "1", opts.Defines["FOO"])
	require.True(t, opts.EmitObject)
	require.Equal(t, 1, opts.Verbosity)
	require.Equal(t, []string{"main.c"}, positional)
}

func TestParseArgsRejectsUnknownFlag(t *testing.T) {
	_, _, err := ParseArgs([]string{"--definitely-not-a-flag"})
	require.Error(t, err)
}
